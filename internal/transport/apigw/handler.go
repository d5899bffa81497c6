// Package apigw adapts the retrieval API to API Gateway proxy Lambda invocations.
package apigw

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"go.uber.org/zap"

	"github.com/kailas-cloud/aossindex/internal/logger"
	"github.com/kailas-cloud/aossindex/internal/metrics"
	retrievaluc "github.com/kailas-cloud/aossindex/internal/usecase/retrieval"
)

// Answerer answers one retrieval request.
type Answerer interface {
	Answer(ctx context.Context, req retrievaluc.Request) (retrievaluc.Answer, error)
}

// Handler serves retrieval for API Gateway proxy events and direct invocations.
type Handler struct {
	retrieval Answerer
	metrics   *metrics.Metrics
	log       *zap.Logger
}

// NewHandler creates a Handler. m may be nil.
func NewHandler(retrieval Answerer, m *metrics.Metrics, log *zap.Logger) *Handler {
	return &Handler{retrieval: retrieval, metrics: m, log: log}
}

// Handle decodes the request, answers it and always returns a proxy response.
func (h *Handler) Handle(ctx context.Context, raw json.RawMessage) (events.APIGatewayProxyResponse, error) {
	log := h.log
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		log = log.With(zap.String("request_id", lc.AwsRequestID))
	}
	ctx = logger.ContextWithLogger(ctx, log)

	req, err := decodeRequest(raw)
	if err != nil {
		log.Warn("unreadable request body, treating as empty", zap.Error(err))
	}

	ans, err := h.retrieval.Answer(ctx, req)
	if err != nil {
		status, body := retrievaluc.Failure(err)
		log.Warn("query failed", zap.Int("status", status), zap.Error(err))
		return h.respond(status, body), nil
	}
	return h.respond(http.StatusOK, ans), nil
}

func (h *Handler) respond(status int, v any) events.APIGatewayProxyResponse {
	h.metrics.ObserveRetrieval(status)
	data, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		data = []byte(`{"error":"internal error"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(data),
	}
}

// decodeRequest accepts a proxy event, whose "body" is a JSON string or object,
// or the request object itself. Anything unreadable decodes to an empty request.
func decodeRequest(raw json.RawMessage) (retrievaluc.Request, error) {
	var req retrievaluc.Request
	if len(raw) == 0 {
		return req, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return req, err
	}
	body, ok := envelope["body"]
	if !ok {
		return req, json.Unmarshal(raw, &req)
	}

	var text *string
	if err := json.Unmarshal(body, &text); err == nil {
		if text == nil || *text == "" {
			return req, nil
		}
		body = json.RawMessage(*text)
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return retrievaluc.Request{}, err
	}
	return req, nil
}
