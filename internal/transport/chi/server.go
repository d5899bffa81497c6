// Package chi serves the retrieval API over HTTP for local runs.
package chi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/aossindex/internal/logger"
	"github.com/kailas-cloud/aossindex/internal/metrics"
	healthuc "github.com/kailas-cloud/aossindex/internal/usecase/health"
	retrievaluc "github.com/kailas-cloud/aossindex/internal/usecase/retrieval"
)

// maxBodyBytes bounds the query request body.
const maxBodyBytes = 64 << 10

// Answerer answers one retrieval request.
type Answerer interface {
	Answer(ctx context.Context, req retrievaluc.Request) (retrievaluc.Answer, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server holds the HTTP handlers of the retrieval API.
type Server struct {
	retrieval Answerer
	health    HealthChecker
	metrics   *metrics.Metrics
	gatherer  prometheus.Gatherer
	logger    *zap.Logger
}

// NewServer creates an HTTP API server. m may be nil; gatherer nil means the default registry.
func NewServer(
	retrieval Answerer,
	health HealthChecker,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
	log *zap.Logger,
) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{retrieval: retrieval, health: health, metrics: m, gatherer: gatherer, logger: log}
}

// Router mounts the API with its middleware chain.
func (s *Server) Router(apiKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(s.metrics.Middleware())

	r.Post("/query", s.Query)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	return r
}

// Query handles POST /query.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var req retrievaluc.Request
	if r.ContentLength != 0 {
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err := dec.Decode(&req); err != nil {
			s.metrics.ObserveRetrieval(http.StatusBadRequest)
			writeJSON(w, http.StatusBadRequest, retrievaluc.ErrorBody{Error: "Invalid request body: " + err.Error()})
			return
		}
	}

	ans, err := s.retrieval.Answer(r.Context(), req)
	if err != nil {
		status, body := retrievaluc.Failure(err)
		logger.FromContext(r.Context()).Warn("query failed", zap.Int("status", status), zap.Error(err))
		s.metrics.ObserveRetrieval(status)
		writeJSON(w, status, body)
		return
	}

	s.metrics.ObserveRetrieval(http.StatusOK)
	writeJSON(w, http.StatusOK, ans)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, report)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, retrievaluc.ErrorBody{Error: message})
}
