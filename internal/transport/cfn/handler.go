package cfn

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"go.uber.org/zap"

	"github.com/kailas-cloud/aossindex/internal/domain"
	"github.com/kailas-cloud/aossindex/internal/logger"
)

// Reconciler runs one invocation to a result.
type Reconciler interface {
	Reconcile(ctx context.Context, req domain.ReconcileRequest) domain.ReconcileResult
}

// ResponseSender delivers the completion document.
type ResponseSender interface {
	Send(ctx context.Context, url string, resp cfn.Response) error
}

// Handler is the Lambda entry point for the custom resource.
type Handler struct {
	rec     Reconciler
	sender  ResponseSender
	spec    domain.IndexSpec
	reserve time.Duration
	log     *zap.Logger
}

// NewHandler creates a Handler. reserve is kept back from the Lambda deadline
// for the completion callback.
func NewHandler(rec Reconciler, sender ResponseSender, spec domain.IndexSpec, reserve time.Duration, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{rec: rec, sender: sender, spec: spec, reserve: reserve, log: log}
}

// Handle reconciles ev and always reports the result. The returned error is the
// callback failure, if any, so the invocation is retried by the Lambda runtime.
func (h *Handler) Handle(ctx context.Context, ev cfn.Event) error {
	ctx, log := logger.With(ctx, h.log,
		zap.String("request_id", ev.RequestID),
		zap.String("stack_id", ev.StackID),
		zap.String("logical_resource_id", ev.LogicalResourceID),
		zap.String("request_type", string(ev.RequestType)),
	)
	log.Info("custom resource event received", zap.String("physical_resource_id", ev.PhysicalResourceID))

	res := h.reconcile(ctx, ev)

	resp := toResponse(ev, res)
	// the callback must go out even when the work context is exhausted
	if err := h.sender.Send(context.WithoutCancel(ctx), ev.ResponseURL, resp); err != nil {
		log.Error("completion callback failed", zap.Error(err))
		return fmt.Errorf("report %s: %w", res.Status, err)
	}
	log.Info("completion callback sent", zap.String("status", string(resp.Status)))
	return nil
}

func (h *Handler) reconcile(ctx context.Context, ev cfn.Event) domain.ReconcileResult {
	workCtx, cancel := h.workContext(ctx)
	defer cancel()

	req, err := RequestFromEvent(ev, h.spec)
	if err != nil && ev.RequestType == cfn.RequestDelete {
		// a rollback Delete carries the same properties as the Create that failed
		logger.FromContext(ctx).Warn("ignoring unparsable properties on delete", zap.Error(err))
		req, err = deleteRequest(ev), nil
	}
	if err != nil {
		id := ev.PhysicalResourceID
		if id == "" {
			id = "aoss-index:invalid:" + ev.LogicalResourceID
		}
		return domain.Failed(id, err)
	}
	return h.rec.Reconcile(workCtx, req)
}

// deleteRequest builds a Delete from the properties that cannot fail to parse.
func deleteRequest(ev cfn.Event) domain.ReconcileRequest {
	props := ev.ResourceProperties
	return domain.ReconcileRequest{
		Kind: domain.RequestDelete,
		Collection: domain.CollectionRef{
			ID:   propString(props, PropCollectionID),
			Name: propString(props, PropCollectionName),
			ARN:  propString(props, PropCollectionArn),
		},
		Endpoint:           propString(props, PropCollectionEndpoint),
		IndexName:          propString(props, PropIndexName),
		PhysicalResourceID: ev.PhysicalResourceID,
		CallbackURL:        ev.ResponseURL,
	}
}

// workContext ends reserve before the invocation deadline.
func (h *Handler) workContext(ctx context.Context) (context.Context, context.CancelFunc) {
	deadline, ok := ctx.Deadline()
	if !ok || h.reserve <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithDeadline(ctx, deadline.Add(-h.reserve))
}

func toResponse(ev cfn.Event, res domain.ReconcileResult) cfn.Response {
	resp := cfn.Response{
		Status:             cfn.StatusSuccess,
		RequestID:          ev.RequestID,
		LogicalResourceID:  ev.LogicalResourceID,
		StackID:            ev.StackID,
		PhysicalResourceID: res.PhysicalResourceID,
		Reason:             res.Reason,
	}
	if res.Status != domain.StatusSuccess {
		resp.Status = cfn.StatusFailed
	}
	if resp.Reason == "" {
		resp.Reason = "See CloudWatch Log Stream: " + lambdacontext.LogStreamName
	}
	if len(res.Data) > 0 {
		resp.Data = make(map[string]interface{}, len(res.Data))
		for k, v := range res.Data {
			resp.Data[k] = v
		}
	}
	return resp
}
