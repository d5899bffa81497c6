// Package reconcile drives one custom-resource invocation from request to result.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/aossindex/internal/clock"
	"github.com/kailas-cloud/aossindex/internal/domain"
	"github.com/kailas-cloud/aossindex/internal/logger"
	"github.com/kailas-cloud/aossindex/internal/metrics"
	"github.com/kailas-cloud/aossindex/internal/usecase/index"
)

// Result data keys.
const (
	DataMessage  = "message"
	DataEndpoint = "endpoint"
	DataIndex    = "index"
	DataWarning  = "warning"
)

// Result messages.
const (
	MsgCreated  = "Index created"
	MsgExists   = "Index exists"
	MsgNoDelete = "No-op on delete"
)

const unstableWarning = "index visibility did not stabilize before the deadline; proceeding"

// State names the steps of the Create/Update path, used in logs.
type State string

// Reconciler states.
const (
	StateWaitCollection State = "WAIT_COLLECTION_ACTIVE"
	StatePreflight      State = "PREFLIGHT"
	StateCheckExists    State = "CHECK_EXISTS"
	StateCreate         State = "CREATE"
	StateStabilize      State = "STABILIZE"
	StateDone           State = "DONE"
)

// Options bound the individual stages.
type Options struct {
	ReadinessTimeout  time.Duration
	PreflightAttempts int
}

// Deps are the stage implementations.
type Deps struct {
	Readiness   ReadinessWaiter
	Preflight   AccessProber
	Provisioner IndexProvisioner
	Stabilizer  VisibilityStabilizer
	Clock       clock.Clock
	Metrics     *metrics.Metrics
}

// Reconciler runs the state machine. It holds no per-invocation state.
type Reconciler struct {
	deps Deps
	opts Options
}

// New creates a Reconciler.
func New(deps Deps, opts Options) *Reconciler {
	if deps.Clock == nil {
		deps.Clock = clock.System{}
	}
	if opts.ReadinessTimeout <= 0 {
		opts.ReadinessTimeout = 10 * time.Minute
	}
	return &Reconciler{deps: deps, opts: opts}
}

// Reconcile always returns a result. Panics in any stage become FAILED.
func (r *Reconciler) Reconcile(ctx context.Context, req domain.ReconcileRequest) (res domain.ReconcileResult) {
	start := r.deps.Clock.Now()
	ctx, log := logger.With(ctx, nil, zap.String("index", req.IndexName), zap.Stringer("collection", req.Collection))

	physicalID := req.PhysicalID()
	if req.Kind == domain.RequestDelete && req.PhysicalResourceID != "" {
		physicalID = req.PhysicalResourceID
	}

	defer func() {
		if p := recover(); p != nil {
			log.Error("reconcile panicked", zap.Any("panic", p), zap.Stack("stack"))
			res = domain.Failed(physicalID, fmt.Errorf("internal error: %v", p))
		}
		elapsed := r.deps.Clock.Now().Sub(start)
		r.deps.Metrics.ObserveReconcile(string(req.Kind), string(res.Status), elapsed)
		log.Info("reconcile finished",
			zap.String("status", string(res.Status)),
			zap.String("reason", res.Reason),
			zap.String("physical_resource_id", res.PhysicalResourceID),
			zap.Duration("elapsed", elapsed),
		)
	}()

	if err := req.Validate(); err != nil {
		return domain.Failed(physicalID, err)
	}
	if req.Kind == domain.RequestDelete {
		return domain.Succeeded(physicalID, map[string]string{DataMessage: MsgNoDelete})
	}

	return r.converge(ctx, log, req, physicalID)
}

func (r *Reconciler) converge(
	ctx context.Context, log *zap.Logger, req domain.ReconcileRequest, physicalID string,
) domain.ReconcileResult {
	endpoint := req.Endpoint
	if !req.Collection.IsZero() {
		log.Info("state", zap.String("state", string(StateWaitCollection)))
		ep, err := r.deps.Readiness.AwaitActive(ctx, req.Collection, r.opts.ReadinessTimeout)
		if err != nil {
			return domain.Failed(physicalID, err)
		}
		endpoint = ep
	}

	log.Info("state", zap.String("state", string(StatePreflight)), zap.String("endpoint", endpoint))
	r.deps.Preflight.Probe(ctx, endpoint, r.opts.PreflightAttempts)

	log.Info("state", zap.String("state", string(StateCheckExists)))
	outcome := index.AlreadyExists
	if !r.deps.Stabilizer.Exists(ctx, endpoint, req.IndexName) {
		log.Info("state", zap.String("state", string(StateCreate)))
		var err error
		outcome, err = r.deps.Provisioner.EnsureIndex(ctx, endpoint, req.IndexName, req.Spec)
		if err != nil {
			return domain.Failed(physicalID, err)
		}
	}

	log.Info("state", zap.String("state", string(StateStabilize)), zap.Stringer("outcome", outcome))
	rep, err := r.deps.Stabilizer.AwaitStable(ctx, endpoint, req.IndexName)
	if err != nil {
		return domain.Failed(physicalID, err)
	}

	data := map[string]string{
		DataMessage:  MsgExists,
		DataEndpoint: endpoint,
		DataIndex:    req.IndexName,
	}
	if outcome == index.Created {
		data[DataMessage] = MsgCreated
	}
	res := domain.Succeeded(physicalID, data)
	if !rep.Stable {
		data[DataWarning] = unstableWarning
		data[DataMessage] += " (visibility not confirmed)"
		res.Reason = fmt.Sprintf("%s after %d rounds", unstableWarning, rep.Rounds)
	}
	log.Info("state", zap.String("state", string(StateDone)), zap.Int("rounds", rep.Rounds))
	return res
}
