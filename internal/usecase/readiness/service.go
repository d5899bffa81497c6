// Package readiness waits for a serverless collection to become ACTIVE.
package readiness

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/aossindex/internal/clock"
	"github.com/kailas-cloud/aossindex/internal/domain"
	"github.com/kailas-cloud/aossindex/internal/logger"
)

// TimeoutError reports that the collection never became ACTIVE in time.
type TimeoutError struct {
	Collection string
	Elapsed    time.Duration
	LastStatus domain.CollectionStatus
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("collection %s did not become ACTIVE within %s (last status %s)",
		e.Collection, e.Elapsed.Round(time.Second), e.LastStatus)
}

// Unwrap lets callers match domain.ErrCollectionNotReady.
func (e *TimeoutError) Unwrap() error { return domain.ErrCollectionNotReady }

// Waiter polls the control plane until a collection is ACTIVE.
type Waiter struct {
	status   StatusGetter
	clock    clock.Clock
	interval time.Duration
}

// New creates a Waiter polling every interval.
func New(status StatusGetter, clk clock.Clock, interval time.Duration) *Waiter {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Waiter{status: status, clock: clk, interval: interval}
}

// AwaitActive returns the data-plane endpoint once the collection is ACTIVE.
// Errors from the status call are logged and retried. FAILED is treated as
// "not yet"; the timeout still terminates the wait.
func (w *Waiter) AwaitActive(ctx context.Context, ref domain.CollectionRef, timeout time.Duration) (string, error) {
	log := logger.FromContext(ctx).With(zap.String("stage", "wait_collection_active"), zap.Stringer("collection", ref))

	start := w.clock.Now()
	deadline := start.Add(timeout)
	last := domain.CollectionUnknown

	for poll := 1; ; poll++ {
		col, err := w.status.Collection(ctx, ref)
		switch {
		case err != nil:
			log.Warn("collection status lookup failed", zap.Int("poll", poll), zap.Error(err))
		case col.Status == domain.CollectionActive && col.Endpoint != "":
			log.Info("collection active", zap.Int("poll", poll), zap.String("endpoint", col.Endpoint))
			return col.Endpoint, nil
		case col.Status == domain.CollectionFailed:
			last = col.Status
			log.Warn("collection reports FAILED, still waiting", zap.Int("poll", poll))
		default:
			last = col.Status
			log.Debug("collection not active yet", zap.Int("poll", poll), zap.String("status", string(col.Status)))
		}

		if !w.clock.Now().Before(deadline) {
			return "", &TimeoutError{Collection: ref.String(), Elapsed: w.clock.Now().Sub(start), LastStatus: last}
		}
		if err := w.clock.Sleep(ctx, w.interval); err != nil {
			return "", fmt.Errorf("wait for collection %s: %w", ref, err)
		}
	}
}
