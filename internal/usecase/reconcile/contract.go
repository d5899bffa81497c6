package reconcile

import (
	"context"
	"time"

	"github.com/kailas-cloud/aossindex/internal/domain"
	"github.com/kailas-cloud/aossindex/internal/usecase/index"
	"github.com/kailas-cloud/aossindex/internal/usecase/stabilize"
)

// ReadinessWaiter blocks until the collection is ACTIVE.
type ReadinessWaiter interface {
	AwaitActive(ctx context.Context, ref domain.CollectionRef, timeout time.Duration) (string, error)
}

// AccessProber absorbs access propagation delay. It never fails.
type AccessProber interface {
	Probe(ctx context.Context, endpoint string, maxAttempts int)
}

// IndexProvisioner creates the index when absent.
type IndexProvisioner interface {
	EnsureIndex(ctx context.Context, endpoint, name string, spec domain.IndexSpec) (index.Outcome, error)
}

// VisibilityStabilizer checks existence and waits for stable visibility.
type VisibilityStabilizer interface {
	Exists(ctx context.Context, endpoint, index string) bool
	AwaitStable(ctx context.Context, endpoint, index string) (stabilize.Report, error)
}
