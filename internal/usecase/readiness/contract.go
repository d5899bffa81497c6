package readiness

import (
	"context"

	"github.com/kailas-cloud/aossindex/internal/domain"
)

// StatusGetter reads the current state of a collection.
type StatusGetter interface {
	Collection(ctx context.Context, ref domain.CollectionRef) (domain.Collection, error)
}
