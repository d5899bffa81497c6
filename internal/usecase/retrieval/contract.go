package retrieval

import (
	"context"

	"github.com/kailas-cloud/aossindex/internal/domain"
)

// Retriever runs one knowledge base retrieve call.
type Retriever interface {
	Retrieve(ctx context.Context, q domain.RetrievalQuery) ([]domain.RetrievalHit, error)
}
