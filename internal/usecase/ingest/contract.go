package ingest

import (
	"context"

	"github.com/kailas-cloud/aossindex/internal/domain"
)

// Source loads the raw event feed.
type Source interface {
	Events(ctx context.Context) ([]domain.Event, error)
}

// DocumentIngestor submits one batch of documents to the knowledge base.
type DocumentIngestor interface {
	Ingest(ctx context.Context, docs []domain.KBDocument) ([]domain.DocumentStatus, error)
}
