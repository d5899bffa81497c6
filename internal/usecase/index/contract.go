package index

import (
	"context"

	"github.com/kailas-cloud/aossindex/internal/dataplane"
)

// API is the subset of the data-plane API the provisioner uses.
type API interface {
	IndexExists(ctx context.Context, endpoint, index string) dataplane.Response
	CreateIndex(ctx context.Context, endpoint, index string, body []byte) dataplane.Response
}
