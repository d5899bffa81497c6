package stabilize

import (
	"context"

	"github.com/kailas-cloud/aossindex/internal/dataplane"
)

// ProbeAPI holds the read paths compared during stabilization.
type ProbeAPI interface {
	IndexExists(ctx context.Context, endpoint, index string) dataplane.Response
	Mapping(ctx context.Context, endpoint, index string) dataplane.Response
	EmptySearch(ctx context.Context, endpoint, index string) dataplane.Response
}
