package preflight

import (
	"context"

	"github.com/kailas-cloud/aossindex/internal/dataplane"
)

// RootProber issues the signed GET / probe.
type RootProber interface {
	Root(ctx context.Context, endpoint string) dataplane.Response
}
