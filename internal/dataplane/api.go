package dataplane

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/kailas-cloud/aossindex/internal/metrics"
)

// Sender is the signed transport used by API. *SignedClient satisfies it.
type Sender interface {
	Send(ctx context.Context, method, url string, body []byte, headers http.Header) Response
}

// API exposes the five data-plane calls the reconciler depends on.
type API struct {
	sender  Sender
	metrics *metrics.Metrics
}

// NewAPI wraps a signed sender. m may be nil.
func NewAPI(sender Sender, m *metrics.Metrics) *API {
	return &API{sender: sender, metrics: m}
}

// Root probes GET / on the collection endpoint.
func (a *API) Root(ctx context.Context, endpoint string) Response {
	return a.do(ctx, OpRoot, http.MethodGet, indexURL(endpoint, ""), nil, nil)
}

// IndexExists probes HEAD /{index}: 200 = present, 404 = absent.
func (a *API) IndexExists(ctx context.Context, endpoint, index string) Response {
	return a.do(ctx, OpIndexExists, http.MethodHead, indexURL(endpoint, index), nil, nil)
}

// CreateIndex issues PUT /{index} with the schema document as body.
func (a *API) CreateIndex(ctx context.Context, endpoint, index string, body []byte) Response {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	return a.do(ctx, OpCreateIndex, http.MethodPut, indexURL(endpoint, index), body, h)
}

// Mapping introspects GET /{index}/_mapping.
func (a *API) Mapping(ctx context.Context, endpoint, index string) Response {
	return a.do(ctx, OpMapping, http.MethodGet, indexURL(endpoint, index, "_mapping"), nil, nil)
}

// EmptySearch runs GET /{index}/_search?size=0 as a liveness query.
func (a *API) EmptySearch(ctx context.Context, endpoint, index string) Response {
	return a.do(ctx, OpEmptySearch, http.MethodGet, indexURL(endpoint, index, "_search")+"?size=0", nil, nil)
}

func (a *API) do(
	ctx context.Context, op, method, u string, body []byte, headers http.Header,
) Response {
	resp := a.sender.Send(ctx, method, u, body, headers)
	if resp.Err != nil {
		resp.Err = &Error{Op: op, Err: resp.Err}
	}
	a.metrics.ObserveDataPlane(op, resp.Status)
	return resp
}

// indexURL joins the endpoint with escaped path segments.
func indexURL(endpoint string, segments ...string) string {
	base := strings.TrimRight(endpoint, "/")
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	var b strings.Builder
	b.WriteString(base)
	b.WriteByte('/')
	first := true
	for _, s := range segments {
		if s == "" {
			continue
		}
		if !first {
			b.WriteByte('/')
		}
		b.WriteString(url.PathEscape(s))
		first = false
	}
	return b.String()
}
