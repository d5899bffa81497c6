package dataplane

import (
	"errors"
	"net/http"

	"github.com/kailas-cloud/aossindex/internal/domain"
)

// Response is the outcome of one signed call.
// Status is 0 when no HTTP response was received; Err then holds the cause.
// HTTP error statuses are not errors: Err is nil and Status carries the code.
type Response struct {
	Status int
	Body   []byte
	Err    error
}

// OK reports a 200 response.
func (r Response) OK() bool { return r.Status == http.StatusOK }

// TransportFailed reports that no HTTP status was received.
func (r Response) TransportFailed() bool { return r.Status == 0 }

// ConfigError reports a non-retryable local failure (no usable credentials).
func (r Response) ConfigError() bool {
	return r.Err != nil && errors.Is(r.Err, domain.ErrMissingCredentials)
}

// ServerError reports a 5xx status.
func (r Response) ServerError() bool { return r.Status >= 500 && r.Status <= 599 }
