package index

import (
	"fmt"

	"github.com/kailas-cloud/aossindex/internal/domain"
	"github.com/kailas-cloud/aossindex/internal/logger"
)

const reasonBodyBytes = 1024

// ProvisionError reports a creation status outside the success, conflict and
// transient sets, or the last response once the attempt budget ran out.
type ProvisionError struct {
	Index     string
	Status    int
	Body      []byte
	Attempts  int
	Exhausted bool
	Err       error // transport cause when Status is 0
}

func (e *ProvisionError) Error() string {
	what := "unexpected status"
	if e.Exhausted {
		what = fmt.Sprintf("gave up after %d attempts, last status", e.Attempts)
	}
	msg := fmt.Sprintf("create index %s: %s %d", e.Index, what, e.Status)
	if len(e.Body) > 0 {
		msg += ": " + logger.Excerpt(e.Body, reasonBodyBytes)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap matches domain.ErrUnexpectedStatus and the transport cause, if any.
func (e *ProvisionError) Unwrap() []error {
	if e.Err == nil {
		return []error{domain.ErrUnexpectedStatus}
	}
	return []error{domain.ErrUnexpectedStatus, e.Err}
}
