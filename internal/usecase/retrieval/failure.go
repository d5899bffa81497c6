package retrieval

import (
	"errors"
	"net/http"
	"strings"

	"github.com/kailas-cloud/aossindex/internal/domain"
)

// MsgRetrieveFailed is the error message of a failed retrieve call.
const MsgRetrieveFailed = "Retrieve call failed"

// ErrorBody is the JSON error payload shared by every retrieval transport.
type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Failure maps an Answer error to an HTTP status and error payload.
func Failure(err error) (int, ErrorBody) {
	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		msg := strings.TrimPrefix(err.Error(), domain.ErrInvalidQuery.Error()+": ")
		return http.StatusBadRequest, ErrorBody{Error: msg}
	case errors.Is(err, domain.ErrRetrieve):
		return http.StatusInternalServerError, ErrorBody{Error: MsgRetrieveFailed, Details: err.Error()}
	default:
		return http.StatusInternalServerError, ErrorBody{Error: "internal error"}
	}
}
