package dataplane

// Op names the data-plane calls for error context and metrics labels.
const (
	OpRoot        = "GET /"
	OpIndexExists = "HEAD /{index}"
	OpCreateIndex = "PUT /{index}"
	OpMapping     = "GET /{index}/_mapping"
	OpEmptySearch = "GET /{index}/_search"
)

// Error wraps a transport-level failure with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
