package domain

import "errors"

var (
	// ErrInvalidRequest signals missing or malformed reconciliation input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrMissingCredentials signals that no AWS credentials are available for signing.
	ErrMissingCredentials = errors.New("missing credentials")
	// ErrInvalidSchema signals an invalid index schema definition.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrCollectionNotReady signals that the collection never reached ACTIVE in time.
	ErrCollectionNotReady = errors.New("collection not ready")
	// ErrCollectionNotFound signals that the control plane does not know the collection.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrUnexpectedStatus signals a data-plane response outside the known status sets.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrNotStable signals that index visibility did not stabilize before the deadline.
	ErrNotStable = errors.New("index visibility not stable")
	// ErrInvalidQuery signals a retrieval request with neither question nor city.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrRetrieve signals a failed knowledge base retrieve call.
	ErrRetrieve = errors.New("retrieve failed")
)
