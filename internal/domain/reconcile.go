package domain

import (
	"fmt"
	"strings"
)

// RequestKind is the orchestration trigger type.
type RequestKind string

const (
	// RequestCreate provisions the index.
	RequestCreate RequestKind = "Create"
	// RequestUpdate re-converges the index; identical to Create.
	RequestUpdate RequestKind = "Update"
	// RequestDelete is a no-op: the index is retained on delete.
	RequestDelete RequestKind = "Delete"
)

// ResultStatus is the reported outcome of one invocation.
type ResultStatus string

const (
	// StatusSuccess reports a converged resource.
	StatusSuccess ResultStatus = "SUCCESS"
	// StatusFailed reports a failed invocation.
	StatusFailed ResultStatus = "FAILED"
)

// physicalIDPrefix is the namespace of generated physical resource ids.
const physicalIDPrefix = "aoss-index"

// ReconcileRequest is the single input to one invocation. Immutable once built.
type ReconcileRequest struct {
	Kind       RequestKind
	Collection CollectionRef
	// Endpoint is an optional data-plane endpoint supplied by the template.
	// Used directly when no collection identifier is given.
	Endpoint  string
	IndexName string
	Spec      IndexSpec

	// PhysicalResourceID is the id reported by a previous invocation (Update/Delete only).
	PhysicalResourceID string
	CallbackURL        string
}

// Validate checks the fields required for Create/Update.
func (r ReconcileRequest) Validate() error {
	switch r.Kind {
	case RequestCreate, RequestUpdate, RequestDelete:
	default:
		return fmt.Errorf("unknown request type %q: %w", r.Kind, ErrInvalidRequest)
	}
	if r.Kind == RequestDelete {
		return nil
	}
	if r.IndexName == "" {
		return fmt.Errorf("IndexName is required: %w", ErrInvalidRequest)
	}
	if !IsValidIndexName(r.IndexName) {
		return fmt.Errorf("IndexName %q is not a valid index name: %w", r.IndexName, ErrInvalidRequest)
	}
	if r.Collection.IsZero() && r.Endpoint == "" {
		return fmt.Errorf("one of CollectionName, CollectionId, CollectionArn or CollectionEndpoint is required: %w",
			ErrInvalidRequest)
	}
	if _, err := r.Collection.ResolvedID(); err != nil {
		return err
	}
	if err := r.Spec.Validate(); err != nil {
		return err
	}
	return nil
}

// PhysicalID derives the stable physical resource id from collection and index.
// The same collection+index always yields the same id across Create and Update.
func (r ReconcileRequest) PhysicalID() string {
	key := r.Collection.Key()
	if key == "" && r.Endpoint != "" {
		key = EndpointHost(r.Endpoint)
	}
	return physicalIDPrefix + ":" + key + ":" + r.IndexName
}

// ReconcileResult is built exactly once per invocation and always reported.
type ReconcileResult struct {
	Status             ResultStatus
	Reason             string
	PhysicalResourceID string
	Data               map[string]string
}

// Succeeded builds a SUCCESS result.
func Succeeded(physicalID string, data map[string]string) ReconcileResult {
	return ReconcileResult{Status: StatusSuccess, PhysicalResourceID: physicalID, Data: data}
}

// Failed builds a FAILED result carrying the triggering error.
func Failed(physicalID string, err error) ReconcileResult {
	reason := "unknown error"
	if err != nil {
		reason = err.Error()
	}
	return ReconcileResult{Status: StatusFailed, Reason: reason, PhysicalResourceID: physicalID}
}

// IsValidIndexName checks OpenSearch index naming rules:
// lowercase, no leading '_', '-' or '+', none of the reserved characters.
func IsValidIndexName(s string) bool {
	if s == "" || s == "." || s == ".." || len(s) > 255 {
		return false
	}
	if strings.ContainsAny(s[:1], "_-+") {
		return false
	}
	if s != strings.ToLower(s) {
		return false
	}
	return !strings.ContainsAny(s, ` "*\<|,>/?#:`)
}
