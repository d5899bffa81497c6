package domain

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws/arn"
)

// CollectionStatus is the lifecycle state reported by the control plane.
type CollectionStatus string

const (
	// CollectionCreating means the collection is still being provisioned.
	CollectionCreating CollectionStatus = "CREATING"
	// CollectionActive means the data-plane endpoint is assigned and serving.
	CollectionActive CollectionStatus = "ACTIVE"
	// CollectionDeleting means the collection is being torn down.
	CollectionDeleting CollectionStatus = "DELETING"
	// CollectionFailed means provisioning failed on the service side.
	CollectionFailed CollectionStatus = "FAILED"
	// CollectionUnknown covers any status this module does not recognize.
	CollectionUnknown CollectionStatus = "UNKNOWN"
)

// ParseCollectionStatus maps a raw status string onto a known status.
func ParseCollectionStatus(s string) CollectionStatus {
	switch st := CollectionStatus(strings.ToUpper(s)); st {
	case CollectionCreating, CollectionActive, CollectionDeleting, CollectionFailed:
		return st
	default:
		return CollectionUnknown
	}
}

// Collection is an observed snapshot of a serverless collection.
// Created and destroyed externally; this module only reads it.
type Collection struct {
	ID       string
	Name     string
	ARN      string
	Status   CollectionStatus
	Endpoint string // empty until ACTIVE
}

// CollectionRef identifies a collection by id, ARN or name.
type CollectionRef struct {
	ID   string
	Name string
	ARN  string
}

// IsZero reports whether no identifier is set.
func (r CollectionRef) IsZero() bool {
	return r.ID == "" && r.Name == "" && r.ARN == ""
}

// ResolvedID returns the collection id, extracting it from the ARN when needed.
// ARN resource format: collection/<id>.
func (r CollectionRef) ResolvedID() (string, error) {
	if r.ID != "" {
		return r.ID, nil
	}
	if r.ARN == "" {
		return "", nil
	}
	parsed, err := arn.Parse(r.ARN)
	if err != nil {
		return "", fmt.Errorf("parse collection arn %q: %w", r.ARN, ErrInvalidRequest)
	}
	kind, id, ok := strings.Cut(parsed.Resource, "/")
	if !ok || kind != "collection" || id == "" {
		return "", fmt.Errorf("arn %q is not a collection arn: %w", r.ARN, ErrInvalidRequest)
	}
	return id, nil
}

// Key is a stable identifier used in physical resource ids: id, then name.
func (r CollectionRef) Key() string {
	if id, err := r.ResolvedID(); err == nil && id != "" {
		return id
	}
	return r.Name
}

// String implements fmt.Stringer for logs.
func (r CollectionRef) String() string {
	switch {
	case r.ARN != "":
		return r.ARN
	case r.ID != "":
		return r.ID
	default:
		return r.Name
	}
}

// EndpointHost returns the host part of a data-plane endpoint URL.
func EndpointHost(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(strings.TrimPrefix(endpoint, "https://"), "/")
	}
	return u.Host
}
