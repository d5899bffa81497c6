// Package controlplane reads collection state from the OpenSearch Serverless management API.
package controlplane

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/opensearchserverless"
	"github.com/aws/aws-sdk-go-v2/service/opensearchserverless/types"

	"github.com/kailas-cloud/aossindex/internal/domain"
)

// BatchGetter is the subset of *opensearchserverless.Client used here.
type BatchGetter interface {
	BatchGetCollection(
		ctx context.Context,
		params *opensearchserverless.BatchGetCollectionInput,
		optFns ...func(*opensearchserverless.Options),
	) (*opensearchserverless.BatchGetCollectionOutput, error)
}

// Collections looks up one collection at a time.
type Collections struct {
	api BatchGetter
}

// NewCollections wraps a control-plane client.
func NewCollections(api BatchGetter) *Collections {
	return &Collections{api: api}
}

// Collection returns the current snapshot of ref.
// Lookup is by id when one is known (directly or from the ARN), else by name;
// the API rejects requests mixing both.
func (c *Collections) Collection(ctx context.Context, ref domain.CollectionRef) (domain.Collection, error) {
	id, err := ref.ResolvedID()
	if err != nil {
		return domain.Collection{}, err
	}

	in := &opensearchserverless.BatchGetCollectionInput{}
	switch {
	case id != "":
		in.Ids = []string{id}
	case ref.Name != "":
		in.Names = []string{ref.Name}
	default:
		return domain.Collection{}, fmt.Errorf("collection identifier is required: %w", domain.ErrInvalidRequest)
	}

	out, err := c.api.BatchGetCollection(ctx, in)
	if err != nil {
		return domain.Collection{}, fmt.Errorf("batch get collection %s: %w", ref, err)
	}

	for _, d := range out.CollectionDetails {
		if matches(d, id, ref.Name) {
			return toDomain(d), nil
		}
	}
	if len(out.CollectionErrorDetails) > 0 {
		e := out.CollectionErrorDetails[0]
		return domain.Collection{}, fmt.Errorf("collection %s: %s: %s: %w",
			ref, aws.ToString(e.ErrorCode), aws.ToString(e.ErrorMessage), domain.ErrCollectionNotFound)
	}
	return domain.Collection{}, fmt.Errorf("collection %s: %w", ref, domain.ErrCollectionNotFound)
}

func matches(d types.CollectionDetail, id, name string) bool {
	if id != "" {
		return aws.ToString(d.Id) == id
	}
	return aws.ToString(d.Name) == name
}

func toDomain(d types.CollectionDetail) domain.Collection {
	return domain.Collection{
		ID:       aws.ToString(d.Id),
		Name:     aws.ToString(d.Name),
		ARN:      aws.ToString(d.Arn),
		Status:   domain.ParseCollectionStatus(string(d.Status)),
		Endpoint: aws.ToString(d.CollectionEndpoint),
	}
}
