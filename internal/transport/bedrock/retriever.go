package bedrock

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	smithydoc "github.com/aws/smithy-go/document"

	"github.com/kailas-cloud/aossindex/internal/domain"
)

// RuntimeAPI is the subset of *bedrockagentruntime.Client used here.
type RuntimeAPI interface {
	Retrieve(
		ctx context.Context,
		params *bedrockagentruntime.RetrieveInput,
		optFns ...func(*bedrockagentruntime.Options),
	) (*bedrockagentruntime.RetrieveOutput, error)
}

// Retriever runs vector search against one knowledge base.
type Retriever struct {
	api             RuntimeAPI
	knowledgeBaseID string
}

// NewRetriever creates a Retriever.
func NewRetriever(api RuntimeAPI, knowledgeBaseID string) *Retriever {
	return &Retriever{api: api, knowledgeBaseID: knowledgeBaseID}
}

// Retrieve returns the top hits for q, narrowed by its structured filter.
func (r *Retriever) Retrieve(ctx context.Context, q domain.RetrievalQuery) ([]domain.RetrievalHit, error) {
	vs := &types.KnowledgeBaseVectorSearchConfiguration{}
	if q.TopK > 0 {
		vs.NumberOfResults = aws.Int32(int32(q.TopK)) //nolint:gosec // bounded by config
	}
	vs.Filter = buildFilter(q.Filter)

	out, err := r.api.Retrieve(ctx, &bedrockagentruntime.RetrieveInput{
		KnowledgeBaseId:        aws.String(r.knowledgeBaseID),
		RetrievalQuery:         &types.KnowledgeBaseQuery{Text: aws.String(q.Text)},
		RetrievalConfiguration: &types.KnowledgeBaseRetrievalConfiguration{VectorSearchConfiguration: vs},
	})
	if err != nil {
		return nil, describe("retrieve", err, domain.ErrRetrieve)
	}

	hits := make([]domain.RetrievalHit, 0, len(out.RetrievalResults))
	for _, res := range out.RetrievalResults {
		hit := domain.RetrievalHit{Score: aws.ToFloat64(res.Score), Metadata: decodeMetadata(res.Metadata)}
		if res.Content != nil {
			hit.Text = aws.ToString(res.Content.Text)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// buildFilter maps the structured filter onto the service filter union.
// Two conditions are combined with andAll, which requires at least two members.
func buildFilter(f domain.RetrievalFilter) types.RetrievalFilter {
	var conds []types.RetrievalFilter
	if f.City != "" {
		conds = append(conds, &types.RetrievalFilterMemberEquals{Value: types.FilterAttribute{
			Key:   aws.String(domain.AttrCity),
			Value: document.NewLazyDocument(f.City),
		}})
	}
	if f.FromEpoch != nil {
		conds = append(conds, &types.RetrievalFilterMemberGreaterThanOrEquals{Value: types.FilterAttribute{
			Key:   aws.String(domain.AttrEpoch),
			Value: document.NewLazyDocument(*f.FromEpoch),
		}})
	}

	switch len(conds) {
	case 0:
		return nil
	case 1:
		return conds[0]
	default:
		return &types.RetrievalFilterMemberAndAll{Value: conds}
	}
}

func decodeMetadata(md map[string]document.Interface) map[string]any {
	if len(md) == 0 {
		return nil
	}
	out := make(map[string]any, len(md))
	for k, doc := range md {
		if doc == nil {
			continue
		}
		var v any
		if err := doc.UnmarshalSmithyDocument(&v); err != nil {
			continue
		}
		out[k] = normalize(v)
	}
	return out
}

// normalize turns smithy numbers into float64 so callers see plain JSON types.
func normalize(v any) any {
	switch t := v.(type) {
	case smithydoc.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case []any:
		for i := range t {
			t[i] = normalize(t[i])
		}
		return t
	default:
		return v
	}
}
