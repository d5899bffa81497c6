package bedrock

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent/types"

	"github.com/kailas-cloud/aossindex/internal/domain"
)

// ErrIngest signals a rejected direct ingestion call.
var ErrIngest = errors.New("knowledge base ingest")

// KnowledgeBaseGetter reads knowledge base metadata.
type KnowledgeBaseGetter interface {
	GetKnowledgeBase(
		ctx context.Context,
		params *bedrockagent.GetKnowledgeBaseInput,
		optFns ...func(*bedrockagent.Options),
	) (*bedrockagent.GetKnowledgeBaseOutput, error)
}

// AgentAPI is the subset of *bedrockagent.Client used by Ingestor.
type AgentAPI interface {
	KnowledgeBaseGetter
	IngestKnowledgeBaseDocuments(
		ctx context.Context,
		params *bedrockagent.IngestKnowledgeBaseDocumentsInput,
		optFns ...func(*bedrockagent.Options),
	) (*bedrockagent.IngestKnowledgeBaseDocumentsOutput, error)
}

// Ingestor submits inline documents to a custom data source.
type Ingestor struct {
	api             AgentAPI
	knowledgeBaseID string
	dataSourceID    string
}

// NewIngestor creates an Ingestor for one knowledge base data source.
func NewIngestor(api AgentAPI, knowledgeBaseID, dataSourceID string) *Ingestor {
	return &Ingestor{api: api, knowledgeBaseID: knowledgeBaseID, dataSourceID: dataSourceID}
}

// Ingest submits one batch and returns the per-document status.
func (i *Ingestor) Ingest(ctx context.Context, docs []domain.KBDocument) ([]domain.DocumentStatus, error) {
	in := &bedrockagent.IngestKnowledgeBaseDocumentsInput{
		KnowledgeBaseId: aws.String(i.knowledgeBaseID),
		DataSourceId:    aws.String(i.dataSourceID),
		Documents:       make([]types.KnowledgeBaseDocument, 0, len(docs)),
	}
	for _, d := range docs {
		in.Documents = append(in.Documents, toKBDocument(d))
	}

	out, err := i.api.IngestKnowledgeBaseDocuments(ctx, in)
	if err != nil {
		return nil, describe("ingest knowledge base documents", err, ErrIngest)
	}

	statuses := make([]domain.DocumentStatus, 0, len(out.DocumentDetails))
	for _, d := range out.DocumentDetails {
		st := domain.DocumentStatus{Status: string(d.Status), Reason: aws.ToString(d.StatusReason)}
		if d.Identifier != nil && d.Identifier.Custom != nil {
			st.ID = aws.ToString(d.Identifier.Custom.Id)
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

// HealthCheck verifies that the knowledge base exists and is ACTIVE.
func (i *Ingestor) HealthCheck(ctx context.Context) error {
	return NewChecker(i.api, i.knowledgeBaseID).HealthCheck(ctx)
}

// Checker reports knowledge base availability.
type Checker struct {
	api KnowledgeBaseGetter
	id  string
}

// NewChecker creates a Checker for one knowledge base.
func NewChecker(api KnowledgeBaseGetter, knowledgeBaseID string) *Checker {
	return &Checker{api: api, id: knowledgeBaseID}
}

// HealthCheck fails unless the knowledge base is ACTIVE.
func (c *Checker) HealthCheck(ctx context.Context) error {
	id := c.id
	out, err := c.api.GetKnowledgeBase(ctx, &bedrockagent.GetKnowledgeBaseInput{KnowledgeBaseId: aws.String(id)})
	if err != nil {
		return describe("get knowledge base "+id, err, ErrIngest)
	}
	if out.KnowledgeBase == nil {
		return fmt.Errorf("knowledge base %s: empty response", id)
	}
	if st := out.KnowledgeBase.Status; st != types.KnowledgeBaseStatusActive {
		return fmt.Errorf("knowledge base %s is %s", id, st)
	}
	return nil
}

func toKBDocument(d domain.KBDocument) types.KnowledgeBaseDocument {
	doc := types.KnowledgeBaseDocument{
		Content: &types.DocumentContent{
			DataSourceType: types.ContentDataSourceTypeCustom,
			Custom: &types.CustomContent{
				CustomDocumentIdentifier: &types.CustomDocumentIdentifier{Id: aws.String(d.ID)},
				SourceType:               types.CustomSourceTypeInLine,
				InlineContent: &types.InlineContent{
					Type:        types.InlineContentTypeText,
					TextContent: &types.TextContentDoc{Data: aws.String(d.Text)},
				},
			},
		},
	}
	if len(d.Attributes) == 0 {
		return doc
	}

	attrs := make([]types.MetadataAttribute, 0, len(d.Attributes))
	for _, a := range d.Attributes {
		attrs = append(attrs, types.MetadataAttribute{Key: aws.String(a.Key), Value: toAttributeValue(a)})
	}
	doc.Metadata = &types.DocumentMetadata{
		Type:             types.MetadataSourceTypeInLineAttribute,
		InlineAttributes: attrs,
	}
	return doc
}

func toAttributeValue(a domain.Attribute) *types.MetadataAttributeValue {
	switch a.Kind {
	case domain.AttributeNumber:
		return &types.MetadataAttributeValue{Type: types.MetadataValueTypeNumber, NumberValue: aws.Float64(a.Number)}
	case domain.AttributeStringList:
		return &types.MetadataAttributeValue{Type: types.MetadataValueTypeStringList, StringListValue: a.StringList}
	default:
		return &types.MetadataAttributeValue{Type: types.MetadataValueTypeString, StringValue: aws.String(a.String)}
	}
}
