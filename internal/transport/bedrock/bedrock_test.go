package bedrock

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"
	agenttypes "github.com/aws/aws-sdk-go-v2/service/bedrockagent/types"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/document"
	rttypes "github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/kailas-cloud/aossindex/internal/domain"
)

// --- Mocks ---

type mockS3 struct {
	body string
	err  error
	in   *s3.GetObjectInput
}

func (m *mockS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.in = in
	if m.err != nil {
		return nil, m.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(m.body))}, nil
}

type mockAgent struct {
	in     *bedrockagent.IngestKnowledgeBaseDocumentsInput
	out    *bedrockagent.IngestKnowledgeBaseDocumentsOutput
	err    error
	status agenttypes.KnowledgeBaseStatus
	getErr error
}

func (m *mockAgent) IngestKnowledgeBaseDocuments(
	_ context.Context, in *bedrockagent.IngestKnowledgeBaseDocumentsInput, _ ...func(*bedrockagent.Options),
) (*bedrockagent.IngestKnowledgeBaseDocumentsOutput, error) {
	m.in = in
	return m.out, m.err
}

func (m *mockAgent) GetKnowledgeBase(
	_ context.Context, _ *bedrockagent.GetKnowledgeBaseInput, _ ...func(*bedrockagent.Options),
) (*bedrockagent.GetKnowledgeBaseOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return &bedrockagent.GetKnowledgeBaseOutput{KnowledgeBase: &agenttypes.KnowledgeBase{Status: m.status}}, nil
}

type mockRuntime struct {
	in  *bedrockagentruntime.RetrieveInput
	out *bedrockagentruntime.RetrieveOutput
	err error
}

func (m *mockRuntime) Retrieve(
	_ context.Context, in *bedrockagentruntime.RetrieveInput, _ ...func(*bedrockagentruntime.Options),
) (*bedrockagentruntime.RetrieveOutput, error) {
	m.in = in
	return m.out, m.err
}

// --- Tests ---

func TestS3Source_Events(t *testing.T) {
	api := &mockS3{body: `[{"city":"Lisbon","event_name":"Fado Night","event_date":"2025-07-01","description":"Music","tags":["music"]}]`}

	events, err := NewS3Source(api, "bucket", "events.json").Events(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if aws.ToString(api.in.Bucket) != "bucket" || aws.ToString(api.in.Key) != "events.json" {
		t.Errorf("unexpected object %v/%v", aws.ToString(api.in.Bucket), aws.ToString(api.in.Key))
	}
	if len(events) != 1 || events[0].Name != "Fado Night" || events[0].Date != "2025-07-01" {
		t.Errorf("unexpected events %+v", events)
	}
}

func TestS3Source_BadJSON(t *testing.T) {
	_, err := NewS3Source(&mockS3{body: `{"not":"an array"}`}, "b", "k").Events(context.Background())
	if !errors.Is(err, ErrSource) {
		t.Fatalf("expected ErrSource, got %v", err)
	}
}

func TestS3Source_APIError(t *testing.T) {
	api := &mockS3{err: &smithy.GenericAPIError{Code: "NoSuchKey", Message: "The specified key does not exist."}}

	_, err := NewS3Source(api, "b", "k").Events(context.Background())
	if !errors.Is(err, ErrSource) {
		t.Fatalf("expected ErrSource, got %v", err)
	}
	if !strings.Contains(err.Error(), "NoSuchKey") {
		t.Errorf("error should carry the API code: %v", err)
	}
}

func TestIngestor_Ingest(t *testing.T) {
	api := &mockAgent{out: &bedrockagent.IngestKnowledgeBaseDocumentsOutput{
		DocumentDetails: []agenttypes.KnowledgeBaseDocumentDetail{{
			Identifier: &agenttypes.DocumentIdentifier{Custom: &agenttypes.CustomDocumentIdentifier{Id: aws.String("Lisbon|2025-07-01|Fado Night")}},
			Status:     agenttypes.DocumentStatusStarting,
		}},
	}}
	docs := []domain.KBDocument{{
		ID:   "Lisbon|2025-07-01|Fado Night",
		Text: "Fado Night in Lisbon on 2025-07-01: Music",
		Attributes: []domain.Attribute{
			{Key: domain.AttrCity, Kind: domain.AttributeString, String: "Lisbon"},
			{Key: domain.AttrEpoch, Kind: domain.AttributeNumber, Number: 1751328000},
			{Key: domain.AttrTags, Kind: domain.AttributeStringList, StringList: []string{"music"}},
		},
	}}

	statuses, err := NewIngestor(api, "kb-1", "ds-1").Ingest(context.Background(), docs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if aws.ToString(api.in.KnowledgeBaseId) != "kb-1" || aws.ToString(api.in.DataSourceId) != "ds-1" {
		t.Error("expected knowledge base and data source ids")
	}

	doc := api.in.Documents[0]
	if doc.Content.DataSourceType != agenttypes.ContentDataSourceTypeCustom {
		t.Errorf("expected CUSTOM data source type, got %q", doc.Content.DataSourceType)
	}
	if aws.ToString(doc.Content.Custom.CustomDocumentIdentifier.Id) != docs[0].ID {
		t.Errorf("unexpected document id")
	}
	if aws.ToString(doc.Content.Custom.InlineContent.TextContent.Data) != docs[0].Text {
		t.Errorf("unexpected inline text")
	}
	attrs := doc.Metadata.InlineAttributes
	if len(attrs) != 3 {
		t.Fatalf("expected 3 attributes, got %d", len(attrs))
	}
	if attrs[1].Value.Type != agenttypes.MetadataValueTypeNumber || aws.ToFloat64(attrs[1].Value.NumberValue) != 1751328000 {
		t.Errorf("unexpected epoch attribute %+v", attrs[1].Value)
	}
	if attrs[2].Value.Type != agenttypes.MetadataValueTypeStringList || len(attrs[2].Value.StringListValue) != 1 {
		t.Errorf("unexpected tags attribute %+v", attrs[2].Value)
	}

	if len(statuses) != 1 || statuses[0].ID != docs[0].ID || statuses[0].Status != "STARTING" {
		t.Errorf("unexpected statuses %+v", statuses)
	}
}

func TestIngestor_Error(t *testing.T) {
	api := &mockAgent{err: &smithy.GenericAPIError{Code: "ValidationException", Message: "bad"}}

	_, err := NewIngestor(api, "kb", "ds").Ingest(context.Background(), []domain.KBDocument{{ID: "x", Text: "y"}})
	if !errors.Is(err, ErrIngest) {
		t.Fatalf("expected ErrIngest, got %v", err)
	}
}

func TestChecker_HealthCheck(t *testing.T) {
	if err := NewChecker(&mockAgent{status: agenttypes.KnowledgeBaseStatusActive}, "kb").HealthCheck(context.Background()); err != nil {
		t.Errorf("expected healthy, got %v", err)
	}
	if err := NewChecker(&mockAgent{status: agenttypes.KnowledgeBaseStatusCreating}, "kb").HealthCheck(context.Background()); err == nil {
		t.Error("expected error for a knowledge base that is not ACTIVE")
	}
	if err := NewChecker(&mockAgent{getErr: errors.New("denied")}, "kb").HealthCheck(context.Background()); err == nil {
		t.Error("expected error when lookup fails")
	}
}

func TestRetriever_Retrieve(t *testing.T) {
	api := &mockRuntime{out: &bedrockagentruntime.RetrieveOutput{
		RetrievalResults: []rttypes.KnowledgeBaseRetrievalResult{{
			Content: &rttypes.RetrievalResultContent{Text: aws.String("Fado Night in Lisbon on 2025-07-01: Music")},
			Score:   aws.Float64(0.82),
			Metadata: map[string]document.Interface{
				domain.AttrCity:    document.NewLazyDocument("Lisbon"),
				domain.AttrDateISO: document.NewLazyDocument("2025-07-01"),
			},
		}},
	}}
	from := float64(1751328000)
	q := domain.RetrievalQuery{
		Text:   "events in Lisbon",
		TopK:   5,
		Filter: domain.RetrievalFilter{City: "Lisbon", FromEpoch: &from},
	}

	hits, err := NewRetriever(api, "kb-1").Retrieve(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if aws.ToString(api.in.RetrievalQuery.Text) != "events in Lisbon" {
		t.Errorf("unexpected query text")
	}
	vs := api.in.RetrievalConfiguration.VectorSearchConfiguration
	if aws.ToInt32(vs.NumberOfResults) != 5 {
		t.Errorf("expected top 5, got %d", aws.ToInt32(vs.NumberOfResults))
	}
	and, ok := vs.Filter.(*rttypes.RetrievalFilterMemberAndAll)
	if !ok || len(and.Value) != 2 {
		t.Fatalf("expected andAll of two conditions, got %T", vs.Filter)
	}
	if _, ok := and.Value[0].(*rttypes.RetrievalFilterMemberEquals); !ok {
		t.Errorf("expected city equals filter, got %T", and.Value[0])
	}
	if _, ok := and.Value[1].(*rttypes.RetrievalFilterMemberGreaterThanOrEquals); !ok {
		t.Errorf("expected epoch range filter, got %T", and.Value[1])
	}

	if len(hits) != 1 || hits[0].Score != 0.82 {
		t.Fatalf("unexpected hits %+v", hits)
	}
	if hits[0].Metadata[domain.AttrCity] != "Lisbon" {
		t.Errorf("expected city metadata, got %v", hits[0].Metadata)
	}
}

func TestBuildFilter(t *testing.T) {
	if f := buildFilter(domain.RetrievalFilter{}); f != nil {
		t.Errorf("expected no filter, got %T", f)
	}
	if _, ok := buildFilter(domain.RetrievalFilter{City: "Porto"}).(*rttypes.RetrievalFilterMemberEquals); !ok {
		t.Error("a single condition must not be wrapped in andAll")
	}
}

func TestRetriever_Error(t *testing.T) {
	api := &mockRuntime{err: &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "no"}}

	_, err := NewRetriever(api, "kb").Retrieve(context.Background(), domain.RetrievalQuery{Text: "q"})
	if !errors.Is(err, domain.ErrRetrieve) {
		t.Fatalf("expected ErrRetrieve, got %v", err)
	}
}
