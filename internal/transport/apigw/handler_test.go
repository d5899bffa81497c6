package apigw

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/aossindex/internal/domain"
	retrievaluc "github.com/kailas-cloud/aossindex/internal/usecase/retrieval"
)

// --- Mocks ---

type mockAnswerer struct {
	answer retrievaluc.Answer
	err    error
	got    []retrievaluc.Request
}

func (m *mockAnswerer) Answer(_ context.Context, req retrievaluc.Request) (retrievaluc.Answer, error) {
	m.got = append(m.got, req)
	return m.answer, m.err
}

// --- Tests ---

func TestDecodeRequest(t *testing.T) {
	want := retrievaluc.Request{Question: "jazz", City: "Lisbon"}
	tests := []struct {
		name string
		raw  string
		want retrievaluc.Request
		err  bool
	}{
		{"proxy string body", `{"httpMethod":"POST","body":"{\"question\":\"jazz\",\"city\":\"Lisbon\"}"}`, want, false},
		{"proxy object body", `{"body":{"question":"jazz","city":"Lisbon"}}`, want, false},
		{"direct invocation", `{"question":"jazz","city":"Lisbon"}`, want, false},
		{"null body", `{"body":null}`, retrievaluc.Request{}, false},
		{"empty body", `{"body":""}`, retrievaluc.Request{}, false},
		{"broken body", `{"body":"{not json"}`, retrievaluc.Request{}, true},
		{"empty payload", ``, retrievaluc.Request{}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := decodeRequest(json.RawMessage(tc.raw))
			if (err != nil) != tc.err {
				t.Fatalf("unexpected error state: %v", err)
			}
			if got != tc.want {
				t.Errorf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestHandle_OK(t *testing.T) {
	ans := &mockAnswerer{answer: retrievaluc.Answer{Events: "No upcoming events found for Porto."}}
	h := NewHandler(ans, nil, zap.NewNop())

	resp, err := h.Handle(context.Background(), json.RawMessage(`{"body":"{\"city\":\"Porto\"}"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Headers["Content-Type"] != "application/json" {
		t.Errorf("unexpected headers %v", resp.Headers)
	}
	if resp.Body != `{"events":"No upcoming events found for Porto."}` {
		t.Errorf("unexpected body %s", resp.Body)
	}
	if ans.got[0].City != "Porto" {
		t.Errorf("unexpected request %+v", ans.got[0])
	}
}

func TestHandle_BrokenBodyIsMissingInput(t *testing.T) {
	ans := &mockAnswerer{err: fmt.Errorf("%w: %s", domain.ErrInvalidQuery, retrievaluc.MsgMissingInput)}
	resp, err := NewHandler(ans, nil, zap.NewNop()).Handle(context.Background(), json.RawMessage(`{"body":"{"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if resp.Body != `{"error":"Provide 'city' and/or free-form 'question'."}` {
		t.Errorf("unexpected body %s", resp.Body)
	}
	if ans.got[0] != (retrievaluc.Request{}) {
		t.Errorf("expected empty request, got %+v", ans.got[0])
	}
}

func TestHandle_RetrieveFailure(t *testing.T) {
	ans := &mockAnswerer{err: fmt.Errorf("retrieve: ThrottlingException: slow down: %w", domain.ErrRetrieve)}
	resp, _ := NewHandler(ans, nil, zap.NewNop()).Handle(context.Background(), json.RawMessage(`{"question":"x"}`))

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	var body retrievaluc.ErrorBody
	if err := json.Unmarshal([]byte(resp.Body), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "Retrieve call failed" || body.Details == "" {
		t.Errorf("unexpected body %+v", body)
	}
}
