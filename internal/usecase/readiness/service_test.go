package readiness

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/aossindex/internal/clock"
	"github.com/kailas-cloud/aossindex/internal/domain"
)

// --- Mocks ---

type step struct {
	col domain.Collection
	err error
}

type mockStatus struct {
	steps []step
	calls int
}

func (m *mockStatus) Collection(_ context.Context, _ domain.CollectionRef) (domain.Collection, error) {
	i := m.calls
	m.calls++
	if i >= len(m.steps) {
		i = len(m.steps) - 1
	}
	return m.steps[i].col, m.steps[i].err
}

var ref = domain.CollectionRef{Name: "events"}

func newClock() *clock.Fake {
	return clock.NewFake(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
}

// --- Tests ---

func TestAwaitActive_AfterCreating(t *testing.T) {
	status := &mockStatus{steps: []step{
		{col: domain.Collection{Status: domain.CollectionCreating}},
		{err: errors.New("throttled")},
		{col: domain.Collection{Status: domain.CollectionActive, Endpoint: "https://abc.aoss.amazonaws.com"}},
	}}
	clk := newClock()
	w := New(status, clk, 5*time.Second)

	endpoint, err := w.AwaitActive(context.Background(), ref, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if endpoint != "https://abc.aoss.amazonaws.com" {
		t.Errorf("unexpected endpoint %q", endpoint)
	}
	if status.calls != 3 {
		t.Errorf("expected 3 polls, got %d", status.calls)
	}
	if got := clk.Sleeps(); len(got) != 2 || got[0] != 5*time.Second {
		t.Errorf("expected two 5s sleeps, got %v", got)
	}
}

func TestAwaitActive_ActiveWithoutEndpointKeepsWaiting(t *testing.T) {
	status := &mockStatus{steps: []step{
		{col: domain.Collection{Status: domain.CollectionActive}},
		{col: domain.Collection{Status: domain.CollectionActive, Endpoint: "https://abc"}},
	}}

	endpoint, err := New(status, newClock(), time.Second).AwaitActive(context.Background(), ref, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if endpoint != "https://abc" || status.calls != 2 {
		t.Errorf("expected endpoint after second poll, got %q after %d", endpoint, status.calls)
	}
}

func TestAwaitActive_Timeout(t *testing.T) {
	status := &mockStatus{steps: []step{{col: domain.Collection{Status: domain.CollectionCreating}}}}
	clk := newClock()

	_, err := New(status, clk, 5*time.Second).AwaitActive(context.Background(), ref, 30*time.Second)
	if !errors.Is(err, domain.ErrCollectionNotReady) {
		t.Fatalf("expected ErrCollectionNotReady, got %v", err)
	}
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TimeoutError, got %T", err)
	}
	if te.Elapsed != 30*time.Second {
		t.Errorf("expected elapsed 30s, got %v", te.Elapsed)
	}
	if te.LastStatus != domain.CollectionCreating {
		t.Errorf("expected last status CREATING, got %q", te.LastStatus)
	}
	if !strings.Contains(err.Error(), "30s") {
		t.Errorf("error should mention elapsed time: %v", err)
	}
	// polls at 0,5,...,30
	if status.calls != 7 {
		t.Errorf("expected 7 polls, got %d", status.calls)
	}
}

func TestAwaitActive_FailedIsNotTerminal(t *testing.T) {
	status := &mockStatus{steps: []step{
		{col: domain.Collection{Status: domain.CollectionFailed}},
		{col: domain.Collection{Status: domain.CollectionActive, Endpoint: "https://abc"}},
	}}

	if _, err := New(status, newClock(), time.Second).AwaitActive(context.Background(), ref, time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAwaitActive_Cancelled(t *testing.T) {
	status := &mockStatus{steps: []step{{col: domain.Collection{Status: domain.CollectionCreating}}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(status, newClock(), time.Second).AwaitActive(ctx, ref, time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
