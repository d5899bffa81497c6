package stabilize

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kailas-cloud/aossindex/internal/clock"
	"github.com/kailas-cloud/aossindex/internal/dataplane"
	"github.com/kailas-cloud/aossindex/internal/domain"
)

// --- Mocks ---

// mockProbes replays one verdict per round. A failing round still answers
// HEAD with 200 and fails only the mapping read.
type mockProbes struct {
	rounds   []bool
	round    int
	heads    int
	mappings int
	searches int
	mapErr   error
}

func (m *mockProbes) current() bool {
	i := m.round - 1
	if i >= len(m.rounds) {
		i = len(m.rounds) - 1
	}
	return m.rounds[i]
}

func (m *mockProbes) IndexExists(_ context.Context, _, _ string) dataplane.Response {
	m.heads++
	m.round++
	return dataplane.Response{Status: 200}
}

func (m *mockProbes) Mapping(_ context.Context, _, _ string) dataplane.Response {
	m.mappings++
	if m.mapErr != nil {
		return dataplane.Response{Err: m.mapErr}
	}
	if !m.current() {
		return dataplane.Response{Status: 404, Body: []byte(`{"error":"index_not_found_exception"}`)}
	}
	return dataplane.Response{Status: 200}
}

func (m *mockProbes) EmptySearch(_ context.Context, _, _ string) dataplane.Response {
	m.searches++
	return dataplane.Response{Status: 200}
}

func newClock() *clock.Fake {
	return clock.NewFake(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
}

func testOptions() Options {
	return Options{
		Interval:            5 * time.Second,
		RequiredConsecutive: 3,
		MaxWait:             5 * time.Minute,
		Settle:              30 * time.Second,
		QueryProbe:          true,
		OnTimeout:           TimeoutFail,
	}
}

// --- Tests ---

func TestAwaitStable_AllOK(t *testing.T) {
	api := &mockProbes{rounds: []bool{true}}
	clk := newClock()

	rep, err := New(api, clk, testOptions()).AwaitStable(context.Background(), "https://abc", "events")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rep.Stable || rep.Rounds != 3 {
		t.Errorf("expected stable after 3 rounds, got %+v", rep)
	}
	if api.heads != 3 || api.mappings != 3 || api.searches != 3 {
		t.Errorf("expected 3 of each probe, got head=%d mapping=%d search=%d", api.heads, api.mappings, api.searches)
	}

	sleeps := clk.Sleeps()
	want := []time.Duration{5 * time.Second, 5 * time.Second, 30 * time.Second}
	if fmt.Sprint(sleeps) != fmt.Sprint(want) {
		t.Errorf("expected sleeps %v, got %v", want, sleeps)
	}
}

func TestAwaitStable_FailureResetsCounter(t *testing.T) {
	api := &mockProbes{rounds: []bool{true, false, true, true, true}}

	rep, err := New(api, newClock(), testOptions()).AwaitStable(context.Background(), "https://abc", "events")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Rounds != 5 {
		t.Errorf("counter must reset on failure: expected 5 rounds, got %d", rep.Rounds)
	}
	if rep.Consecutive != 3 {
		t.Errorf("expected 3 consecutive, got %d", rep.Consecutive)
	}
}

func TestAwaitStable_PartialRoundIsFailure(t *testing.T) {
	// HEAD succeeds in every round, mapping fails in round 3
	api := &mockProbes{rounds: []bool{true, true, false, true, true, true}}

	rep, err := New(api, newClock(), testOptions()).AwaitStable(context.Background(), "https://abc", "events")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Rounds != 6 {
		t.Errorf("expected 6 rounds, got %d", rep.Rounds)
	}
}

func TestAwaitStable_QueryProbeDisabled(t *testing.T) {
	api := &mockProbes{rounds: []bool{true}}
	opts := testOptions()
	opts.QueryProbe = false

	if _, err := New(api, newClock(), opts).AwaitStable(context.Background(), "https://abc", "events"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if api.searches != 0 {
		t.Errorf("expected no search probes, got %d", api.searches)
	}
}

func TestAwaitStable_TimeoutFail(t *testing.T) {
	api := &mockProbes{rounds: []bool{false}}
	opts := testOptions()
	opts.MaxWait = 20 * time.Second

	rep, err := New(api, newClock(), opts).AwaitStable(context.Background(), "https://abc", "events")
	if !errors.Is(err, domain.ErrNotStable) {
		t.Fatalf("expected ErrNotStable, got %v", err)
	}
	if rep.Stable {
		t.Error("report must not be stable")
	}
	// rounds at 0,5,10,15,20
	if rep.Rounds != 5 {
		t.Errorf("expected 5 rounds, got %d", rep.Rounds)
	}
}

func TestAwaitStable_TimeoutProceed(t *testing.T) {
	api := &mockProbes{rounds: []bool{false}}
	opts := testOptions()
	opts.MaxWait = 20 * time.Second
	opts.OnTimeout = TimeoutProceed
	clk := newClock()

	rep, err := New(api, clk, opts).AwaitStable(context.Background(), "https://abc", "events")
	if err != nil {
		t.Fatalf("proceed policy must not fail, got %v", err)
	}
	if rep.Stable {
		t.Error("report must record the instability")
	}
	if rep.Elapsed != 20*time.Second {
		t.Errorf("expected elapsed 20s, got %v", rep.Elapsed)
	}
	for _, d := range clk.Sleeps() {
		if d == 30*time.Second {
			t.Error("settle delay must not run when stabilization timed out")
		}
	}
}

func TestAwaitStable_ConfigErrorAborts(t *testing.T) {
	api := &mockProbes{rounds: []bool{true}, mapErr: fmt.Errorf("creds: %w", domain.ErrMissingCredentials)}

	_, err := New(api, newClock(), testOptions()).AwaitStable(context.Background(), "https://abc", "events")
	if !errors.Is(err, domain.ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
	if api.heads != 1 {
		t.Errorf("expected a single round, got %d", api.heads)
	}
}

func TestExists(t *testing.T) {
	api := &mockProbes{rounds: []bool{true}}
	s := New(api, newClock(), testOptions())

	if !s.Exists(context.Background(), "https://abc", "events") {
		t.Error("expected index to exist on HEAD 200")
	}
}
