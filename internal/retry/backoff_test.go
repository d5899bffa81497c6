package retry

import (
	"testing"
	"time"
)

func within(got, want, tol time.Duration) bool {
	d := got - want
	if d < 0 {
		d = -d
	}
	return d <= tol
}

func schedule(p Policy, n int) []time.Duration {
	b := p.NewBackoff()
	out := make([]time.Duration, n)
	for i := range out {
		out[i] = b.Next()
	}
	return out
}

func TestBackoff_NoJitter(t *testing.T) {
	p := Policy{Initial: time.Second, Multiplier: 1.6, Max: 12 * time.Second}
	got := schedule(p, 8)

	want := []time.Duration{
		1000 * time.Millisecond,
		1600 * time.Millisecond,
		2560 * time.Millisecond,
		4096 * time.Millisecond,
		6553600 * time.Microsecond,
		10485760 * time.Microsecond,
		12 * time.Second,
		12 * time.Second,
	}
	for i := range want {
		if !within(got[i], want[i], time.Millisecond) {
			t.Errorf("delay[%d]: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestBackoff_MonotonicAndCapped(t *testing.T) {
	policies := []Policy{
		{Initial: time.Second, Multiplier: 1.6, Max: 12 * time.Second},
		{Initial: time.Second, Multiplier: 1.6, Max: 10 * time.Second, Jitter: 0.1},
		{Initial: time.Second, Multiplier: 1.6, Max: 12 * time.Second, Jitter: 0.5},
		{Initial: 500 * time.Millisecond, Multiplier: 2, Max: 3 * time.Second, Jitter: 0.9},
	}

	for _, p := range policies {
		for run := 0; run < 50; run++ {
			delays := schedule(p, 20)
			for i, d := range delays {
				if d > p.Max {
					t.Fatalf("policy %+v: delay[%d]=%v exceeds cap", p, i, d)
				}
				if d <= 0 {
					t.Fatalf("policy %+v: delay[%d]=%v not positive", p, i, d)
				}
				if i > 0 && d < delays[i-1] {
					t.Fatalf("policy %+v: delay[%d]=%v < delay[%d]=%v", p, i, d, i-1, delays[i-1])
				}
			}
		}
	}
}

func TestBackoff_IndependentSchedules(t *testing.T) {
	p := Policy{Initial: time.Second, Multiplier: 1.6, Max: 12 * time.Second}

	a := p.NewBackoff()
	a.Next()
	a.Next()

	b := p.NewBackoff()
	if got := b.Next(); !within(got, time.Second, time.Millisecond) {
		t.Errorf("fresh schedule should start at initial, got %v", got)
	}
}
