// Package retry provides bounded exponential backoff for the reconciliation loops.
package retry

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy describes a bounded exponential backoff schedule.
type Policy struct {
	Initial     time.Duration
	Multiplier  float64
	Max         time.Duration
	Jitter      float64 // randomization factor, 0 disables jitter
	MaxAttempts int
}

// Backoff yields delays that never decrease and never exceed Policy.Max.
// Jitter is applied by the underlying exponential schedule and the result
// is clamped to [previous delay, Max].
type Backoff struct {
	exp  *backoff.ExponentialBackOff
	max  time.Duration
	prev time.Duration
}

// NewBackoff starts a fresh schedule for p.
func (p Policy) NewBackoff() *Backoff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.Initial
	exp.Multiplier = p.Multiplier
	exp.MaxInterval = p.Max
	exp.RandomizationFactor = p.Jitter
	exp.Reset()
	return &Backoff{exp: exp, max: p.Max}
}

// Next returns the next delay.
func (b *Backoff) Next() time.Duration {
	d := b.exp.NextBackOff()
	if d == backoff.Stop || d > b.max {
		d = b.max
	}
	if d < b.prev {
		d = b.prev
	}
	b.prev = d
	return d
}
