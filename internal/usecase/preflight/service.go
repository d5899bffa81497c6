// Package preflight absorbs IAM and data-access policy propagation delay
// before the first real data-plane call.
package preflight

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/aossindex/internal/clock"
	"github.com/kailas-cloud/aossindex/internal/dataplane"
	"github.com/kailas-cloud/aossindex/internal/logger"
	"github.com/kailas-cloud/aossindex/internal/metrics"
	"github.com/kailas-cloud/aossindex/internal/retry"
)

const stage = "preflight"

const excerptBytes = 512

// Preflight probes the endpoint root until access is granted or attempts run out.
type Preflight struct {
	api     RootProber
	clock   clock.Clock
	policy  retry.Policy
	metrics *metrics.Metrics
}

// New creates a Preflight. m may be nil.
func New(api RootProber, clk clock.Clock, policy retry.Policy, m *metrics.Metrics) *Preflight {
	return &Preflight{api: api, clock: clk, policy: policy, metrics: m}
}

// Probe never fails the caller. It only spends time: a 200 or a status that
// waiting cannot fix ends it early, exhaustion ends it silently, and the steps
// that follow surface any real access problem.
func (p *Preflight) Probe(ctx context.Context, endpoint string, maxAttempts int) {
	log := logger.FromContext(ctx).With(zap.String("stage", stage))
	if maxAttempts <= 0 {
		maxAttempts = p.policy.MaxAttempts
	}
	b := p.policy.NewBackoff()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp := p.api.Root(ctx, endpoint)
		fields := []zap.Field{
			zap.Int("attempt", attempt),
			zap.Int("status", resp.Status),
			zap.String("body", logger.Excerpt(resp.Body, excerptBytes)),
		}

		switch {
		case resp.ConfigError():
			log.Error("preflight aborted: no usable credentials", append(fields, zap.Error(resp.Err))...)
			return
		case resp.OK():
			log.Info("data-plane access confirmed", fields...)
			return
		case !retryable(resp):
			log.Info("preflight stopped on non-retryable status", fields...)
			return
		}

		if attempt == maxAttempts {
			log.Warn("preflight attempts exhausted, continuing", fields...)
			return
		}

		delay := b.Next()
		log.Info("data-plane access not ready, backing off",
			append(fields, zap.Duration("delay", delay), zap.Error(resp.Err))...)
		p.metrics.ObserveRetry(stage)
		if err := p.clock.Sleep(ctx, delay); err != nil {
			log.Warn("preflight interrupted", zap.Error(err))
			return
		}
	}
}

func retryable(resp dataplane.Response) bool {
	if resp.TransportFailed() || resp.ServerError() {
		return true
	}
	switch resp.Status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}
