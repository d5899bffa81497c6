// Package stabilize waits until a freshly created index is consistently
// visible on every read path before it is reported as ready.
package stabilize

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/aossindex/internal/clock"
	"github.com/kailas-cloud/aossindex/internal/dataplane"
	"github.com/kailas-cloud/aossindex/internal/domain"
	"github.com/kailas-cloud/aossindex/internal/logger"
)

const (
	stage        = "stabilize"
	excerptBytes = 512
)

// TimeoutPolicy decides what a stabilization timeout means.
type TimeoutPolicy string

const (
	// TimeoutFail turns a timeout into domain.ErrNotStable.
	TimeoutFail TimeoutPolicy = "fail"
	// TimeoutProceed reports an unstable Report and no error.
	TimeoutProceed TimeoutPolicy = "proceed"
)

// Options configure the stabilizer.
type Options struct {
	Interval            time.Duration
	RequiredConsecutive int
	MaxWait             time.Duration
	Settle              time.Duration
	QueryProbe          bool
	OnTimeout           TimeoutPolicy
}

// Report summarizes one AwaitStable run.
type Report struct {
	Stable      bool
	Rounds      int
	Consecutive int
	Elapsed     time.Duration
}

// Stabilizer polls existence, mapping and (optionally) an empty search.
type Stabilizer struct {
	api   ProbeAPI
	clock clock.Clock
	opts  Options
}

// New creates a Stabilizer.
func New(api ProbeAPI, clk clock.Clock, opts Options) *Stabilizer {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.RequiredConsecutive <= 0 {
		opts.RequiredConsecutive = 3
	}
	if opts.OnTimeout == "" {
		opts.OnTimeout = TimeoutFail
	}
	return &Stabilizer{api: api, clock: clk, opts: opts}
}

// Exists is the single existence probe used before deciding to create.
func (s *Stabilizer) Exists(ctx context.Context, endpoint, index string) bool {
	resp := s.api.IndexExists(ctx, endpoint, index)
	logger.FromContext(ctx).Info("index existence probe",
		zap.String("index", index),
		zap.Int("status", resp.Status),
		zap.Error(resp.Err),
	)
	return resp.OK()
}

// AwaitStable returns once RequiredConsecutive rounds in a row succeeded and
// the settle delay has passed. A failed round resets the count to zero.
func (s *Stabilizer) AwaitStable(ctx context.Context, endpoint, index string) (Report, error) {
	log := logger.FromContext(ctx).With(zap.String("stage", stage), zap.String("index", index))

	start := s.clock.Now()
	deadline := start.Add(s.opts.MaxWait)
	var rep Report

	for {
		rep.Rounds++
		ok, err := s.round(ctx, log, endpoint, index, rep.Rounds)
		if err != nil {
			return rep, err
		}
		if ok {
			rep.Consecutive++
		} else {
			rep.Consecutive = 0
		}
		log.Info("stabilization round",
			zap.Int("round", rep.Rounds),
			zap.Bool("ok", ok),
			zap.Int("consecutive", rep.Consecutive),
			zap.Int("required", s.opts.RequiredConsecutive),
		)

		if rep.Consecutive >= s.opts.RequiredConsecutive {
			if s.opts.Settle > 0 {
				log.Info("index visible, settling", zap.Duration("settle", s.opts.Settle))
				if err := s.clock.Sleep(ctx, s.opts.Settle); err != nil {
					return rep, fmt.Errorf("settle index %s: %w", index, err)
				}
			}
			rep.Stable = true
			rep.Elapsed = s.clock.Now().Sub(start)
			return rep, nil
		}

		if !s.clock.Now().Before(deadline) {
			rep.Elapsed = s.clock.Now().Sub(start)
			return s.timedOut(log, index, rep)
		}
		if err := s.clock.Sleep(ctx, s.opts.Interval); err != nil {
			rep.Elapsed = s.clock.Now().Sub(start)
			return rep, fmt.Errorf("stabilize index %s: %w", index, err)
		}
	}
}

func (s *Stabilizer) timedOut(log *zap.Logger, index string, rep Report) (Report, error) {
	if s.opts.OnTimeout == TimeoutProceed {
		log.Warn("index visibility did not stabilize, proceeding",
			zap.Int("rounds", rep.Rounds), zap.Duration("elapsed", rep.Elapsed))
		return rep, nil
	}
	return rep, fmt.Errorf("index %s not stable after %s (%d rounds, %d consecutive ok of %d): %w",
		index, rep.Elapsed.Round(time.Second), rep.Rounds, rep.Consecutive, s.opts.RequiredConsecutive,
		domain.ErrNotStable)
}

type probe struct {
	op   string
	call func(ctx context.Context, endpoint, index string) dataplane.Response
}

// round runs every probe; the round passes only if all of them returned 200.
func (s *Stabilizer) round(ctx context.Context, log *zap.Logger, endpoint, index string, n int) (bool, error) {
	probes := []probe{
		{dataplane.OpIndexExists, s.api.IndexExists},
		{dataplane.OpMapping, s.api.Mapping},
	}
	if s.opts.QueryProbe {
		probes = append(probes, probe{dataplane.OpEmptySearch, s.api.EmptySearch})
	}

	ok := true
	for _, p := range probes {
		resp := p.call(ctx, endpoint, index)
		if resp.ConfigError() {
			return false, fmt.Errorf("stabilize index %s: %w", index, resp.Err)
		}
		if !resp.OK() {
			ok = false
			log.Info("stabilization probe failed",
				zap.Int("round", n),
				zap.String("op", p.op),
				zap.Int("status", resp.Status),
				zap.String("body", logger.Excerpt(resp.Body, excerptBytes)),
				zap.Error(resp.Err),
			)
		}
	}
	return ok, nil
}
