// Package index creates the vector index idempotently.
package index

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/aossindex/internal/clock"
	"github.com/kailas-cloud/aossindex/internal/dataplane"
	"github.com/kailas-cloud/aossindex/internal/domain"
	"github.com/kailas-cloud/aossindex/internal/logger"
	"github.com/kailas-cloud/aossindex/internal/metrics"
	"github.com/kailas-cloud/aossindex/internal/retry"
)

const (
	stage        = "create_index"
	excerptBytes = 512
)

// Outcome is the result of EnsureIndex.
type Outcome int

const (
	// Created means this call created the index.
	Created Outcome = iota + 1
	// AlreadyExists means the index was there already, or another actor won the race.
	AlreadyExists
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case AlreadyExists:
		return "already_exists"
	default:
		return "unknown"
	}
}

// Options tune the provisioner.
type Options struct {
	Policy retry.Policy
	// StrictConflict accepts a 400 only when the body carries an already-exists marker.
	StrictConflict bool
}

// Provisioner creates an index if it is absent.
type Provisioner struct {
	api     API
	clock   clock.Clock
	opts    Options
	metrics *metrics.Metrics
}

// New creates a Provisioner. m may be nil.
func New(api API, clk clock.Clock, opts Options, m *metrics.Metrics) *Provisioner {
	if opts.Policy.MaxAttempts <= 0 {
		opts.Policy.MaxAttempts = 15
	}
	return &Provisioner{api: api, clock: clk, opts: opts, metrics: m}
}

// EnsureIndex creates name with spec unless it already exists.
// A pre-existing index is accepted as-is; its schema is not compared.
func (p *Provisioner) EnsureIndex(ctx context.Context, endpoint, name string, spec domain.IndexSpec) (Outcome, error) {
	log := logger.FromContext(ctx).With(zap.String("stage", stage), zap.String("index", name))

	body, err := spec.Body()
	if err != nil {
		return 0, fmt.Errorf("render index schema: %w", err)
	}

	head := p.api.IndexExists(ctx, endpoint, name)
	if head.ConfigError() {
		return 0, fmt.Errorf("check index %s: %w", name, head.Err)
	}
	if head.OK() {
		log.Info("index already exists, skipping creation")
		return AlreadyExists, nil
	}

	b := p.opts.Policy.NewBackoff()
	maxAttempts := p.opts.Policy.MaxAttempts

	for attempt := 1; ; attempt++ {
		resp := p.api.CreateIndex(ctx, endpoint, name, body)
		log.Info("create index attempt",
			zap.Int("attempt", attempt),
			zap.Int("status", resp.Status),
			zap.String("body", logger.Excerpt(resp.Body, excerptBytes)),
			zap.Error(resp.Err),
		)

		if resp.ConfigError() {
			return 0, fmt.Errorf("create index %s: %w", name, resp.Err)
		}

		switch p.classify(resp) {
		case verdictCreated:
			return Created, nil
		case verdictExists:
			log.Info("index created concurrently or already present", zap.Int("status", resp.Status))
			return AlreadyExists, nil
		case verdictFatal:
			return 0, &ProvisionError{Index: name, Status: resp.Status, Body: resp.Body, Attempts: attempt}
		}

		if attempt >= maxAttempts {
			return 0, &ProvisionError{
				Index: name, Status: resp.Status, Body: resp.Body, Attempts: attempt, Exhausted: true, Err: resp.Err,
			}
		}

		delay := b.Next()
		log.Warn("create index not accepted yet, backing off",
			zap.Int("attempt", attempt), zap.Int("status", resp.Status), zap.Duration("delay", delay))
		p.metrics.ObserveRetry(stage)
		if err := p.clock.Sleep(ctx, delay); err != nil {
			return 0, fmt.Errorf("create index %s: %w", name, err)
		}
	}
}

type verdict int

const (
	verdictRetry verdict = iota
	verdictCreated
	verdictExists
	verdictFatal
)

func (p *Provisioner) classify(resp dataplane.Response) verdict {
	if resp.TransportFailed() || resp.ServerError() {
		return verdictRetry
	}
	switch resp.Status {
	case http.StatusOK, http.StatusCreated:
		return verdictCreated
	case http.StatusConflict:
		return verdictExists
	case http.StatusBadRequest:
		if !p.opts.StrictConflict || alreadyExists(resp.Body) {
			return verdictExists
		}
		return verdictFatal
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusTooManyRequests:
		return verdictRetry
	default:
		return verdictFatal
	}
}

var alreadyExistsMarkers = [][]byte{
	[]byte("resource_already_exists_exception"),
	[]byte("already exists"),
}

func alreadyExists(body []byte) bool {
	lower := bytes.ToLower(body)
	for _, m := range alreadyExistsMarkers {
		if bytes.Contains(lower, m) {
			return true
		}
	}
	return false
}
