// Package metrics holds the Prometheus collectors of the reconciler, the data-plane client
// and the retrieval endpoint.
package metrics

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "aossindex"

// Metrics is a set of collectors bound to one registerer.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	reconcileTotal    *prometheus.CounterVec
	reconcileDuration *prometheus.HistogramVec
	dataplaneRequests *prometheus.CounterVec
	retries           *prometheus.CounterVec
	retrievalRequests *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	httpRequests      *prometheus.CounterVec
}

// New creates the collectors and registers them on reg, reusing collectors already registered.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		reconcileTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_total",
			Help:      "Reconciliation invocations by request type and outcome.",
		}, []string{"request_type", "status"}),
		reconcileDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_duration_seconds",
			Help:      "Reconciliation duration in seconds.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 900},
		}, []string{"request_type"}),
		dataplaneRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataplane_requests_total",
			Help:      "Signed data-plane requests by operation and HTTP status (0 = transport error).",
		}, []string{"op", "status"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Retries by reconciliation stage.",
		}, []string{"stage"}),
		retrievalRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_requests_total",
			Help:      "Retrieval queries by response status.",
		}, []string{"status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "path", "status"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
	}

	if err := errors.Join(
		registerOrReuse(reg, &m.reconcileTotal),
		registerOrReuse(reg, &m.reconcileDuration),
		registerOrReuse(reg, &m.dataplaneRequests),
		registerOrReuse(reg, &m.retries),
		registerOrReuse(reg, &m.retrievalRequests),
		registerOrReuse(reg, &m.httpDuration),
		registerOrReuse(reg, &m.httpRequests),
	); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses an existing one.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("metrics: already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("metrics: register: %w", err)
	}
	return nil
}

// ObserveReconcile records one finished invocation.
func (m *Metrics) ObserveReconcile(requestType, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.reconcileTotal.WithLabelValues(requestType, status).Inc()
	m.reconcileDuration.WithLabelValues(requestType).Observe(d.Seconds())
}

// ObserveDataPlane records one signed request.
func (m *Metrics) ObserveDataPlane(op string, status int) {
	if m == nil {
		return
	}
	m.dataplaneRequests.WithLabelValues(op, strconv.Itoa(status)).Inc()
}

// ObserveRetry records one retry in the given stage.
func (m *Metrics) ObserveRetry(stage string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(stage).Inc()
}

// ObserveRetrieval records one retrieval response.
func (m *Metrics) ObserveRetrieval(status int) {
	if m == nil {
		return
	}
	m.retrievalRequests.WithLabelValues(strconv.Itoa(status)).Inc()
}
