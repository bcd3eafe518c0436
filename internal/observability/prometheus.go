// Package observability provides Prometheus metrics for the retention workflow.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// namespace is the Prometheus metric namespace prefix for all metrics.
	namespace = "nas_snapsentry"
)

// Metrics holds all Prometheus metrics of the retention workflow.
// A nil *Metrics is valid and records nothing, which is what one-shot runs use.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal   *prometheus.CounterVec
	runDuration prometheus.Histogram

	decisionsTotal     *prometheus.CounterVec
	shareFailuresTotal *prometheus.CounterVec

	snapshotsCreatedTotal prometheus.Counter
	snapshotsDeletedTotal prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered on a
// private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of retention runs by outcome",
			},
			[]string{"status"},
		),

		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of retention runs in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),

		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decisions_total",
				Help:      "Total number of retention decisions by action",
			},
			[]string{"action"},
		),

		shareFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "share_failures_total",
				Help:      "Total number of per-share failures by kind",
			},
			[]string{"kind"},
		),

		snapshotsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_created_total",
			Help:      "Total number of snapshot create requests accepted",
		}),

		snapshotsDeletedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_deleted_total",
			Help:      "Total number of snapshot delete requests accepted",
		}),
	}

	reg.MustRegister(
		m.runsTotal,
		m.runDuration,
		m.decisionsTotal,
		m.shareFailuresTotal,
		m.snapshotsCreatedTotal,
		m.snapshotsDeletedTotal,
	)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// RecordRun records a completed run. A run fails only when shared setup fails.
func (m *Metrics) RecordRun(err error, duration time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.runsTotal.WithLabelValues(status).Inc()
	m.runDuration.Observe(duration.Seconds())
}

// RecordDecision records the engine's action for one share (create, delete, none).
func (m *Metrics) RecordDecision(action string) {
	if m == nil {
		return
	}
	m.decisionsTotal.WithLabelValues(action).Inc()
}

// RecordShareFailure records a per-share failure.
// kind should be one of: not_found, parse, http, other.
func (m *Metrics) RecordShareFailure(kind string) {
	if m == nil {
		return
	}
	m.shareFailuresTotal.WithLabelValues(kind).Inc()
}

// RecordSnapshotsCreated records accepted create requests.
func (m *Metrics) RecordSnapshotsCreated(n int) {
	if m == nil {
		return
	}
	m.snapshotsCreatedTotal.Add(float64(n))
}

// RecordSnapshotsDeleted records accepted delete requests.
func (m *Metrics) RecordSnapshotsDeleted(n int) {
	if m == nil {
		return
	}
	m.snapshotsDeletedTotal.Add(float64(n))
}
