// Package metrics holds the prometheus collectors of the server. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the application collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	batches         *prometheus.CounterVec
	entriesApplied  prometheus.Counter
	entriesChanged  prometheus.Counter
	snapshots       *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New registers all collectors, including the Go runtime and process ones
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "idit",
			Subsystem: "ledger",
			Name:      "batches_total",
			Help:      "Inventory batches submitted, by result.",
		}, []string{"result"}),
		entriesApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "idit",
			Subsystem: "ledger",
			Name:      "entries_applied_total",
			Help:      "Inventory entries written to current inventory.",
		}),
		entriesChanged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "idit",
			Subsystem: "ledger",
			Name:      "entries_changed_total",
			Help:      "Inventory entries that changed a quantity and were logged.",
		}),
		snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "idit",
			Subsystem: "ledger",
			Name:      "snapshots_total",
			Help:      "Snapshots taken, by source.",
		}, []string{"source"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "idit",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route template.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.batches,
		m.entriesApplied,
		m.entriesChanged,
		m.snapshots,
		m.requestDuration,
	)
	return m
}

// Handler serves the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveBatch records one ledger submission
func (m *Metrics) ObserveBatch(applied, changed int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.batches.WithLabelValues("error").Inc()
		return
	}
	m.batches.WithLabelValues("ok").Inc()
	m.entriesApplied.Add(float64(applied))
	m.entriesChanged.Add(float64(changed))
}

// ObserveSnapshot records one snapshot
func (m *Metrics) ObserveSnapshot(source string) {
	if m == nil {
		return
	}
	m.snapshots.WithLabelValues(source).Inc()
}

// ObserveRequest records the latency of one HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
