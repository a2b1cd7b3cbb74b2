// Package metrics exposes Prometheus instruments for exports and sessions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "memopack"

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeEmpty   = "empty"
	OutcomeError   = "error"
)

// Metrics owns a private registry so tests and multiple servers never
// collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	exportsTotal       *prometheus.CounterVec
	exportDuration     *prometheus.HistogramVec
	archiveBytes       *prometheus.HistogramVec
	imagesDeduplicated prometheus.Counter
	sessionsActive     prometheus.Gauge
}

// New creates the instruments and registers them with a fresh registry,
// alongside the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		exportsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "export_total",
				Help:      "Export attempts by mode and outcome.",
			},
			[]string{"mode", "outcome"},
		),
		exportDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "export_duration_seconds",
				Help:      "Time spent assembling an archive.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"mode"},
		),
		archiveBytes: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "archive_bytes",
				Help:      "Size of produced archives.",
				Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
			},
			[]string{"mode"},
		),
		imagesDeduplicated: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "images_deduplicated_total",
				Help:      "Attached images skipped because an earlier file had the same name.",
			},
		),
		sessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sessions_active",
				Help:      "Collector sessions currently held in memory.",
			},
		),
	}
}

// ObserveExport records one finished export attempt. size and
// deduplicated are only recorded for successful exports.
func (m *Metrics) ObserveExport(mode, outcome string, elapsed time.Duration, size int64, deduplicated int) {
	m.exportsTotal.WithLabelValues(mode, outcome).Inc()
	m.exportDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
	if outcome != OutcomeSuccess {
		return
	}
	m.archiveBytes.WithLabelValues(mode).Observe(float64(size))
	m.imagesDeduplicated.Add(float64(deduplicated))
}

// SetSessionsActive reports the current number of sessions.
func (m *Metrics) SetSessionsActive(n int) {
	m.sessionsActive.Set(float64(n))
}

// Registry returns the registry the instruments are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
