// Package metrics provides Prometheus-based metrics collection for zmapd.
// It tracks scan outcomes, engine invocation behavior, and API request
// activity for monitoring integration.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// Namespace for all zmapd metrics
	namespace = "zmapd"

	// Subsystems
	subsystemScan   = "scan"
	subsystemEngine = "engine"
	subsystemAPI    = "api"
)

// Metrics holds all Prometheus metric collectors.
type Metrics struct {
	// Scan metrics
	scansTotal    *prometheus.CounterVec
	scanDuration  prometheus.Histogram
	targetsFound  prometheus.Counter
	activeScans   prometheus.Gauge

	// Engine metrics
	invocationsTotal *prometheus.CounterVec
	engineErrors     *prometheus.CounterVec

	// API metrics
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates a new metrics instance with all collectors registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		scansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystemScan,
				Name:      "total",
				Help:      "Total number of scans performed by status",
			},
			[]string{"status"},
		),
		scanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystemScan,
				Name:      "duration_seconds",
				Help:      "Duration of scan invocations in seconds",
				Buckets:   []float64{0.1, 0.5, 1.0, 5.0, 10.0, 30.0, 60.0, 300.0, 600.0, 3600.0},
			},
		),
		targetsFound: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystemScan,
				Name:      "targets_found_total",
				Help:      "Total number of discovered targets across all scans",
			},
		),
		activeScans: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystemScan,
				Name:      "active",
				Help:      "Number of currently running scans",
			},
		),
		invocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystemEngine,
				Name:      "invocations_total",
				Help:      "Total number of engine invocations by mode",
			},
			[]string{"mode"},
		),
		engineErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystemEngine,
				Name:      "errors_total",
				Help:      "Total number of engine invocation errors by error code",
			},
			[]string{"code"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystemAPI,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by method and status",
			},
			[]string{"method", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystemAPI,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.scansTotal,
		m.scanDuration,
		m.targetsFound,
		m.activeScans,
		m.invocationsTotal,
		m.engineErrors,
		m.httpRequests,
		m.httpDuration,
	)

	// Standard Go and process collectors for runtime visibility
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Handler returns an HTTP handler serving the metrics in Prometheus format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ScanStarted marks a scan as running.
func (m *Metrics) ScanStarted() {
	m.activeScans.Inc()
}

// ScanFinished records the outcome of a completed scan.
func (m *Metrics) ScanFinished(status string, duration time.Duration, targets int) {
	m.activeScans.Dec()
	m.scansTotal.WithLabelValues(status).Inc()
	m.scanDuration.Observe(duration.Seconds())
	m.targetsFound.Add(float64(targets))
}

// EngineInvocation records an engine invocation by mode
// (scan, probe-modules, output-modules, output-fields, version).
func (m *Metrics) EngineInvocation(mode string) {
	m.invocationsTotal.WithLabelValues(mode).Inc()
}

// EngineError records an engine invocation error by error code.
func (m *Metrics) EngineError(code string) {
	m.engineErrors.WithLabelValues(code).Inc()
}

// HTTPRequest records a served HTTP request.
func (m *Metrics) HTTPRequest(method, status string, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, status).Inc()
	m.httpDuration.WithLabelValues(method).Observe(duration.Seconds())
}
