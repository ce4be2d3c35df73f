package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// History metrics
	HistoryOps      *prometheus.CounterVec
	HistoryDuration *prometheus.HistogramVec
	HistoryLength   prometheus.Histogram

	// Session and snapshot metrics
	ActiveSessions  prometheus.Gauge
	SnapshotImports *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		HistoryOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "history_operations_total",
				Help:      "Entries applied or reverted, by phase, kind and outcome",
			},
			[]string{"phase", "kind", "status"},
		),
		HistoryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "history_apply_duration_seconds",
				Help:      "Time spent applying or reverting an entry",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
			},
			[]string{"phase"},
		),
		HistoryLength: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "history_length",
				Help:      "History length observed after each stack operation",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 75, 100},
			},
		),
		ActiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_sessions",
				Help:      "Number of open editor sessions",
			},
		),
		SnapshotImports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshot_imports_total",
				Help:      "Snapshot imports by source version and outcome",
			},
			[]string{"from_version", "status"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.HistoryOps,
		c.HistoryDuration,
		c.HistoryLength,
		c.ActiveSessions,
		c.SnapshotImports,
	)
	return c
}

// ObserveApply records one apply or revert of an entry
func (c *Collector) ObserveApply(phase, kind string, duration time.Duration, err error) {
	c.HistoryOps.WithLabelValues(phase, kind, outcome(err)).Inc()
	c.HistoryDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

// ObserveStack records the history length after a stack operation
func (c *Collector) ObserveStack(op string, length, index int) {
	c.HistoryLength.Observe(float64(length))
}

// SetActiveSessions sets the open session gauge
func (c *Collector) SetActiveSessions(n int) {
	c.ActiveSessions.Set(float64(n))
}

// ObserveImport records a snapshot import. fromVersion is 0 when the
// document could not be read far enough to know it.
func (c *Collector) ObserveImport(fromVersion int, err error) {
	c.SnapshotImports.WithLabelValues(strconv.Itoa(fromVersion), outcome(err)).Inc()
}

// ObserveHTTP records a served request
func (c *Collector) ObserveHTTP(method, route string, status int, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
