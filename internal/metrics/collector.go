// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector bundles the Prometheus instruments for the HTTP surface and
// the run supervisor.
type Collector struct {
	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Run metrics
	runsStarted   prometheus.Counter
	runsCompleted prometheus.Counter
	runsFailed    prometheus.Counter
	runsEvicted   prometheus.Counter
	runDuration   prometheus.Histogram

	// Event distribution metrics
	eventsEmitted   *prometheus.CounterVec
	subscribersLive prometheus.Gauge

	logger *zap.Logger
}

// NewCollector creates a collector registered under the given namespace.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.runsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_started_total",
		Help:      "Total number of graph runs started",
	})

	c.runsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_completed_total",
		Help:      "Total number of graph runs that completed",
	})

	c.runsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_failed_total",
		Help:      "Total number of graph runs that failed",
	})

	c.runsEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_evicted_total",
		Help:      "Total number of terminal run records evicted by retention",
	})

	c.runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Graph run duration in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	})

	c.eventsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_emitted_total",
			Help:      "Total number of run events appended to run logs",
		},
		[]string{"type"},
	)

	c.subscribersLive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "subscribers_live",
		Help:      "Number of currently attached event subscribers",
	})

	return c
}

// RecordHTTPRequest records one handled HTTP request.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, httpStatusLabel(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordRunStarted counts a launched run.
func (c *Collector) RecordRunStarted() {
	c.runsStarted.Inc()
}

// RecordRunCompleted counts a completed run and its duration.
func (c *Collector) RecordRunCompleted(duration time.Duration) {
	c.runsCompleted.Inc()
	c.runDuration.Observe(duration.Seconds())
}

// RecordRunFailed counts a failed run.
func (c *Collector) RecordRunFailed() {
	c.runsFailed.Inc()
}

// RecordRunEvicted counts a record removed by the retention janitor.
func (c *Collector) RecordRunEvicted() {
	c.runsEvicted.Inc()
}

// RecordEventEmitted counts one event appended to a run log.
func (c *Collector) RecordEventEmitted(eventType string) {
	c.eventsEmitted.WithLabelValues(eventType).Inc()
}

// RecordSubscriberAttached tracks a new live subscriber.
func (c *Collector) RecordSubscriberAttached() {
	c.subscribersLive.Inc()
}

// RecordSubscriberDetached tracks a removed subscriber.
func (c *Collector) RecordSubscriberDetached() {
	c.subscribersLive.Dec()
}

func httpStatusLabel(status int) string {
	switch {
	case status < 200:
		return "1xx"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
