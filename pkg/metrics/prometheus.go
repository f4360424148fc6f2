// Package metrics provides Prometheus metrics for the rating engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the rating service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Vote ledger metrics
	votesRecorded prometheus.Counter
	votesUpdated  prometheus.Counter
	votesRejected *prometheus.CounterVec

	// Event lifecycle metrics
	eventsOpened     prometheus.Counter
	eventsSummarized prometheus.Counter
	eventsTotal      prometheus.Gauge

	// Store metrics
	persistDuration prometheus.Histogram
	persistErrors   prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "tally",
		subsystem:        "rating",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.votesRecorded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "votes_recorded_total",
		Help:      "Total number of first-time votes accepted",
	})

	m.votesUpdated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "votes_updated_total",
		Help:      "Total number of vote revisions accepted",
	})

	m.votesRejected = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "votes_rejected_total",
			Help:      "Total number of rejected votes by reason",
		},
		[]string{"reason"},
	)

	m.eventsOpened = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_opened_total",
		Help:      "Total number of rating events opened",
	})

	m.eventsSummarized = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_summarized_total",
		Help:      "Total number of event summaries produced",
	})

	m.eventsTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_total",
		Help:      "Total number of events held in the store",
	})

	m.persistDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "persist_duration_milliseconds",
		Help:      "Histogram of durable write latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.persistErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "persist_errors_total",
		Help:      "Total number of failed durable writes",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)
}

// RecordVoteRecorded increments the first-time vote counter.
func RecordVoteRecorded() {
	globalManager.votesRecorded.Inc()
}

// RecordVoteUpdated increments the vote revision counter.
func RecordVoteUpdated() {
	globalManager.votesUpdated.Inc()
}

// RecordVoteRejected increments the rejected vote counter for a reason.
func RecordVoteRejected(reason string) {
	globalManager.votesRejected.WithLabelValues(reason).Inc()
}

// RecordEventOpened increments the opened events counter.
func RecordEventOpened() {
	globalManager.eventsOpened.Inc()
}

// RecordEventSummarized increments the summarized events counter.
func RecordEventSummarized() {
	globalManager.eventsSummarized.Inc()
}

// UpdateEventsTotal sets the total number of stored events.
func UpdateEventsTotal(count int) {
	globalManager.eventsTotal.Set(float64(count))
}

// RecordPersistDuration records durable write latency in milliseconds.
func RecordPersistDuration(latencyMs float64) {
	globalManager.persistDuration.Observe(latencyMs)
}

// RecordPersistError increments the failed durable write counter.
func RecordPersistError() {
	globalManager.persistErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// GetRegistry returns the custom registry used by the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
