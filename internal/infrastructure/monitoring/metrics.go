package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "onboard"

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing, so components can take metrics as an optional dependency.
type Metrics struct {
	Registry *prometheus.Registry

	// HTTP metrics (dev server)
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Client metrics
	ClientCalls    *prometheus.CounterVec
	ClientDuration *prometheus.HistogramVec

	// Session metrics
	Resolutions     *prometheus.CounterVec
	Transitions     *prometheus.CounterVec
	CacheLookups    *prometheus.CounterVec
	CacheWriteFails prometheus.Counter
	Completions     *prometheus.CounterVec

	// Event metrics
	EventsSent    prometheus.Counter
	EventsDropped prometheus.Counter
	EventsFailed  prometheus.Counter

	// Decoder metrics
	DecodeDegradations *prometheus.CounterVec

	// Dev server assignment metrics
	Assignments *prometheus.CounterVec
}

// NewMetrics registers every metric on a fresh registry
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.NewRegistry())
}

// NewMetricsWith registers every metric on reg
func NewMetricsWith(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,

		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests served",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"method", "route"},
		),

		ClientCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "client_calls_total",
				Help:      "Calls made to the resolution backend",
			},
			[]string{"operation", "outcome"},
		),
		ClientDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "client_call_duration_seconds",
				Help:      "Resolution backend call duration in seconds",
				Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"operation"},
		),

		Resolutions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolutions_total",
				Help:      "Placement resolutions by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		Transitions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_transitions_total",
				Help:      "Session controller state transitions",
			},
			[]string{"from", "to"},
		),
		CacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Local flow cache lookups",
			},
			[]string{"result"},
		),
		CacheWriteFails: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_write_failures_total",
				Help:      "Local cache writes that failed and were ignored",
			},
		),
		Completions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "completions_total",
				Help:      "Flow completions by remote recording outcome",
			},
			[]string{"outcome"},
		),

		EventsSent: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_sent_total",
				Help:      "Analytics events delivered",
			},
		),
		EventsDropped: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_dropped_total",
				Help:      "Analytics events dropped because the queue was full or closed",
			},
		),
		EventsFailed: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_failed_total",
				Help:      "Analytics events the backend rejected or never received",
			},
		),

		DecodeDegradations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decode_degradations_total",
				Help:      "Fields or elements degraded while decoding flow documents",
			},
			[]string{"placement"},
		),

		Assignments: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "assignments_total",
				Help:      "Dev server variant assignments",
			},
			[]string{"campaign", "variant"},
		),
	}
}

// RecordHTTPRequest records a served HTTP request
func (m *Metrics) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, route, status).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordClientCall records one backend call
func (m *Metrics) RecordClientCall(operation, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ClientCalls.WithLabelValues(operation, outcome).Inc()
	m.ClientDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordResolution records where a resolution came from and how it ended
func (m *Metrics) RecordResolution(source, outcome string) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(source, outcome).Inc()
}

// RecordTransition records a session state change
func (m *Metrics) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(from, to).Inc()
}

// RecordCacheLookup records a hit or miss
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// IncCacheWriteFailures counts a swallowed cache write error
func (m *Metrics) IncCacheWriteFailures() {
	if m == nil {
		return
	}
	m.CacheWriteFails.Inc()
}

// RecordCompletion records whether the remote completion record succeeded
func (m *Metrics) RecordCompletion(outcome string) {
	if m == nil {
		return
	}
	m.Completions.WithLabelValues(outcome).Inc()
}

// IncEventsSent counts a delivered event
func (m *Metrics) IncEventsSent() {
	if m == nil {
		return
	}
	m.EventsSent.Inc()
}

// IncEventsDropped counts an event that never left the queue
func (m *Metrics) IncEventsDropped() {
	if m == nil {
		return
	}
	m.EventsDropped.Inc()
}

// IncEventsFailed counts an event that failed to deliver
func (m *Metrics) IncEventsFailed() {
	if m == nil {
		return
	}
	m.EventsFailed.Inc()
}

// AddDecodeDegradations counts diagnostics from one decoded document
func (m *Metrics) AddDecodeDegradations(placement string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DecodeDegradations.WithLabelValues(placement).Add(float64(n))
}

// RecordAssignment counts a dev server variant assignment
func (m *Metrics) RecordAssignment(campaign, variant string) {
	if m == nil {
		return
	}
	m.Assignments.WithLabelValues(campaign, variant).Inc()
}
