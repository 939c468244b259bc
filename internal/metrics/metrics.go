package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for studyplan
type Metrics struct {
	// API client metrics
	APIRequests *prometheus.CounterVec
	APILatency  *prometheus.HistogramVec
	APILogouts  prometheus.Counter

	// Stream metrics
	StreamEvents        *prometheus.CounterVec
	StreamFramesDropped *prometheus.CounterVec
	StreamOutcomes      *prometheus.CounterVec
	StreamDuration      *prometheus.HistogramVec

	// Interview metrics
	InterviewRounds *prometheus.CounterVec

	// Roadmap cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// Mock backend metrics
	MockRequests *prometheus.CounterVec

	// Error metrics (by error code from structured errors)
	Errors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		APIRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studyplan_api_requests_total",
				Help: "Total number of backend API requests",
			},
			[]string{"method", "route", "status"},
		),
		APILatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "studyplan_api_latency_seconds",
				Help:    "Backend API request latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "route"},
		),
		APILogouts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "studyplan_api_forced_logouts_total",
				Help: "Total number of sessions cleared after a 401 response",
			},
		),

		StreamEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studyplan_stream_events_total",
				Help: "Total number of stream events received",
			},
			[]string{"stream", "type"},
		),
		StreamFramesDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studyplan_stream_frames_dropped_total",
				Help: "Total number of stream frames dropped as undecodable",
			},
			[]string{"stream"},
		),
		StreamOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studyplan_stream_outcomes_total",
				Help: "Total number of finished streams by final status",
			},
			[]string{"stream", "status"},
		),
		StreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "studyplan_stream_duration_seconds",
				Help:    "Stream duration in seconds",
				Buckets: []float64{1.0, 5.0, 10.0, 30.0, 60.0, 120.0, 300.0},
			},
			[]string{"stream"},
		),

		InterviewRounds: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studyplan_interview_rounds_total",
				Help: "Total number of submitted interview rounds",
			},
			[]string{"outcome"},
		),

		CacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studyplan_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache"},
		),
		CacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studyplan_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache"},
		),

		MockRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studyplan_mock_requests_total",
				Help: "Total number of requests served by the mock backend",
			},
			[]string{"method", "route"},
		),

		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studyplan_errors_total",
				Help: "Total number of errors by error code",
			},
			[]string{"error_code", "component"},
		),
	}
}

// ObserveRequest records one finished API request.
func (m *Metrics) ObserveRequest(method, route, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.APIRequests.WithLabelValues(method, route, status).Inc()
	m.APILatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveStream records the outcome of one finished stream.
func (m *Metrics) ObserveStream(stream, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.StreamOutcomes.WithLabelValues(stream, status).Inc()
	m.StreamDuration.WithLabelValues(stream).Observe(elapsed.Seconds())
}

// RecordError counts err under its structured code, or "unknown".
func (m *Metrics) RecordError(code, component string) {
	if m == nil {
		return
	}
	if code == "" {
		code = "unknown"
	}
	m.Errors.WithLabelValues(code, component).Inc()
}
