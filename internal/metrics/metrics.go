// Package metrics provides Prometheus metrics for the session API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for realtime provider calls.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

var (
	// SessionTransitions counts session transitions by operation and result.
	SessionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairprep_session_transitions_total",
			Help: "Total number of session create/join/end attempts by result",
		},
		[]string{"operation", "result"},
	)

	// RealtimeCalls counts calls to the video/chat providers.
	RealtimeCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairprep_realtime_calls_total",
			Help: "Total number of realtime provider calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// RealtimeCallDuration tracks provider call latency including retries.
	RealtimeCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pairprep_realtime_call_duration_seconds",
			Help:    "Duration of realtime provider calls including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// BestEffortFailures counts swallowed provider failures (session create/join side effects).
	BestEffortFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairprep_realtime_best_effort_failures_total",
			Help: "Provider failures tolerated without failing the session transition",
		},
		[]string{"operation"},
	)

	// HTTPRequests counts HTTP requests by route and status.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairprep_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPDuration tracks HTTP request latency.
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pairprep_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// EventSubscribers tracks connected session event websocket clients.
	EventSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pairprep_event_subscribers",
			Help: "Number of connected session event feed clients",
		},
	)

	// JobsProcessed counts identity sync jobs by type and result.
	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairprep_jobs_processed_total",
			Help: "Identity sync jobs processed by type and result",
		},
		[]string{"type", "result"},
	)
)
