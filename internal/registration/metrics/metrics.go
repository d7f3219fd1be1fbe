package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AttemptsTotal tracks registration attempts per strategy and outcome
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registrar_attempts_total",
			Help: "Total number of registration attempts",
		},
		[]string{"strategy", "outcome"},
	)

	// FailuresTotal tracks failed attempts per strategy and error category
	FailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registrar_failures_total",
			Help: "Total number of failed registration attempts",
		},
		[]string{"strategy", "category"},
	)

	// SafetyViolationsTotal tracks payment-guard trips. Any non-zero value
	// deserves a look.
	SafetyViolationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registrar_safety_violations_total",
			Help: "Total number of payment safety guard trips",
		},
		[]string{"strategy", "kind"},
	)

	// AttemptDuration tracks wall time of complete registration attempts
	AttemptDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "registrar_attempt_duration_seconds",
			Help:    "Registration attempt duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
		[]string{"strategy"},
	)

	// OpenPages tracks currently open browser page sessions. A steadily
	// climbing value means a leak.
	OpenPages = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registrar_open_pages",
			Help: "Number of currently open browser page sessions",
		},
	)

	// EventsProcessed tracks batch processing totals per final status
	EventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registrar_events_processed_total",
			Help: "Total number of events processed by batch runs",
		},
		[]string{"status"},
	)
)
