// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AssignmentsTotal counts daily-assignment requests by outcome
	// (assigned, already_assigned, none_available, error).
	AssignmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nightpost_assignments_total",
			Help: "Daily assignment requests by outcome",
		},
		[]string{"outcome"},
	)

	// AssignmentLockRetries counts claim transactions retried after a
	// lock-wait timeout.
	AssignmentLockRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nightpost_assignment_lock_retries_total",
			Help: "Claim transactions retried after a lock-wait timeout",
		},
	)

	// LettersDeliveredTotal counts created threads by status.
	LettersDeliveredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nightpost_letters_delivered_total",
			Help: "Created letter threads by status",
		},
		[]string{"status"},
	)

	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nightpost_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path", "status"},
	)
)
