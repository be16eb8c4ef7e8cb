package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission outcomes
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeInvalid   = "invalid"
	OutcomeInFlight  = "in_flight"
	OutcomeClosed    = "closed"
)

var (
	attemptsMountedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resetpass_attempts_mounted_total",
			Help: "Reset pages opened, by whether the link carried both parameters",
		},
		[]string{"result"},
	)

	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resetpass_submissions_total",
			Help: "Reset form submissions by outcome",
		},
		[]string{"outcome"},
	)

	validationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resetpass_validation_failures_total",
			Help: "Submissions rejected before calling the recovery service",
		},
		[]string{"reason"},
	)

	recoveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resetpass_recovery_duration_seconds",
			Help:    "Duration of calls to the account recovery service",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"outcome"},
	)
)

// RecordMount counts a page load.
func RecordMount(hasLink bool) {
	result := "ok"
	if !hasLink {
		result = "missing_link"
	}
	attemptsMountedTotal.WithLabelValues(result).Inc()
}

// RecordSubmission counts a submit by outcome.
func RecordSubmission(outcome string) {
	submissionsTotal.WithLabelValues(outcome).Inc()
}

// RecordValidationFailure counts a locally rejected submit.
func RecordValidationFailure(reason string) {
	validationFailuresTotal.WithLabelValues(reason).Inc()
}

// ObserveRecovery records the duration of one recovery call.
func ObserveRecovery(outcome string, d time.Duration) {
	recoveryDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
