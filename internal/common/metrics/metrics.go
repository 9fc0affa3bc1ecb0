package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VerificationsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_runs_total",
			Help: "Total number of verification runs by final disposition",
		},
		[]string{"final_status"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "verification_stage_duration_seconds",
			Help: "Duration of each verification stage in seconds",
		},
		[]string{"stage", "status"},
	)

	ProviderErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_provider_errors_total",
			Help: "Total number of provider transport/auth failures",
		},
		[]string{"provider", "error_code"},
	)

	ManualReviewQueue = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "verification_manual_review_total",
			Help: "Total number of runs flagged for human review",
		},
	)
)
