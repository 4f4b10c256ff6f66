// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MemberValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "member_validations_total",
			Help: "Total number of per-member validations by outcome",
		},
		[]string{"outcome"},
	)

	JobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validation_jobs_total",
			Help: "Total number of validation jobs by terminal state",
		},
		[]string{"state"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "validation_job_duration_seconds",
			Help: "Duration of validation jobs in seconds",
		},
		[]string{"state"},
	)

	DirectoryCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_calls_total",
			Help: "Total number of directory calls by operation and result",
		},
		[]string{"operation", "result"},
	)

	TokenRefreshes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "directory_token_refreshes_total",
			Help: "Total number of directory token refresh attempts",
		},
	)

	JobsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "validation_jobs_active",
			Help: "Number of validation jobs currently running",
		},
	)
)
