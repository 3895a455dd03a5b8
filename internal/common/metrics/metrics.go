// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of jobs currently being handled per worker",
		},
		[]string{"task_type"},
	)

	RankingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matching_ranking_duration_seconds",
			Help:    "Time to load candidates, annotate slots and rank them",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	CandidatesEvaluated = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "matching_candidates",
			Help:    "Candidates per ranking request, before and after eligibility filtering",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
		[]string{"stage"},
	)

	VerificationCodes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_codes_total",
			Help: "Verification codes issued and checked by channel and result",
		},
		[]string{"channel", "result"},
	)

	ConversionsUploaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ads_conversions_uploaded_total",
			Help: "Conversion uploads to the advertising platform",
		},
		[]string{"status"},
	)

	BookingSlotLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_slot_lookups_total",
			Help: "Intro slot lookups against the booking platform",
		},
		[]string{"source"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route and status class",
		},
		[]string{"route", "status"},
	)
)
