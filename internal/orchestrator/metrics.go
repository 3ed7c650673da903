package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storybook_generation_runs_total",
			Help: "Total number of generation runs by kind (start/resume) and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "storybook_generation_run_duration_seconds",
			Help:    "Wall-clock duration of generation runs in seconds.",
			Buckets: []float64{10, 30, 60, 120, 300, 600, 1200, 1800},
		},
	)

	pagesCompletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storybook_pages_completed_total",
			Help: "Total number of pages whose assets were generated and checkpointed.",
		},
	)

	creditsDebitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storybook_credits_debited_total",
			Help: "Total credits debited for generation runs.",
		},
	)
)

const (
	outcomeCompleted = "completed"
	outcomeResumable = "resumable"
	outcomeRejected  = "rejected"
	outcomeFailed    = "failed"
)
