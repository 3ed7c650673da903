package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storybook_ai_requests_total",
			Help: "Total number of AI backend requests by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storybook_ai_request_duration_seconds",
			Help:    "Duration of AI backend requests in seconds.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
		[]string{"operation"},
	)

	storageUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storybook_storage_uploads_total",
			Help: "Total number of asset uploads by outcome.",
		},
		[]string{"outcome"},
	)

	storageUploadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "storybook_storage_upload_duration_seconds",
			Help:    "Duration of asset uploads in seconds.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
)

const (
	outcomeSuccess = "success"
	outcomeError   = "error"
)

func outcomeLabel(err error) string {
	if err != nil {
		return outcomeError
	}
	return outcomeSuccess
}
