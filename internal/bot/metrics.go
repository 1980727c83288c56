package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeCompleted = "completed"
	outcomeFailed    = "failed"
	outcomeRejected  = "rejected"
)

var (
	generationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagebot_generations_total",
			Help: "Total number of prompts handled by outcome.",
		},
		[]string{"status"}, // completed, failed, rejected
	)
	generationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "imagebot_generation_duration_seconds",
		Help:    "Duration of the generate-and-deliver pipeline.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 8),
	})
	bookkeepingErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "imagebot_bookkeeping_errors_total",
		Help: "Total number of store or event publishing failures that did not affect the user reply.",
	})
)
