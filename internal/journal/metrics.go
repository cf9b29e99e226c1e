package journal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scoresComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journal_scores_computed_total",
			Help: "Number of persisted per-trade score computations",
		},
		[]string{"kind"},
	)

	decisionScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "journal_decision_score",
			Help:    "Distribution of combined decision scores (0-100)",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		},
	)

	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "journal_operation_duration_seconds",
			Help:    "Duration of service operations including persistence",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	operationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journal_operation_errors_total",
			Help: "Number of failed service operations",
		},
		[]string{"operation"},
	)

	edgeConfidence = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "journal_strategy_edge_confidence",
			Help: "Most recent edge confidence per strategy (0-100)",
		},
		[]string{"strategy"},
	)

	summariesComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journal_period_summaries_total",
			Help: "Number of period summaries recomputed",
		},
		[]string{"period"},
	)
)
