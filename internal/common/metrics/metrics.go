// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnswersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_answers_total",
			Help: "Total number of answers produced, by strategy and provenance",
		},
		[]string{"strategy", "provenance"},
	)

	AnswerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_answer_duration_seconds",
			Help:    "End-to-end duration of answering a question",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"strategy"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "assistant_stage_duration_seconds",
			Help: "Duration of each pipeline stage",
		},
		[]string{"stage"},
	)

	SearchCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_search_cache_lookups_total",
			Help: "Web search cache lookups by result",
		},
		[]string{"result"},
	)

	SearchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_search_failures_total",
			Help: "Web search queries that failed after retries",
		},
		[]string{"reason"},
	)

	RetrievalFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_retrieval_failures_total",
			Help: "Per-table retrieval failures",
		},
		[]string{"table"},
	)

	LLMTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_llm_transitions_total",
			Help: "Completion state machine transitions",
		},
		[]string{"from", "to", "reason"},
	)

	InFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "assistant_questions_in_flight",
			Help: "Number of questions currently being answered",
		},
	)
)
