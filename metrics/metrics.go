// Package metrics provides Prometheus metrics for the ranking pipelines.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline labels.
const (
	PipelinePastPerformance = "past_performance_duplicates"
	PipelineResource        = "resource_duplicates"
	PipelineChunks          = "chunk_search"
	PipelineReferences      = "adaptive_references"
	PipelineSolicitation    = "solicitation_context"
)

var (
	// RequestDuration measures pipeline run time.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ranker",
			Name:      "pipeline_duration_seconds",
			Help:      "Duration of ranking pipeline runs in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"pipeline", "status"},
	)

	// CandidatesEvaluated observes how many records each run scored.
	CandidatesEvaluated = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ranker",
			Name:      "candidates_evaluated",
			Help:      "Distribution of candidate counts per pipeline run",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"pipeline"},
	)

	// EnrichmentFailures counts candidates scored without their enrichment.
	EnrichmentFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ranker",
			Name:      "enrichment_failures_total",
			Help:      "Total number of candidates whose enrichment lookup failed",
		},
		[]string{"pipeline"},
	)
)

// ObserveRun records one pipeline run.
func ObserveRun(pipeline string, started time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	RequestDuration.WithLabelValues(pipeline, status).Observe(time.Since(started).Seconds())
}

// ObserveCandidates records the candidate count and enrichment failures of a run.
func ObserveCandidates(pipeline string, evaluated, failures int) {
	CandidatesEvaluated.WithLabelValues(pipeline).Observe(float64(evaluated))
	if failures > 0 {
		EnrichmentFailures.WithLabelValues(pipeline).Add(float64(failures))
	}
}
