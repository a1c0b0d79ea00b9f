// internal/common/metrics/metrics.go
package metrics

import (
	"errors"
	"time"

	"edu-content-workers/internal/common/llmjson"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Generation outcomes besides the llmjson failure reasons.
const (
	OutcomeOK       = "ok"
	OutcomeSalvaged = "salvaged"
	OutcomeFallback = "fallback"
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
			Name:    "worker_job_duration_seconds",
			Help:    "Duration of job processing in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 180},
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	GenerationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_outcomes_total",
			Help: "Decoded model responses by outcome or failure reason",
		},
		[]string{"task_type", "outcome"},
	)

	ExtractionStrategy = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llmjson_extraction_strategy_total",
			Help: "Extraction strategy that produced the parsed object",
		},
		[]string{"task_type", "strategy"},
	)

	DroppedItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llmjson_dropped_items_total",
			Help: "Items discarded during validation, by reason",
		},
		[]string{"task_type", "reason"},
	)

	GeneratorRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "genai_request_duration_seconds",
			Help:    "Latency of text generation requests",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 120},
		},
		[]string{"status"},
	)
)

// RecordDecode records the result of one llmjson.Decode (or Validate) call.
func RecordDecode(taskType string, res *llmjson.Result, err error) {
	if err != nil {
		reason := string(llmjson.ReasonOf(err))
		if reason == "" {
			reason = "error"
		}
		GenerationOutcomes.WithLabelValues(taskType, reason).Inc()

		var f *llmjson.Failure
		if errors.As(err, &f) {
			recordDropped(taskType, f.Dropped)
		}
		return
	}

	outcome := OutcomeOK
	strategy := string(res.Strategy)
	if res.Salvaged {
		outcome = OutcomeSalvaged
		strategy = "salvage"
	}
	GenerationOutcomes.WithLabelValues(taskType, outcome).Inc()
	if strategy != "" {
		ExtractionStrategy.WithLabelValues(taskType, strategy).Inc()
	}
	recordDropped(taskType, res.Dropped)
}

// RecordFallback counts a response replaced by template content.
func RecordFallback(taskType string) {
	GenerationOutcomes.WithLabelValues(taskType, OutcomeFallback).Inc()
}

// ObserveGenerator records one generator round trip.
func ObserveGenerator(status string, elapsed time.Duration) {
	GeneratorRequestDuration.WithLabelValues(status).Observe(elapsed.Seconds())
}

func recordDropped(taskType string, dropped map[llmjson.Reason]int) {
	for reason, n := range dropped {
		DroppedItems.WithLabelValues(taskType, string(reason)).Add(float64(n))
	}
}
