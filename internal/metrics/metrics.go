// Package metrics exposes Prometheus collectors for the scheduler, the
// enrichment pipeline, the topic graph, and channel suggestions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	gobreaker "github.com/sony/gobreaker/v2"
)

const namespace = "scout"

var (
	JobsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_finished_total",
			Help:      "Scrape jobs that reached a terminal status",
		},
		[]string{"platform", "status"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Wall time of scrape job execution",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 1800, 3600, 7200},
		},
		[]string{"platform", "initial"},
	)

	JobsRecovered = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_recovered_total",
			Help:      "Jobs failed at startup because a previous process died",
		},
	)

	WorkerBusy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "worker_busy",
			Help:      "1 while the worker executes a job",
		},
	)

	ItemsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_ingested_total",
			Help:      "Items routed by the ingestion orchestrator",
		},
		[]string{"platform", "route"}, // route: "new", "existing"
	)

	EnrichmentFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_stage_failures_total",
			Help:      "Per-item enrichment stage failures",
		},
		[]string{"stage"},
	)

	GraphTopics = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_topics",
			Help:      "Topics retained in the latest graph",
		},
		[]string{"tenant"},
	)

	GraphEdges = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_edges",
			Help:      "Edges in the latest graph",
		},
		[]string{"tenant"},
	)

	GraphBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "graph_build_duration_seconds",
			Help:      "Time to load, build, and save a topic graph",
			Buckets:   prometheus.DefBuckets,
		},
	)

	SuggestionsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestions_created_total",
			Help:      "Channel suggestions persisted",
		},
		[]string{"platform"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state_transitions_total",
			Help:      "Circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordBreakerTransition is an OnStateChange hook for gobreaker settings.
func RecordBreakerTransition(name string, from, to gobreaker.State) {
	CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(float64(to))
}

// BoolLabel renders a bool as a label value.
func BoolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
