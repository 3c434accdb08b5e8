package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsProcessed counts reconciled change events by entity, action and outcome
	// (applied|skipped|error).
	EventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rtac_cache_events_processed_total",
			Help: "Total number of change events processed",
		},
		[]string{"entity", "action", "outcome"},
	)

	// GenerationRuns counts full cache generation runs by result (success|failure).
	GenerationRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rtac_cache_generation_runs_total",
			Help: "Total number of cache generation pipeline runs",
		},
		[]string{"result"},
	)

	// PrewarmJobs counts pre-warm jobs by terminal status (completed|failed).
	PrewarmJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rtac_cache_prewarm_jobs_total",
			Help: "Total number of finished pre-warm jobs",
		},
		[]string{"status"},
	)

	// RecordsUpserted counts cache records written by record type.
	RecordsUpserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rtac_cache_records_upserted_total",
			Help: "Total number of availability records upserted",
		},
		[]string{"record_type"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rtac_cache_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
