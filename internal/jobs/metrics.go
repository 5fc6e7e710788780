package jobs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// jobsProcessed counts finished jobs by kind and outcome.
	jobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crawler_jobs_processed_total",
		Help: "Total number of processed jobs by kind and outcome",
	}, []string{"kind", "outcome"}) // outcome: ok, error, skipped

	// jobDuration tracks how long successful jobs run.
	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crawler_job_duration_seconds",
		Help:    "Duration of successful jobs by kind",
		Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"kind"})

	// productsPersisted counts products written by crawl jobs.
	productsPersisted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crawler_products_persisted_total",
		Help: "Total number of products written by crawl jobs",
	}, []string{"selector", "mode"}) // mode: full, patch

	// embeddingsGenerated counts vectors produced by the embedding provider.
	embeddingsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crawler_embeddings_generated_total",
		Help: "Total number of embeddings generated by entity kind",
	}, []string{"entity"}) // entity: product, benchmark, category

	// associationsWritten counts benchmark associations inserted.
	associationsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crawler_benchmark_associations_total",
		Help: "Total number of benchmark associations written",
	})

	// lockSkips counts jobs skipped because the hub lock was held.
	lockSkips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crawler_hub_lock_skips_total",
		Help: "Total number of jobs skipped because the hub lock was held",
	}, []string{"kind"})
)
