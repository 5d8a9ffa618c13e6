package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobsProcessedTotal, workerBatchesTotal, workerBatchSeconds) }

var jobsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "generation_jobs_processed_total",
		Help: "Total number of generation jobs processed, labeled by terminal status.",
	},
	[]string{"status"}, // 'success', 'failed'
)

var workerBatchesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "worker_batches_total",
		Help: "Worker batch triggers by outcome.",
	},
	[]string{"outcome"}, // 'run', 'skipped', 'empty'
)

var workerBatchSeconds = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "worker_batch_duration_seconds",
		Help:    "Wall-clock duration of a full worker batch.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	},
)

func IncJobProcessed(status string) {
	jobsProcessedTotal.WithLabelValues(norm(status)).Inc()
}

func IncWorkerBatch(outcome string) {
	workerBatchesTotal.WithLabelValues(norm(outcome)).Inc()
}

func ObserveBatchDuration(seconds float64) {
	workerBatchSeconds.Observe(seconds)
}
