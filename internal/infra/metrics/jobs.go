package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobsProcessedTotal, jobDurationMs, jobDispatchTotal) }

var (
	jobsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_jobs_processed_total",
			Help: "Total number of moderation jobs that reached a terminal state.",
		},
		[]string{"kind", "status"}, // status: 'completed', 'failed'
	)

	jobDurationMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "moderation_job_duration_ms",
			Help:    "Capability execution time per job kind in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000, 10000, 30000},
		},
		[]string{"kind"},
	)

	jobDispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_job_dispatch_total",
			Help: "Job hand-offs to the worker pool.",
		},
		[]string{"result"}, // 'queued', 'rejected'
	)
)

func IncJob(kind, status string) {
	jobsProcessedTotal.WithLabelValues(norm(kind), norm(status)).Inc()
}

func ObserveJobDuration(kind string, ms int64) {
	jobDurationMs.WithLabelValues(norm(kind)).Observe(float64(ms))
}

func IncDispatch(result string) {
	jobDispatchTotal.WithLabelValues(norm(result)).Inc()
}
