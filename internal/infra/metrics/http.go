package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(httpRequestsTotal, capabilityCallsLatencyMs, sweepRunsTotal) }

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests served, by route pattern and status code class.",
		},
		[]string{"route", "code"},
	)

	capabilityCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "capability_calls_latency_ms",
			Help:    "Scoring capability call latency in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000, 10000},
		},
		[]string{"provider", "operation", "success"},
	)

	sweepRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_sweep_actions_total",
			Help: "Stale-state sweeper actions.",
		},
		[]string{"action"}, // 'redispatched', 'redelivered', 'skipped_locked'
	)
)

func IncHTTPRequest(route, code string) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestsTotal.WithLabelValues(route, code).Inc()
}

func ObserveCapabilityCall(provider, operation string, latencyMs int64, success bool) {
	s := "false"
	if success {
		s = "true"
	}
	capabilityCallsLatencyMs.WithLabelValues(norm(provider), norm(operation), s).Observe(float64(latencyMs))
}

func IncSweep(action string) {
	sweepRunsTotal.WithLabelValues(norm(action)).Inc()
}
