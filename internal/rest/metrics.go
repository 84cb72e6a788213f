package rest

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parley_rest_requests_total",
			Help: "Outbound REST calls by method and status.",
		},
		[]string{"method", "status"},
	)

	rateLimitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "parley_rest_rate_limits_total",
		Help: "Requests rejected or violated by a rate-limit bucket.",
	})

	queuedRequests = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "parley_rest_queued_requests",
		Help: "Async requests currently parked on bucket queues.",
	})
)

// RegisterMetrics registers the executor metrics with the default
// registry. Call at most once per process.
func RegisterMetrics() {
	prometheus.MustRegister(requestsTotal, rateLimitsTotal, queuedRequests)
}
