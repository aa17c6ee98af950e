package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

var (
	StoreOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasks_store_operations_total",
			Help: "Task store operations by operation and outcome",
		},
		[]string{"op", "outcome"},
	)
	StoreDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tasks_store_operation_duration_seconds",
			Help:    "Task store operation latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasks_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "status"},
	)
	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tasks_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
	EphemeralIdentities = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tasks_ephemeral_identities_total",
			Help: "Requests served under a freshly generated user id",
		},
	)
)

func init() {
	prometheus.MustRegister(StoreOperations, StoreDuration, HTTPRequests, RateLimited, EphemeralIdentities)
}

// ObserveStore records one store call.
func ObserveStore(op, outcome string, started time.Time) {
	StoreOperations.WithLabelValues(op, outcome).Inc()
	StoreDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

func Handler() http.Handler {
	return promhttp.Handler()
}
