package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "urbanfix_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "urbanfix_db_query_duration_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// ReportsTotal counts report submissions by resolution outcome.
	ReportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "urbanfix_reports_total",
		Help: "Report submissions by outcome (created, merged, rate_limited, conflict)",
	}, []string{"outcome"})

	// VotesTotal counts vote casts by the transition they produced.
	VotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "urbanfix_votes_total",
		Help: "Votes by transition (cast, retract, switch)",
	}, []string{"transition"})

	// LifecycleTransitions counts status changes by target status.
	LifecycleTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "urbanfix_lifecycle_transitions_total",
		Help: "Issue status transitions by target status",
	}, []string{"to"})

	// GeocellLockWait records time spent acquiring geocell locks.
	GeocellLockWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "urbanfix_geocell_lock_wait_seconds",
		Help:    "Time spent waiting for geocell locks",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	})

	// GeocodeRequests counts reverse geocoding lookups by result.
	GeocodeRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "urbanfix_geocode_requests_total",
		Help: "Reverse geocoding lookups by result (hit, miss, error, disabled)",
	}, []string{"result"})

	ThrottledRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "urbanfix_throttled_requests_total",
		Help: "Requests rejected by a per-operation throttle",
	}, []string{"operation"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
