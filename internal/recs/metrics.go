package recs

import "github.com/prometheus/client_golang/prometheus"

var (
	cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "recs",
		Name:      "cache_hits_total",
		Help:      "EnsureFresh calls served from a fresh event cache.",
	})
	cacheReloads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "recs",
		Name:      "cache_reloads_total",
		Help:      "Event cache reloads by outcome (ok, anonymous, error).",
	}, []string{"outcome"})
	eventsRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "recs",
		Name:      "events_recorded_total",
		Help:      "Shopper events written to the event log.",
	}, []string{"event"})
	scorerRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "recs",
		Name:      "scorer_requests_total",
		Help:      "Scorer calls by outcome (ok, error, unconfigured).",
	}, []string{"outcome"})
	scorerDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "storefront",
		Subsystem: "recs",
		Name:      "scorer_duration_seconds",
		Help:      "Latency of scorer calls.",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})
	hydrationDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "recs",
		Name:      "hydration_dropped_total",
		Help:      "Ranked items dropped because no product record exists.",
	})
	detachedFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "recs",
		Name:      "detached_failures_total",
		Help:      "Best-effort background tasks that failed.",
	}, []string{"task"})
	activeSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "storefront",
		Subsystem: "recs",
		Name:      "sessions",
		Help:      "Sessions currently holding an event cache.",
	})
)

// RegisterMetrics registers the pipeline collectors with reg.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(
		cacheHits,
		cacheReloads,
		eventsRecorded,
		scorerRequests,
		scorerDuration,
		hydrationDropped,
		detachedFailures,
		activeSessions,
	)
}
