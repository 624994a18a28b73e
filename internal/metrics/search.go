package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search and cache Prometheus metrics.
var (
	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lexdex",
			Name:      "searches_total",
			Help:      "Total number of search calls",
		},
		[]string{"sort", "outcome"}, // outcome: "cache_hit" / "success" / "degraded" / "error"
	)

	SearchStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lexdex",
			Name:      "search_stage_duration_seconds",
			Help:      "Per-stage search pipeline duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"stage"}, // understanding / cache_probe / retrieval / ranking / total
	)

	RetrievalSourceFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lexdex",
			Name:      "retrieval_source_failures_total",
			Help:      "Retrieval source failures degraded to empty result sets",
		},
		[]string{"source"}, // "semantic" / "lexical"
	)

	CacheTierTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lexdex",
			Name:      "cache_tier_total",
			Help:      "Cache probes by tier and result",
		},
		[]string{"tier", "result"}, // tier: l1/l2/l3, result: hit/miss/error
	)

	AnalyticsTrackingFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lexdex",
			Name:      "analytics_tracking_failures_total",
			Help:      "Fire-and-forget analytics writes that failed",
		},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchesTotal)
	prometheus.MustRegister(SearchStageDuration)
	prometheus.MustRegister(RetrievalSourceFailures)
	prometheus.MustRegister(CacheTierTotal)
	prometheus.MustRegister(AnalyticsTrackingFailures)
	searchMetricsRegistered = true
}
