package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search pipeline Prometheus metrics.
var (
	SearchStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "animerec",
			Name:      "search_duration_seconds",
			Help:      "Search pipeline stage duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"stage"}, // embed, query, aggregate, rerank, total
	)

	SearchResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "animerec",
			Name:      "search_results",
			Help:      "Number of candidates returned per search",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
		},
	)

	SearchHits = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "animerec",
			Name:      "search_chunk_hits",
			Help:      "Number of chunk hits returned by the vector store per search",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 7),
		},
	)

	RerankFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "animerec",
			Name:      "rerank_fallback_total",
			Help:      "Times the ranking oracle result was discarded",
		},
		[]string{"reason"}, // "error" / "timeout" / "no_match"
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchStageDuration)
	prometheus.MustRegister(SearchResults)
	prometheus.MustRegister(SearchHits)
	prometheus.MustRegister(RerankFallbackTotal)
	searchMetricsRegistered = true
}
