package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ingestion and indexing Prometheus metrics.
var (
	IngestRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "animerec",
			Name:      "ingest_records_total",
			Help:      "Catalog records processed by ingestion",
		},
		[]string{"outcome"}, // "fetched" / "written" / "dropped"
	)

	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "animerec",
			Name:      "upstream_requests_total",
			Help:      "Requests sent to the upstream catalog API",
		},
		[]string{"status"}, // "ok" / "retry" / "error"
	)

	IndexedChunksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "animerec",
			Name:      "indexed_chunks_total",
			Help:      "Chunks upserted into the vector store",
		},
	)
)

var ingestMetricsRegistered bool

// RegisterIngestMetrics registers ingestion and indexing metrics.
func RegisterIngestMetrics() {
	if ingestMetricsRegistered {
		return
	}
	prometheus.MustRegister(IngestRecordsTotal)
	prometheus.MustRegister(UpstreamRequestsTotal)
	prometheus.MustRegister(IndexedChunksTotal)
	ingestMetricsRegistered = true
}
