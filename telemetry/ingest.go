package telemetry

import "github.com/prometheus/client_golang/prometheus"

var (
	// Ingestion buffer overload metrics

	ingestDroppedBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_dropped_bytes_total",
			Help: "Bytes of new chunks rejected by the drop overload policy",
		},
		[]string{"policy"},
	)

	ingestDroppedChunks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_dropped_chunks_total",
			Help: "New chunks rejected by the drop overload policy",
		},
		[]string{"policy"},
	)

	ingestEvictedBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_evicted_bytes_total",
			Help: "Bytes of queued chunks evicted by the ring overload policy",
		},
		[]string{"policy"},
	)

	ingestEvictedChunks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_evicted_chunks_total",
			Help: "Queued chunks evicted by the ring overload policy",
		},
		[]string{"policy"},
	)

	// Listener metrics

	connectionsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "listener_connections_active",
			Help: "Currently open appliance connections",
		},
		[]string{"listener"},
	)

	connectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listener_connections_total",
			Help: "Accepted appliance connections",
		},
		[]string{"listener"},
	)

	readBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listener_read_bytes_total",
			Help: "Bytes read from appliance connections",
		},
		[]string{"listener"},
	)

	readErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listener_read_errors_total",
			Help: "Appliance connections ended by a read error, by error class",
		},
		[]string{"listener", "class"},
	)

	recordsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listener_records_total",
			Help: "Complete records written to the sink",
		},
		[]string{"listener"},
	)
)

func RecordDropped(policy string, bytes int) {
	ingestDroppedBytes.WithLabelValues(policy).Add(float64(bytes))
	ingestDroppedChunks.WithLabelValues(policy).Inc()
}

func RecordEvicted(policy string, bytes int) {
	ingestEvictedBytes.WithLabelValues(policy).Add(float64(bytes))
	ingestEvictedChunks.WithLabelValues(policy).Inc()
}

func ConnectionOpened(listener string) {
	connectionsTotal.WithLabelValues(listener).Inc()
	connectionsActive.WithLabelValues(listener).Inc()
}

func ConnectionClosed(listener string) {
	connectionsActive.WithLabelValues(listener).Dec()
}

func RecordRead(listener string, bytes int) {
	readBytes.WithLabelValues(listener).Add(float64(bytes))
}

func ReadFailed(listener, class string) {
	readErrors.WithLabelValues(listener, class).Inc()
}

func RecordEmitted(listener string) {
	recordsEmitted.WithLabelValues(listener).Inc()
}
