package telemetry_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"reduction.dev/lineingest/telemetry"
)

func TestMetricsTransport_LabelsOperation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := &http.Client{Transport: telemetry.NewMetricsTransport("test-sink", nil)}
	req, err := http.NewRequest(http.MethodPost, server.URL, strings.NewReader("{}"))
	require.NoError(t, err)
	req.Header.Set("X-Amz-Target", "Kinesis_20131202.PutRecords")

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	count := histogramCount(t, "sink_http_duration_seconds", map[string]string{
		"client": "test-sink", "operation": "PutRecords", "code": "202",
	})
	assert.Equal(t, uint64(1), count)
}

func TestIngestCounters(t *testing.T) {
	telemetry.RecordDropped("drop", 10)
	telemetry.RecordEvicted("ring", 7)
	telemetry.ConnectionOpened("counters-test")
	telemetry.ReadFailed("counters-test", "ECONNRESET")

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["ingest_dropped_bytes_total"])
	assert.True(t, names["ingest_evicted_chunks_total"])
	assert.True(t, names["listener_connections_active"])
	assert.True(t, names["listener_read_errors_total"])
	assert.True(t, names["listener_connections_total"])
}

func histogramCount(t *testing.T, name string, labels map[string]string) uint64 {
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	metrics:
		for _, m := range f.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetHistogram().GetSampleCount()
		}
	}
	return 0
}
