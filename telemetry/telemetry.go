package telemetry

import (
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	// Register metrics with Prometheus
	prometheus.MustRegister(httpInFlight)
	prometheus.MustRegister(httpDuration)
	prometheus.MustRegister(httpErrors)
	prometheus.MustRegister(ingestDroppedBytes)
	prometheus.MustRegister(ingestDroppedChunks)
	prometheus.MustRegister(ingestEvictedBytes)
	prometheus.MustRegister(ingestEvictedChunks)
	prometheus.MustRegister(connectionsActive)
	prometheus.MustRegister(connectionsTotal)
	prometheus.MustRegister(readBytes)
	prometheus.MustRegister(readErrors)
	prometheus.MustRegister(recordsEmitted)
}

var (
	httpInFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sink_http_in_flight_requests",
			Help: "Current number of in-flight sink requests",
		},
		[]string{"client"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sink_http_duration_seconds",
			Help:    "Sink request duration distributions",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"client", "operation", "code"},
	)

	httpErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sink_http_errors_total",
			Help: "Sink requests that failed without a response",
		},
		[]string{"client", "operation"},
	)
)

// MetricsTransport records request metrics for the HTTP client of a sink.
// AWS JSON protocol requests are labeled with the operation named in their
// X-Amz-Target header.
type MetricsTransport struct {
	name     string
	wrapped  http.RoundTripper
	inFlight atomic.Int64
}

func NewMetricsTransport(name string, wrapped http.RoundTripper) *MetricsTransport {
	if wrapped == nil {
		wrapped = http.DefaultTransport
	}
	return &MetricsTransport{
		name:    name,
		wrapped: wrapped,
	}
}

func (t *MetricsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	op := operation(req)

	httpInFlight.WithLabelValues(t.name).Set(float64(t.inFlight.Add(1)))
	defer func() {
		httpInFlight.WithLabelValues(t.name).Set(float64(t.inFlight.Add(-1)))
	}()

	resp, err := t.wrapped.RoundTrip(req)
	if err != nil {
		httpErrors.WithLabelValues(t.name, op).Inc()
		return nil, err
	}

	httpDuration.WithLabelValues(t.name, op, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())
	return resp, nil
}

func operation(req *http.Request) string {
	target := req.Header.Get("X-Amz-Target")
	if target == "" {
		return req.Method
	}
	if i := strings.LastIndexByte(target, '.'); i >= 0 {
		return target[i+1:]
	}
	return target
}
