package httpu

import (
	"net"
	"net/http"
	"time"

	"reduction.dev/lineingest/telemetry"
)

// NewClient returns an http.Client for a sink's API calls whose requests are
// recorded under metricName.
//
// Each client gets its own Transport rather than sharing
// http.DefaultTransport so idle connections to one upstream are not held
// open by another. Sinks send bursts of batched requests to a single host,
// so more idle connections are kept per host than the default of two.
func NewClient(metricName string) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Transport: telemetry.NewMetricsTransport(metricName, transport),
	}
}
