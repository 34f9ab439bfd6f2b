package httpu

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/VictoriaMetrics/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"reduction.dev/lineingest/logging"
)

// NewAdminHandler serves the process metrics. Prometheus collectors and the
// tokenizer's lightweight counters are written to the same /metrics page.
func NewAdminHandler(logger *slog.Logger) http.Handler {
	prom := promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		DisableCompression: true,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, r *http.Request) {
		// Only the text exposition format can be concatenated.
		r = r.Clone(r.Context())
		r.Header.Set("Accept", "text/plain")
		prom.ServeHTTP(w, r)
		metrics.WritePrometheus(w, false)
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok\n")
	})

	return logging.NewHTTPHandler(mux, logger)
}
