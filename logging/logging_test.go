package logging_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"reduction.dev/lineingest/logging"
)

func TestTextHandler(t *testing.T) {
	logging.SetLevel(slog.LevelInfo)
	var buf bytes.Buffer
	logger := slog.New(logging.NewTextHandler(&buf)).
		With("instanceID", "conn-1", "remote", "10.0.0.1:5000")

	logger.Info("closed", "records", 12, "reason", "end of stream")
	logger.Debug("hidden")

	line := buf.String()
	assert.Contains(t, line, " INFO [conn-1] closed")
	assert.Contains(t, line, " remote=10.0.0.1:5000")
	assert.Contains(t, line, " records=12")
	assert.Contains(t, line, ` reason="end of stream"`)
	assert.NotContains(t, line, "instanceID")
	assert.NotContains(t, line, "hidden")
}

func TestTextHandler_Groups(t *testing.T) {
	logging.SetLevel(slog.LevelInfo)
	var buf bytes.Buffer
	logger := slog.New(logging.NewTextHandler(&buf)).WithGroup("stats").With("dropped", 2)

	logger.Info("tick", slog.Group("queue", "bytes", 10))

	assert.Contains(t, buf.String(), " stats.dropped=2")
	assert.Contains(t, buf.String(), " stats.queue.bytes=10")
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := logging.ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := logging.ParseLevel("loud")
	assert.ErrorContains(t, err, "unknown log level")
}

func TestHTTPHandler(t *testing.T) {
	logging.SetLevel(slog.LevelDebug)
	defer logging.SetLevel(slog.LevelInfo)
	var buf bytes.Buffer
	h := logging.NewHTTPHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}), slog.New(logging.NewTextHandler(&buf)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Contains(t, buf.String(), " path=/metrics")
	assert.Contains(t, buf.String(), " status=418")
}
