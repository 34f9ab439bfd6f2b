package httpu_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"reduction.dev/lineingest/logging"
	"reduction.dev/lineingest/telemetry"
	_ "reduction.dev/lineingest/tokenizer"
	"reduction.dev/lineingest/util/httpu"
)

func TestAdminServer(t *testing.T) {
	telemetry.RecordEmitted("admin-test")

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	server := httpu.NewServer(httpu.NewAdminHandler(slog.New(logging.NewTextHandler(io.Discard))))
	served := make(chan error, 1)
	go func() { served <- server.Serve(ctx, l) }()

	client := httpu.NewClient("admin-test")
	resp, err := client.Get("http://" + l.Addr().String() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `listener_records_total{listener="admin-test"}`)
	assert.Contains(t, string(body), "tokenizer_records_total")

	resp, err = client.Get("http://" + l.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	assert.NoError(t, <-served)
}

func TestServer_PanicStopsServer(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := httpu.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	served := make(chan error, 1)
	go func() { served <- server.Serve(context.Background(), l) }()

	_, _ = httpu.NewClient("panic-test").Get("http://" + l.Addr().String() + "/")
	assert.ErrorContains(t, <-served, "boom")
}
