package httpu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime"
	"time"
)

type handlerWithContext struct {
	http.Handler
	cancel context.CancelCauseFunc
}

func (h handlerWithContext) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if err := recover(); err != nil {
			buf := make([]byte, 64<<10)
			n := runtime.Stack(buf, false)
			slog.Error("admin handler panic", "panic", err, "stack", string(buf[:n]))
			h.cancel(fmt.Errorf("admin handler panic: %v", err))
		}
	}()
	h.Handler.ServeHTTP(w, r)
}

type Server struct {
	http.Server
	ShutdownTimeout time.Duration
}

func NewServer(handler http.Handler) *Server {
	return &Server{
		Server: http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ShutdownTimeout: 5 * time.Second,
	}
}

// Serve acts like (*http.Server).Serve but stops when ctx is canceled,
// returning nil in that case. A panicking handler also stops the server and
// its panic is returned, unlike http.Server which recovers and continues.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	s.Server.Handler = handlerWithContext{s.Server.Handler, cancel}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), s.ShutdownTimeout)
		defer cancelShutdown()
		s.Server.Shutdown(shutdownCtx)
	}()

	err := s.Server.Serve(l)
	cancel(nil)
	<-done
	if errors.Is(err, http.ErrServerClosed) {
		if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
			return cause
		}
		return nil
	}
	return err
}
