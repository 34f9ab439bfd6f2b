// Package tcp receives appliance records over TCP. Every connection is framed
// by its own tokenizer behind an ingestion buffer, and complete records are
// formatted and written to a sink.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding"
	"reduction.dev/lineingest/clocks"
	"reduction.dev/lineingest/connectors"
	"reduction.dev/lineingest/ingest"
	"reduction.dev/lineingest/records"
	"reduction.dev/lineingest/tokenizer"
	"reduction.dev/lineingest/util/size"
)

const (
	defaultReadSize        = 16 * size.KB
	defaultProcessInterval = 50 * time.Millisecond
	defaultProcessBudget   = 5 * time.Millisecond
	defaultIdleFlush       = 2 * time.Second
	defaultStallAfter      = 10 * time.Second
	defaultStatsInterval   = time.Minute
)

type ServerParams struct {
	// Label for logs and metrics. Defaults to "tcp".
	Name      string
	Tokenizer tokenizer.Params
	Ingest    ingest.Params
	// Charset of the appliance stream. Nil reads the stream as UTF-8.
	Encoding encoding.Encoding
	// Defaults to records.RawFormatter.
	Formatter records.Formatter
	Sink      connectors.SinkWriter
	// Records assembled beyond this size are truncated.
	MaxAssembledSize int
	// Max bytes per connection read.
	ReadSize int
	// How often queued data is processed when no new data arrives.
	ProcessInterval time.Duration
	// Max time spent processing one connection per tick or read.
	ProcessBudget time.Duration
	// An unterminated record is flushed after the connection has been idle
	// this long. Negative disables idle flushing.
	IdleFlush time.Duration
	// A connection whose queue has not been processed for this long stops
	// growing its queue until it catches up.
	StallAfter time.Duration
	// How often server totals are logged.
	StatsInterval time.Duration
	Clock         clocks.Clock
}

// Stats are server totals across closed and open connections.
type Stats struct {
	Connections   int
	Active        int
	BytesRead     int
	Records       int
	SinkErrors    int
	DroppedChunks int
	EvictedChunks int
	// Times a connection's ingress was frozen because processing stalled.
	Stalls int
	// Open connections whose ingress is frozen right now.
	Stalled int
}

type Server struct {
	params ServerParams
	log    *slog.Logger

	mu    sync.Mutex
	conns map[string]*conn
	stats Stats
}

func NewServer(params ServerParams) *Server {
	if params.Sink == nil {
		panic("tcp: nil sink")
	}
	if params.Name == "" {
		params.Name = "tcp"
	}
	if params.Formatter == nil {
		params.Formatter = records.RawFormatter{}
	}
	if params.ReadSize <= 0 {
		params.ReadSize = defaultReadSize
	}
	if params.ProcessInterval <= 0 {
		params.ProcessInterval = defaultProcessInterval
	}
	if params.ProcessBudget <= 0 {
		params.ProcessBudget = defaultProcessBudget
	}
	if params.IdleFlush == 0 {
		params.IdleFlush = defaultIdleFlush
	}
	if params.StallAfter <= 0 {
		params.StallAfter = defaultStallAfter
	}
	if params.StatsInterval <= 0 {
		params.StatsInterval = defaultStatsInterval
	}
	if params.Clock == nil {
		params.Clock = clocks.NewSystemClock()
	}
	params.Tokenizer.Clock = params.Clock
	params.Ingest.Clock = params.Clock

	return &Server{
		params: params,
		log:    slog.With("instanceID", params.Name),
		conns:  make(map[string]*conn),
	}
}

// Serve accepts connections on l until ctx is canceled or accepting fails.
// Open connections are flushed and closed before Serve returns.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	statsTicker := s.params.Clock.Every(s.params.StatsInterval, s.logStats, s.params.Name+"-stats")
	defer statsTicker.Stop()

	g.Go(func() error {
		<-gctx.Done()
		l.Close()
		return nil
	})

	s.log.Info("listening", "addr", l.Addr().String())
	var acceptErr error
	for {
		nc, err := l.Accept()
		if err != nil {
			if gctx.Err() == nil {
				acceptErr = fmt.Errorf("tcp accept: %w", err)
				s.log.Error("accept failed", "err", err)
			}
			break
		}

		c := s.newConn(nc)
		s.addConn(c)
		g.Go(func() error {
			c.run(gctx)
			s.removeConn(c)
			return nil
		})
	}

	cancel()
	return errors.Join(acceptErr, g.Wait())
}

// Stats returns server totals. Counts of open connections include their
// progress so far.
func (s *Server) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := s.stats
	stats.Active = len(s.conns)
	for _, c := range s.conns {
		cs := c.stats()
		stats.BytesRead += cs.bytesRead
		stats.Stalls += cs.stalls
		if cs.frozen {
			stats.Stalled++
		}
		stats.Records += cs.records
		stats.SinkErrors += cs.sinkErrors
		stats.DroppedChunks += cs.ingest.DroppedChunks
		stats.EvictedChunks += cs.ingest.EvictedChunks
	}
	return stats
}

func (s *Server) addConn(c *conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[c.id] = c
	s.stats.Connections++
}

func (s *Server) removeConn(c *conn) {
	cs := c.stats()

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c.id)
	s.stats.BytesRead += cs.bytesRead
	s.stats.Stalls += cs.stalls
	s.stats.Records += cs.records
	s.stats.SinkErrors += cs.sinkErrors
	s.stats.DroppedChunks += cs.ingest.DroppedChunks
	s.stats.EvictedChunks += cs.ingest.EvictedChunks
}

func (s *Server) logStats() {
	st := s.Stats()
	s.log.Info("listener stats",
		"connections", st.Connections,
		"active", st.Active,
		"bytesRead", st.BytesRead,
		"records", st.Records,
		"sinkErrors", st.SinkErrors,
		"droppedChunks", st.DroppedChunks,
		"evictedChunks", st.EvictedChunks,
		"stalls", st.Stalls,
		"stalled", st.Stalled)
}
