package tcp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/segmentio/ksuid"
	"golang.org/x/text/transform"
	"reduction.dev/lineingest/connectors"
	"reduction.dev/lineingest/ingest"
	"reduction.dev/lineingest/records"
	"reduction.dev/lineingest/telemetry"
	"reduction.dev/lineingest/tokenizer"
)

// chunk is one read handed from the reader goroutine to the connection owner.
type chunk struct {
	data  []byte
	bytes int
	chars int
}

type connStats struct {
	records    int
	sinkErrors int
	bytesRead  int
	stalls     int
	frozen     bool
	ingest     ingest.Stats
}

// conn is one appliance connection. Only the goroutine running run touches
// the tokenizer, the buffer and the assembler.
type conn struct {
	id     string
	nc     net.Conn
	params *ServerParams
	log    *slog.Logger

	tok   *tokenizer.Tokenizer
	buf   *ingest.Buffer
	asm   *records.Assembler
	keyed connectors.KeyedSinkWriter

	records     int
	sinkErrors  int
	bytesRead   int
	stalls      int
	frozen      bool
	idleFlushed bool

	mu       sync.Mutex // Guard snapshot
	snapshot connStats
}

func (s *Server) newConn(nc net.Conn) *conn {
	id := ksuid.New().String()
	c := &conn{
		id:     id,
		nc:     nc,
		params: &s.params,
		log:    slog.With("instanceID", id, "remote", nc.RemoteAddr().String()),
	}
	c.keyed, _ = s.params.Sink.(connectors.KeyedSinkWriter)
	c.asm = records.NewAssembler(nc.RemoteAddr().String(), s.params.MaxAssembledSize, c.emit)
	c.tok = tokenizer.New(c.asm.Handle, s.params.Tokenizer)
	c.buf = ingest.NewBuffer(c.tok, s.params.Ingest)
	return c
}

func (c *conn) run(ctx context.Context) {
	defer c.nc.Close()
	telemetry.ConnectionOpened(c.params.Name)
	defer telemetry.ConnectionClosed(c.params.Name)
	c.log.Info("connection opened", "policy", c.buf.Policy().String())

	chunks := make(chan chunk, 16)
	readErr := make(chan error, 1)
	go c.read(chunks, readErr)

	tick := make(chan struct{}, 1)
	ticker := c.params.Clock.Every(c.params.ProcessInterval, func() {
		select {
		case tick <- struct{}{}:
		default:
		}
	}, c.params.Name+"-process-"+c.id)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Unblock the reader and keep what it already read
			c.nc.Close()
			for ch := range chunks {
				c.buf.Push(ch.data, ch.bytes, ch.chars)
			}
			<-readErr
			c.finish(nil)
			return
		case ch, ok := <-chunks:
			if !ok {
				c.finish(<-readErr)
				return
			}
			c.buf.Push(ch.data, ch.bytes, ch.chars)
			c.bytesRead += ch.bytes
			c.idleFlushed = false
			c.process(false)
		case <-tick:
			c.tick()
		}
	}
}

// read sends chunks until the connection fails, then reports the error and
// closes chunks.
func (c *conn) read(chunks chan<- chunk, done chan<- error) {
	defer close(chunks)

	var r io.Reader = c.nc
	if c.params.Encoding != nil {
		r = transform.NewReader(r, c.params.Encoding.NewDecoder())
	}

	for {
		data := make([]byte, c.params.ReadSize)
		n, err := r.Read(data)
		if n > 0 {
			telemetry.RecordRead(c.params.Name, n)
			chars := n
			if c.params.Tokenizer.Mode == tokenizer.Chars {
				chars = tokenizer.CountChars(data[:n])
			}
			chunks <- chunk{data: data, bytes: n, chars: chars}
		}
		if err != nil {
			done <- err
			return
		}
	}
}

func (c *conn) tick() {
	if !c.frozen && c.buf.Buffers() > 0 && c.buf.LastProcessTimeDelta() >= c.params.StallAfter {
		c.frozen = true
		c.stalls++
		c.buf.DisableIngress()
		c.log.Warn("processing stalled, freezing ingress",
			"since", c.buf.LastProcessTimeDelta(),
			"queuedBytes", c.buf.Bytes())
	}

	idle := c.params.IdleFlush > 0 && !c.idleFlushed && c.buf.LastPushTimeDelta() >= c.params.IdleFlush
	if idle {
		c.idleFlushed = !c.process(true)
	} else if c.buf.IsReady() {
		c.process(false)
	}

	if c.frozen && c.buf.Buffers() == 0 {
		c.frozen = false
		c.buf.EnableIngress()
		c.log.Info("ingress resumed")
		c.updateStats()
	}
}

// process runs one time-boxed processing pass and reports whether it ran out
// of time.
func (c *conn) process(force bool) bool {
	interrupted := c.buf.Process(c.params.ProcessBudget, force)
	c.updateStats()
	return interrupted
}

// finish processes what is left after the connection ended. A reset peer may
// have been cut off mid-record, so its trailing partial record is discarded
// rather than flushed.
func (c *conn) finish(err error) {
	defer c.updateStats()
	c.buf.Close()

	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
		readErr := connectors.NewReadError(err)
		telemetry.ReadFailed(c.params.Name, readErr.Class)
		c.log.Warn("connection read failed", "err", err, "errClass", readErr.Class)

		if connectors.IsConnectionReset(readErr) {
			c.buf.Process(0, false)
			if c.asm.Pending() || c.tok.Bytes() > 0 {
				c.log.Info("discarding partial record after reset")
			}
			c.buf.Erase()
			c.asm.Reset()
			return
		}
	}

	c.buf.Process(0, true)
	c.log.Info("connection closed", "records", c.records, "sinkErrors", c.sinkErrors)
}

func (c *conn) emit(r records.Record) {
	if r.Truncated {
		c.log.Debug("record truncated", "maxSize", len(r.Data))
	}

	out, err := c.params.Formatter.Format(r)
	if err == nil {
		if c.keyed != nil {
			key := r.Category()
			if key == "" {
				key = c.id
			}
			err = c.keyed.WriteKeyed(key, out)
		} else {
			err = c.params.Sink.Write(out)
		}
	}

	if err != nil {
		c.sinkErrors++
		c.log.Warn("record not written", "err", err)
		return
	}
	c.records++
	telemetry.RecordEmitted(c.params.Name)
}

func (c *conn) updateStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = connStats{
		records:    c.records,
		sinkErrors: c.sinkErrors,
		bytesRead:  c.bytesRead,
		stalls:     c.stalls,
		frozen:     c.frozen,
		ingest:     c.buf.Stats(),
	}
}

func (c *conn) stats() connStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}
