package kinesis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/ksuid"
	"reduction.dev/lineingest/batching"
	"reduction.dev/lineingest/clocks"
	"reduction.dev/lineingest/connectors"
	"reduction.dev/lineingest/util/size"
)

// PutRecords limits
const (
	maxBatchRecords = 500
	maxBatchBytes   = 5 * size.MB
	maxRecordBytes  = 1 * size.MB
)

const (
	defaultMaxDelay       = 1 * time.Second
	defaultRequestTimeout = 10 * time.Second
	defaultMaxAttempts    = 3
)

type SinkConfig struct {
	StreamARN string
	Client    *Client
	// Max time a record waits for its batch to fill.
	MaxDelay time.Duration
	// Max records per PutRecords call, capped at 500.
	BatchSize      int
	RequestTimeout time.Duration
	// Number of times a rejected record is sent before it is dropped.
	MaxAttempts int
	Timer       clocks.Timer
}

// Sink batches records into PutRecords calls. Writes are asynchronous: an
// error from a batch flushed by the timer is returned by the next Write or
// Flush.
type Sink struct {
	client         *Client
	streamARN      string
	requestTimeout time.Duration
	maxAttempts    int
	batcher        *batching.Batcher[Record]

	mu  sync.Mutex
	err error
}

func NewSink(config SinkConfig) *Sink {
	if config.Client == nil {
		panic("kinesis sink: nil client")
	}
	if config.MaxDelay == 0 {
		config.MaxDelay = defaultMaxDelay
	}
	if config.BatchSize <= 0 || config.BatchSize > maxBatchRecords {
		config.BatchSize = maxBatchRecords
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = defaultRequestTimeout
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaultMaxAttempts
	}

	s := &Sink{
		client:         config.Client,
		streamARN:      config.StreamARN,
		requestTimeout: config.RequestTimeout,
		maxAttempts:    config.MaxAttempts,
	}
	s.batcher = batching.New(batching.Params[Record]{
		MaxDelay: config.MaxDelay,
		MaxSize:  config.BatchSize,
		MaxBytes: maxBatchBytes,
		SizeOf:   func(r Record) int { return len(r.Data) + len(r.Key) },
		Timer:    config.Timer,
		OnFlush:  s.put,
	})
	return s
}

// Write sends v with a random partition key.
func (s *Sink) Write(v []byte) error {
	return s.WriteKeyed(ksuid.New().String(), v)
}

func (s *Sink) WriteKeyed(key string, v []byte) error {
	if len(v) > maxRecordBytes {
		return fmt.Errorf("kinesis record of %d bytes exceeds %d byte limit", len(v), maxRecordBytes)
	}
	if key == "" {
		key = ksuid.New().String()
	}
	s.batcher.Add(Record{Key: key, Data: v})
	return s.takeErr()
}

// Flush sends buffered records and returns any error since the last call.
func (s *Sink) Flush() error {
	s.batcher.Flush()
	return s.takeErr()
}

func (s *Sink) takeErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.err
	s.err = nil
	return err
}

// put sends a batch, resending individually rejected records.
func (s *Sink) put(batch []Record) {
	ctx, cancel := context.WithTimeout(context.Background(), s.requestTimeout)
	defer cancel()

	pending := batch
	for attempt := 1; len(pending) > 0; attempt++ {
		failed, err := s.client.PutRecordBatch(ctx, s.streamARN, pending)
		if err != nil {
			s.setErr(err)
			return
		}
		if len(failed) > 0 && attempt >= s.maxAttempts {
			s.setErr(fmt.Errorf("kinesis rejected %d records after %d attempts", len(failed), attempt))
			return
		}
		if len(failed) > 0 {
			slog.Warn("kinesis rejected records, retrying", "count", len(failed), "attempt", attempt)
		}
		pending = failed
	}
}

func (s *Sink) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = errors.Join(s.err, err)
}

var _ connectors.KeyedSinkWriter = (*Sink)(nil)
var _ connectors.SinkFlusher = (*Sink)(nil)
