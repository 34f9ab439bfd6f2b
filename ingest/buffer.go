// Package ingest queues raw chunks in front of a tokenizer, bounding the
// memory held when data arrives faster than it is processed.
package ingest

import (
	"fmt"
	"time"

	"reduction.dev/lineingest/clocks"
	"reduction.dev/lineingest/telemetry"
	"reduction.dev/lineingest/tokenizer"
	"reduction.dev/lineingest/util/queues"
)

const DefaultMaxPendingBytes = 256 * 1024

type Params struct {
	Policy Policy
	// Max bytes queued before the overload policy applies.
	MaxPendingBytes int
	Clock           clocks.Clock
}

type pendingChunk struct {
	data  []byte
	bytes int
	chars int
}

// Stats counts data lost to the overload policy.
type Stats struct {
	DroppedChunks int
	DroppedBytes  int
	EvictedChunks int
	EvictedBytes  int
}

// Buffer is the ingestion queue feeding a Tokenizer. Like the Tokenizer, it
// is not safe for concurrent use.
type Buffer struct {
	tok             *tokenizer.Tokenizer
	policy          Policy
	maxPendingBytes int
	clock           clocks.Clock

	queue *queues.Ring[pendingChunk]
	bytes int
	chars int

	// Footprint frozen by DisableIngress
	ingressDisabled bool
	frozenBuffers   int
	frozenBytes     int

	closed      bool
	lastPush    time.Time
	lastProcess time.Time
	stats       Stats
}

func NewBuffer(tok *tokenizer.Tokenizer, params Params) *Buffer {
	if tok == nil {
		panic("ingest: nil tokenizer")
	}
	if params.Policy != Ring && params.Policy != Drop {
		panic(fmt.Sprintf("ingest: unknown policy %v", params.Policy))
	}
	if params.MaxPendingBytes < 0 {
		panic("ingest: negative MaxPendingBytes")
	}
	if params.MaxPendingBytes == 0 {
		params.MaxPendingBytes = DefaultMaxPendingBytes
	}
	if params.Clock == nil {
		params.Clock = clocks.NewSystemClock()
	}

	now := params.Clock.Now()
	return &Buffer{
		tok:             tok,
		policy:          params.Policy,
		maxPendingBytes: params.MaxPendingBytes,
		clock:           params.Clock,
		queue:           queues.NewRing[pendingChunk](16),
		lastPush:        now,
		lastProcess:     now,
	}
}

// Push queues the first byteLen bytes of data. The buffer takes ownership of
// data. Pushes after Close are ignored and pushes the overload policy
// rejects are dropped silently.
func (b *Buffer) Push(data []byte, byteLen, charLen int) {
	if b.closed {
		return
	}
	b.lastPush = b.clock.Now()
	if byteLen == 0 {
		return
	}

	if b.policy == Drop {
		if b.ingressDisabled || b.bytes+byteLen > b.maxPendingBytes {
			b.stats.DroppedChunks++
			b.stats.DroppedBytes += byteLen
			telemetry.RecordDropped(b.policy.String(), byteLen)
			return
		}
		b.enqueue(pendingChunk{data: data[:byteLen], bytes: byteLen, chars: charLen})
		return
	}

	b.enqueue(pendingChunk{data: data[:byteLen], bytes: byteLen, chars: charLen})

	// Make room by evicting the oldest chunks, never the one just pushed.
	maxBytes, maxBuffers := b.maxPendingBytes, -1
	if b.ingressDisabled {
		maxBytes, maxBuffers = b.frozenBytes, b.frozenBuffers
	}
	for b.queue.Len() > 1 && (b.bytes > maxBytes || (maxBuffers >= 0 && b.queue.Len() > maxBuffers)) {
		c, _ := b.queue.Pop()
		b.bytes -= c.bytes
		b.chars -= c.chars
		b.stats.EvictedChunks++
		b.stats.EvictedBytes += c.bytes
		telemetry.RecordEvicted(b.policy.String(), c.bytes)
	}
}

func (b *Buffer) enqueue(c pendingChunk) {
	b.queue.Push(c)
	b.bytes += c.bytes
	b.chars += c.chars
}

// Process feeds queued chunks to the tokenizer only as fast as it drains and
// processes them. It returns true when the time budget ran out with work
// left, mirroring Tokenizer.Process. forceFlush is passed to the tokenizer
// once the queue is empty.
func (b *Buffer) Process(budget time.Duration, forceFlush bool) bool {
	start := b.clock.Now()
	b.lastProcess = start
	defer func() { b.lastProcess = b.clock.Now() }()

	for first := true; ; first = false {
		for b.queue.Len() > 0 {
			c, _ := b.queue.Peek()
			if err := b.tok.Push(c.data, c.bytes, c.chars); err != nil {
				break
			}
			b.queue.Pop()
			b.bytes -= c.bytes
			b.chars -= c.chars
		}

		remaining := time.Duration(0)
		if budget > 0 {
			remaining = budget - b.clock.Now().Sub(start)
			if remaining <= 0 {
				// Each call scans at least one interval so callers that loop
				// until false always finish.
				if !first {
					return true
				}
				remaining = time.Nanosecond
			}
		}

		if b.tok.Process(remaining, forceFlush && b.queue.Len() == 0) {
			return true
		}
		if b.queue.Len() == 0 {
			return false
		}
	}
}

// DisableIngress freezes the queue at its current footprint. Under Drop every
// later push is rejected, under Ring every later push evicts old data rather
// than growing the queue.
func (b *Buffer) DisableIngress() {
	if b.ingressDisabled {
		return
	}
	b.ingressDisabled = true
	b.frozenBuffers = b.queue.Len()
	b.frozenBytes = b.bytes
}

// EnableIngress restores growth up to MaxPendingBytes.
func (b *Buffer) EnableIngress() {
	b.ingressDisabled = false
}

// Close ignores later pushes. Queued data can still be processed.
func (b *Buffer) Close() {
	b.closed = true
}

// Erase discards queued data and resets the tokenizer.
func (b *Buffer) Erase() {
	b.queue.Clear()
	b.bytes = 0
	b.chars = 0
	b.tok.Erase()
}

// Buffers returns the number of queued chunks.
func (b *Buffer) Buffers() int {
	return b.queue.Len()
}

// Bytes returns the number of queued bytes.
func (b *Buffer) Bytes() int {
	return b.bytes
}

// Length returns the number of queued characters.
func (b *Buffer) Length() int {
	return b.chars
}

// IsReady reports whether a Process call could emit a record.
func (b *Buffer) IsReady() bool {
	return b.tok.IsReady() || b.queue.Len() > 0
}

func (b *Buffer) LastPushTimeDelta() time.Duration {
	return b.clock.Now().Sub(b.lastPush)
}

func (b *Buffer) LastProcessTimeDelta() time.Duration {
	return b.clock.Now().Sub(b.lastProcess)
}

func (b *Buffer) Stats() Stats {
	return b.stats
}

func (b *Buffer) Policy() Policy {
	return b.policy
}
