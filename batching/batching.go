// Package batching groups items so sinks can send them in bulk.
package batching

import (
	"sync"
	"time"

	"reduction.dev/lineingest/clocks"
)

type Params[T any] struct {
	// Max time the first item of a batch waits before the batch is flushed.
	// Zero disables time-based flushing.
	MaxDelay time.Duration
	// Max number of items in a batch. Defaults to 1.
	MaxSize int
	// Max summed SizeOf of the items in a batch. Zero disables the limit.
	MaxBytes int
	SizeOf   func(T) int
	Timer    clocks.Timer
	// Called with every flushed batch, one call at a time.
	OnFlush func([]T)
}

// Batcher collects items and hands them to OnFlush when a batch is full, has
// waited MaxDelay, or Flush is called.
type Batcher[T any] struct {
	params Params[T]
	mu     sync.Mutex // Guard batch
	batch  []T
	bytes  int
	token  *struct{} // Identifies the current batch for its timer
	closed bool
}

func New[T any](params Params[T]) *Batcher[T] {
	if params.Timer == nil {
		params.Timer = &clocks.SystemTimer{}
	}
	if params.MaxSize <= 0 {
		params.MaxSize = 1
	}
	if params.SizeOf == nil {
		params.SizeOf = func(T) int { return 0 }
	}
	if params.OnFlush == nil {
		params.OnFlush = func([]T) {}
	}
	return &Batcher[T]{
		params: params,
		batch:  make([]T, 0, params.MaxSize),
		token:  &struct{}{},
	}
}

// Add appends item to the current batch. An item that would push the batch
// over MaxBytes first flushes the items before it.
func (b *Batcher[T]) Add(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	n := b.params.SizeOf(item)
	if b.params.MaxBytes > 0 && len(b.batch) > 0 && b.bytes+n > b.params.MaxBytes {
		b.flushLocked()
	}

	// Set the timer when starting a new batch
	if len(b.batch) == 0 && b.params.MaxDelay > 0 {
		token := b.token
		b.params.Timer.Set(b.params.MaxDelay, func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			// The batch may have been flushed before the timer got the lock
			if token != b.token {
				return
			}
			b.flushLocked()
		})
	}

	b.batch = append(b.batch, item)
	b.bytes += n
	if len(b.batch) >= b.params.MaxSize {
		b.flushLocked()
	}
}

// Flush hands the current batch, if any, to OnFlush.
func (b *Batcher[T]) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushLocked()
}

// Close flushes the current batch and ignores later items.
func (b *Batcher[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushLocked()
	b.closed = true
}

// Len returns the number of items in the current batch.
func (b *Batcher[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.batch)
}

// Caller must hold the mutex lock
func (b *Batcher[T]) flushLocked() {
	if len(b.batch) == 0 {
		return
	}
	batch := b.batch
	b.batch = make([]T, 0, b.params.MaxSize)
	b.bytes = 0
	b.token = &struct{}{}
	b.params.Timer.Stop()
	b.params.OnFlush(batch)
}
