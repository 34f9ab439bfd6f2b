package clocks

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Clock is the source of time for time-boxed processing and liveness checks.
type Clock interface {
	Now() time.Time
	Every(d time.Duration, fn func(), label string) *Ticker
}

type Ticker struct {
	cancel  context.CancelFunc
	trigger func()
}

func (t *Ticker) Stop() {
	t.cancel()
}

// Immediately trigger the configured function, resetting the time before the
// next tick.
func (t *Ticker) Trigger() {
	t.trigger()
}

type SystemClock struct{}

func (c *SystemClock) Every(d time.Duration, fn func(), _label string) *Ticker {
	ticker := time.NewTicker(d)

	// Context used to stop all future fn calls
	ctx, cancel := context.WithCancel(context.Background())

	// Serialize ticks with manual triggers
	var mu sync.Mutex
	tick := func() {
		mu.Lock()
		defer mu.Unlock()
		fn()
	}

	go func() {
		for {
			select {
			case <-ticker.C:
				tick()
			case <-ctx.Done():
				ticker.Stop()
				return
			}
		}
	}()

	return &Ticker{
		cancel: cancel,
		trigger: func() {
			tick()
			ticker.Reset(d)
		},
	}
}

func NewSystemClock() *SystemClock {
	return &SystemClock{}
}

func (c *SystemClock) Now() time.Time {
	return time.Now()
}

var _ Clock = (*SystemClock)(nil)

// FrozenClock only moves when advanced. With SetAutoAdvance it also moves
// forward a fixed step on every Now call, which lets tests exhaust time
// budgets deterministically.
type FrozenClock struct {
	now         time.Time
	autoAdvance time.Duration
	everyFuncs  map[string]func()
	mu          *sync.Mutex
}

// Every for FrozenClock only registers fn to be run by TickEvery.
func (c *FrozenClock) Every(d time.Duration, fn func(), label string) *Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.everyFuncs[label] = fn

	return &Ticker{
		cancel:  func() {},
		trigger: fn,
	}
}

func NewFrozenClock() *FrozenClock {
	return &FrozenClock{
		now:        time.Unix(0, 0),
		everyFuncs: make(map[string]func()),
		mu:         &sync.Mutex{},
	}
}

func (c *FrozenClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now
	c.now = c.now.Add(c.autoAdvance)
	return now
}

func (c *FrozenClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

// SetAutoAdvance makes every subsequent Now call move the clock forward by d.
func (c *FrozenClock) SetAutoAdvance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.autoAdvance = d
}

func (c *FrozenClock) TickEvery(label string) {
	c.mu.Lock()
	fn := c.everyFuncs[label]
	c.mu.Unlock()

	if fn == nil {
		panic(fmt.Sprintf("FrozenClock has no `every` func registered for label %s", label))
	}
	fn()
}

// TickAll runs every registered `every` func once, for callers that cannot
// know the labels in advance.
func (c *FrozenClock) TickAll() {
	c.mu.Lock()
	fns := make([]func(), 0, len(c.everyFuncs))
	for _, fn := range c.everyFuncs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

var _ Clock = (*FrozenClock)(nil)
