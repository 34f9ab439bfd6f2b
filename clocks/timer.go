package clocks

import (
	"sync"
	"time"
)

// Timer runs a single pending function after a delay. Setting a new function
// replaces the pending one.
type Timer interface {
	Set(d time.Duration, do func())
	Stop()
}

type FakeTimer struct {
	mu sync.Mutex
	do func()
}

func (t *FakeTimer) Set(d time.Duration, do func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.do = do
}

// Trigger runs the pending function, if any.
func (t *FakeTimer) Trigger() {
	t.mu.Lock()
	do := t.do
	t.do = nil
	t.mu.Unlock()

	if do != nil {
		do()
	}
}

// Pending reports whether a function is waiting for Trigger.
func (t *FakeTimer) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.do != nil
}

func (t *FakeTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.do = nil
}

type SystemTimer struct {
	mu    sync.Mutex
	timer *time.Timer
}

func (t *SystemTimer) Set(d time.Duration, do func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(d, do)
}

func (t *SystemTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
}

var (
	_ Timer = (*FakeTimer)(nil)
	_ Timer = (*SystemTimer)(nil)
)
