package clocks_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"reduction.dev/lineingest/clocks"
)

func TestFrozenClockAdvance(t *testing.T) {
	c := clocks.NewFrozenClock()
	start := c.Now()
	c.Advance(time.Second)

	assert.Equal(t, time.Second, c.Now().Sub(start))
}

func TestFrozenClockAutoAdvance(t *testing.T) {
	c := clocks.NewFrozenClock()
	c.SetAutoAdvance(time.Millisecond)

	first := c.Now()
	second := c.Now()
	assert.Equal(t, time.Millisecond, second.Sub(first))
}

func TestFrozenClockTickEvery(t *testing.T) {
	c := clocks.NewFrozenClock()
	calls := 0
	ticker := c.Every(time.Second, func() { calls++ }, "stats")

	c.TickEvery("stats")
	ticker.Trigger()
	assert.Equal(t, 2, calls)
	assert.Panics(t, func() { c.TickEvery("missing") })
}

func TestFrozenClockTickAll(t *testing.T) {
	c := clocks.NewFrozenClock()
	var ticked []string
	c.Every(time.Second, func() { ticked = append(ticked, "a") }, "a")
	c.Every(time.Minute, func() { ticked = append(ticked, "b") }, "b")

	c.TickAll()
	assert.ElementsMatch(t, []string{"a", "b"}, ticked)
}
