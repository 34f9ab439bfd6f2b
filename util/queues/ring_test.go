package queues_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"reduction.dev/lineingest/util/queues"
)

func popAll[T any](r *queues.Ring[T]) []T {
	var items []T
	for {
		v, ok := r.Pop()
		if !ok {
			return items
		}
		items = append(items, v)
	}
}

func TestRingFIFO(t *testing.T) {
	r := queues.NewRing[int](2)
	for i := 1; i <= 5; i++ {
		r.Push(i)
	}

	assert.Equal(t, 5, r.Len())
	assert.Equal(t, 3, r.At(2))
	assert.Equal(t, []int{1, 2, 3, 4, 5}, popAll(r))
	assert.Equal(t, 0, r.Len())
}

func TestRingWrapsAroundBeforeGrowing(t *testing.T) {
	r := queues.NewRing[string](3)
	r.Push("a")
	r.Push("b")
	v, ok := r.Pop()
	require.True(t, ok)
	assert.Equal(t, "a", v)

	// Wraps into the freed slot then grows with the wrapped layout intact
	r.Push("c")
	r.Push("d")
	r.Push("e")

	front, ok := r.Peek()
	require.True(t, ok)
	assert.Equal(t, "b", front)
	assert.Equal(t, []string{"b", "c", "d", "e"}, popAll(r))
}

func TestRingClear(t *testing.T) {
	r := queues.NewRing[int](1)
	r.Push(1)
	r.Push(2)
	r.Clear()

	_, ok := r.Pop()
	assert.False(t, ok)
	assert.Panics(t, func() { r.At(0) })
}
