package queues

// Ring is a growable FIFO queue backed by a circular slice. Items can be read
// by position from the front without removing them.
type Ring[T any] struct {
	items []T
	head  int // index of the front item
	count int
}

func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{items: make([]T, capacity)}
}

func (r *Ring[T]) Len() int {
	return r.count
}

// Push adds an item to the back of the queue, growing the storage when full.
func (r *Ring[T]) Push(v T) {
	if r.count == len(r.items) {
		r.grow()
	}
	r.items[(r.head+r.count)%len(r.items)] = v
	r.count++
}

// Pop removes and returns the front item.
func (r *Ring[T]) Pop() (T, bool) {
	var zero T
	if r.count == 0 {
		return zero, false
	}
	v := r.items[r.head]
	r.items[r.head] = zero
	r.head = (r.head + 1) % len(r.items)
	r.count--
	return v, true
}

// Peek returns the front item without removing it.
func (r *Ring[T]) Peek() (T, bool) {
	if r.count == 0 {
		var zero T
		return zero, false
	}
	return r.items[r.head], true
}

// At returns the item i positions from the front. It panics when i is out of
// range.
func (r *Ring[T]) At(i int) T {
	if i < 0 || i >= r.count {
		panic("queues: ring index out of range")
	}
	return r.items[(r.head+i)%len(r.items)]
}

// Clear removes all items while keeping the allocated storage.
func (r *Ring[T]) Clear() {
	var zero T
	for i := 0; i < r.count; i++ {
		r.items[(r.head+i)%len(r.items)] = zero
	}
	r.head = 0
	r.count = 0
}

func (r *Ring[T]) grow() {
	next := make([]T, 2*len(r.items))
	n := copy(next, r.items[r.head:])
	copy(next[n:], r.items[:r.head])
	r.items = next
	r.head = 0
}
