// Package offsets holds growable integer offset arrays that use the narrowest
// storage that fits the values recorded so far.
package offsets

import "math"

// Buffer is an append-only list of non-negative offsets. It starts with 16-bit
// storage and is promoted to 32-bit storage the first time a value does not
// fit.
type Buffer struct {
	narrow []uint16
	wide   []uint32
	isWide bool
}

// New creates a Buffer with room for capacity values before growing.
func New(capacity int) *Buffer {
	return &Buffer{narrow: make([]uint16, 0, capacity)}
}

// Append adds v to the end of the buffer. Negative values or values that do
// not fit in 32 bits panic.
func (b *Buffer) Append(v int) {
	if v < 0 || v > math.MaxUint32 {
		panic("offsets: value out of range")
	}
	if !b.isWide && v > math.MaxUint16 {
		b.promote()
	}
	if b.isWide {
		b.wide = append(b.wide, uint32(v))
		return
	}
	b.narrow = append(b.narrow, uint16(v))
}

// promote copies the 16-bit values into 32-bit storage.
func (b *Buffer) promote() {
	wide := make([]uint32, len(b.narrow), max(cap(b.narrow), 2*len(b.narrow)+1))
	for i, v := range b.narrow {
		wide[i] = uint32(v)
	}
	b.wide = wide
	b.narrow = b.narrow[:0]
	b.isWide = true
}

func (b *Buffer) Len() int {
	if b.isWide {
		return len(b.wide)
	}
	return len(b.narrow)
}

func (b *Buffer) At(i int) int {
	if b.isWide {
		return int(b.wide[i])
	}
	return int(b.narrow[i])
}

// Last returns the last value or -1 when the buffer is empty.
func (b *Buffer) Last() int {
	n := b.Len()
	if n == 0 {
		return -1
	}
	return b.At(n - 1)
}

// Wide reports whether the buffer has been promoted to 32-bit storage.
func (b *Buffer) Wide() bool {
	return b.isWide
}

// Ints returns a copy of the values.
func (b *Buffer) Ints() []int {
	ret := make([]int, b.Len())
	for i := range ret {
		ret[i] = b.At(i)
	}
	return ret
}

// AppendShifted appends every value of b plus shift to dst.
func (b *Buffer) AppendShifted(dst []int, shift int) []int {
	for i := 0; i < b.Len(); i++ {
		dst = append(dst, b.At(i)+shift)
	}
	return dst
}

// Reset empties the buffer and returns it to 16-bit storage while keeping the
// allocated capacity.
func (b *Buffer) Reset() {
	b.narrow = b.narrow[:0]
	b.wide = b.wide[:0]
	b.isWide = false
}
