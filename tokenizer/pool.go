package tokenizer

import "reduction.dev/lineingest/util/queues"

type chunk struct {
	data  []byte
	chars int
	slots int // bytes or chars depending on Mode
}

// pool is an arena of chunk slots addressed by index. The order queue holds
// the slot indexes of held chunks oldest first and released slots are reused
// through the free list.
type pool struct {
	slots      []chunk
	free       []int
	order      *queues.Ring[int]
	capacity   int
	slotBudget int

	heldSlots int
	heldBytes int
	heldChars int
}

func newPool(capacity, slotBudget int) *pool {
	p := &pool{
		slots:      make([]chunk, capacity),
		free:       make([]int, 0, capacity),
		order:      queues.NewRing[int](capacity),
		capacity:   capacity,
		slotBudget: slotBudget,
	}
	for i := capacity - 1; i >= 0; i-- {
		p.free = append(p.free, i)
	}
	return p
}

func (p *pool) len() int {
	return p.order.Len()
}

// at returns the i-th oldest held chunk.
func (p *pool) at(i int) *chunk {
	return &p.slots[p.order.At(i)]
}

// full reports whether adding a chunk of the given slot count would exceed
// the pool's chunk capacity or slot budget.
func (p *pool) full(slots int) bool {
	return p.order.Len() >= p.capacity || p.heldSlots+slots > p.slotBudget
}

func (p *pool) add(c chunk) {
	var id int
	if n := len(p.free); n > 0 {
		id = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		// Grows only when an open record forces more chunks than capacity
		id = len(p.slots)
		p.slots = append(p.slots, chunk{})
	}

	p.slots[id] = c
	p.order.Push(id)
	p.heldSlots += c.slots
	p.heldBytes += len(c.data)
	p.heldChars += c.chars
}

// releaseFront recycles the oldest chunk.
func (p *pool) releaseFront() {
	id, ok := p.order.Pop()
	if !ok {
		return
	}
	c := p.slots[id]
	p.heldSlots -= c.slots
	p.heldBytes -= len(c.data)
	p.heldChars -= c.chars
	p.slots[id] = chunk{}
	p.free = append(p.free, id)
}

func (p *pool) clear() {
	for p.order.Len() > 0 {
		p.releaseFront()
	}
}
