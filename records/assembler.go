package records

import (
	"reduction.dev/lineingest/tokenizer"
)

const DefaultMaxAssembledSize = 1024 * 1024

// Assembler joins the pieces of oversized records back together. Its Handle
// method is a tokenizer.Handler.
type Assembler struct {
	source   string
	maxSize  int
	onRecord func(Record)

	data      []byte
	kv        []int
	marker    int
	truncated bool
}

// NewAssembler calls onRecord with every complete record. Records longer than
// maxSize bytes are cut to maxSize and flagged as truncated.
func NewAssembler(source string, maxSize int, onRecord func(Record)) *Assembler {
	if maxSize <= 0 {
		maxSize = DefaultMaxAssembledSize
	}
	return &Assembler{source: source, maxSize: maxSize, onRecord: onRecord}
}

func (a *Assembler) Handle(r tokenizer.Record) {
	shift := len(a.data)
	room := a.maxSize - shift

	for _, c := range r.Chunks {
		if len(c) > room {
			c = c[:room]
			a.truncated = true
		}
		a.data = append(a.data, c...)
		room -= len(c)
	}

	if r.KV != nil {
		for i := 0; i < r.KV.Len(); i++ {
			if off := r.KV.At(i) + shift; off < len(a.data) {
				a.kv = append(a.kv, off)
			}
		}
	}
	if a.marker == 0 && r.Marker > 0 && r.Marker+shift < len(a.data) {
		a.marker = r.Marker + shift
	}

	if r.More {
		return
	}

	a.onRecord(Record{
		Source:    a.source,
		Data:      a.data,
		KV:        a.kv,
		Marker:    a.marker,
		Truncated: a.truncated,
	})
	a.data = nil
	a.kv = nil
	a.marker = 0
	a.truncated = false
}

// Pending reports whether pieces of an unfinished record are held.
func (a *Assembler) Pending() bool {
	return len(a.data) > 0 || a.truncated
}

// Reset drops the pieces of an unfinished record.
func (a *Assembler) Reset() {
	a.data = nil
	a.kv = nil
	a.marker = 0
	a.truncated = false
}
