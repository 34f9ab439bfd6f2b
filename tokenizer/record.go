package tokenizer

import "reduction.dev/lineingest/util/offsets"

// Record is one emission of the tokenizer. A record longer than the max
// record size is emitted as several Records with More set on all but the
// last one.
//
// Chunks and KV reference tokenizer-owned memory and are only valid until the
// handler returns.
type Record struct {
	// Slices whose concatenation is the emitted content, without the
	// terminator.
	Chunks [][]byte
	// Offsets of `=` and `,` delimiters, alternating key and value
	// delimiters, relative to the emitted content. Nil when none were seen.
	KV *offsets.Buffer
	// Offset one past the `$` of the first unquoted `$F` marker, so that
	// content[Marker-1:Marker+1] is "$F". Zero when absent.
	Marker int
	// More content of the same record follows in a later emission.
	More bool
}

// Handler receives each emission. It must not retain Chunks or KV.
type Handler func(Record)

func (r Record) Len() int {
	n := 0
	for _, c := range r.Chunks {
		n += len(c)
	}
	return n
}

// AppendTo appends the emitted content to dst.
func (r Record) AppendTo(dst []byte) []byte {
	for _, c := range r.Chunks {
		dst = append(dst, c...)
	}
	return dst
}

func (r Record) Bytes() []byte {
	return r.AppendTo(make([]byte, 0, r.Len()))
}
