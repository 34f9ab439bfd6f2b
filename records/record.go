// Package records turns tokenizer emissions into owned records and formats
// them for sinks. It is the first consumer of the tokenizer hints.
package records

import "bytes"

// Record is one complete logical record.
type Record struct {
	// Connection or stream that produced the record.
	Source string
	Data   []byte
	// Delimiter offsets from the tokenizer, re-based to the start of Data.
	// Nil when the tokenizer saw no delimiters or hints were disabled.
	KV []int
	// Offset one past the `$` of the category marker, or zero.
	Marker int
	// The record was longer than the assembler allowed and was cut.
	Truncated bool
}

type Pair struct {
	Key   string
	Value string
}

// Pairs extracts key=value pairs separated by commas. The KV hint is used
// when present, otherwise Data is scanned.
func (r Record) Pairs() []Pair {
	offsets := r.KV
	if offsets == nil {
		offsets = scanDelimiters(r.Data)
	}

	var pairs []Pair
	keyStart, valueStart := 0, -1
	for _, off := range offsets {
		if off < 0 || off >= len(r.Data) {
			continue
		}
		switch r.Data[off] {
		case '=':
			if valueStart < 0 {
				valueStart = off + 1
				pairs = append(pairs, Pair{Key: cleanKey(r.Data[keyStart:off])})
			}
		case ',':
			if valueStart >= 0 {
				pairs[len(pairs)-1].Value = cleanValue(r.Data[valueStart:off])
				keyStart, valueStart = off+1, -1
			}
		}
	}
	if valueStart >= 0 {
		pairs[len(pairs)-1].Value = cleanValue(r.Data[valueStart:])
	}
	return pairs
}

// Category returns the word following the `$F` marker.
func (r Record) Category() string {
	if r.Marker <= 0 || r.Marker+1 > len(r.Data) {
		return ""
	}
	rest := r.Data[r.Marker+1:]
	if end := bytes.IndexAny(rest, " \t,;=\"'"); end >= 0 {
		rest = rest[:end]
	}
	return string(rest)
}

func cleanKey(b []byte) string {
	b = bytes.TrimSpace(b)
	// Only the last word before the delimiter is the key
	if i := bytes.LastIndexAny(b, " \t"); i >= 0 {
		b = b[i+1:]
	}
	return string(b)
}

func cleanValue(b []byte) string {
	b = bytes.TrimSpace(b)
	if len(b) >= 2 && (b[0] == '"' || b[0] == '\'') && b[len(b)-1] == b[0] {
		b = b[1 : len(b)-1]
	}
	return string(b)
}

// scanDelimiters finds unquoted `=` and `,` offsets.
func scanDelimiters(data []byte) []int {
	var ret []int
	var quote byte
	escaped := false
	for i, c := range data {
		switch {
		case escaped:
			escaped = false
			continue
		case c == '\\':
			escaped = true
			continue
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '=' || c == ',':
			ret = append(ret, i)
		}
	}
	return ret
}
