package tokenizer

import (
	"fmt"

	"reduction.dev/lineingest/clocks"
)

// Mode selects how the length of a chunk is counted.
type Mode int

const (
	// Bytes counts every byte as one slot.
	Bytes Mode = iota
	// Chars treats input as UTF-8 and counts characters. Records are never
	// split inside a multi-byte character, even when the character arrived
	// split across two chunks.
	Chars
)

func (m Mode) String() string {
	switch m {
	case Bytes:
		return "bytes"
	case Chars:
		return "chars"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses the String form of a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "bytes", "":
		return Bytes, nil
	case "chars":
		return Chars, nil
	default:
		return 0, fmt.Errorf("unknown tokenizer mode %q (want bytes or chars)", s)
	}
}

// Features toggles the structural hints collected for each record.
type Features struct {
	// KeyValue records the offsets of `=` and `,` delimiters seen outside
	// quotes.
	KeyValue bool
	// CategoryMarker records the offset of the first unquoted `$F` marker.
	CategoryMarker bool
}

var (
	AllFeatures = Features{KeyValue: true, CategoryMarker: true}
	NoFeatures  = Features{}
)

const (
	DefaultPoolCapacity  = 1000
	DefaultMaxRecordSize = 16 * 1024
	DefaultSlotBudget    = DefaultMaxRecordSize + 1
	DefaultMaxKVPairs    = 2000
)

type Params struct {
	Mode Mode
	// Max number of chunks held before Push refuses more unscanned data.
	// Push still accepts a chunk once everything held has been scanned, so an
	// open record arriving in many small chunks can hold more than this until
	// it ends or is split at MaxRecordSize.
	PoolCapacity int
	// Max number of slots (bytes or chars, see Mode) held before Push refuses
	// more unscanned data. Defaults to MaxRecordSize+1.
	SlotBudget int
	// Records longer than this are emitted in MaxRecordSize pieces. A piece
	// is split off only once the character after it has arrived, so a record
	// of exactly MaxRecordSize whose terminator comes in a later chunk is
	// still emitted whole.
	MaxRecordSize int
	Features      Features
	// Max number of key-value delimiter pairs recorded per record.
	MaxKVPairs int
	Clock      clocks.Clock
}

// withDefaults fills in zero values and panics on values no tokenizer can
// work with.
func (p Params) withDefaults() Params {
	if p.Mode != Bytes && p.Mode != Chars {
		panic(fmt.Sprintf("tokenizer: unknown mode %v", p.Mode))
	}
	if p.PoolCapacity < 0 || p.SlotBudget < 0 || p.MaxRecordSize < 0 || p.MaxKVPairs < 0 {
		panic(fmt.Sprintf("tokenizer: negative size in params %+v", p))
	}

	if p.PoolCapacity == 0 {
		p.PoolCapacity = DefaultPoolCapacity
	}
	if p.MaxRecordSize == 0 {
		p.MaxRecordSize = DefaultMaxRecordSize
	}
	if p.SlotBudget == 0 {
		p.SlotBudget = p.MaxRecordSize + 1
	}
	if p.MaxKVPairs == 0 {
		p.MaxKVPairs = DefaultMaxKVPairs
	}
	if p.Clock == nil {
		p.Clock = clocks.NewSystemClock()
	}
	return p
}

// CountChars returns the number of UTF-8 characters that start in b.
// Continuation bytes of a character that started in an earlier chunk are not
// counted, so summing CountChars over the chunks of a stream gives the
// character count of the whole stream.
func CountChars(b []byte) int {
	n := 0
	for _, c := range b {
		if isCharStart(c) {
			n++
		}
	}
	return n
}

func isCharStart(b byte) bool {
	return b&0xC0 != 0x80
}
