package tokenizer

type quote uint8

const (
	unquoted quote = iota
	singleQuoted
	doubleQuoted
)

// scanState is the quote and escape state carried from one byte to the next,
// including across chunk boundaries and forced splits.
type scanState struct {
	quote quote
	// The previous byte ended an odd run of backslashes.
	escaped bool
	// The previous byte was a carriage return.
	prevCR bool
}

// step advances the state over b and reports whether b terminates a record.
// Only a newline outside quotes terminates a record. Backslashes escape quote
// characters but not a newline byte.
func (s *scanState) step(b byte) bool {
	switch b {
	case '\n':
		if s.quote == unquoted {
			*s = scanState{}
			return true
		}
	case '\\':
		s.escaped = !s.escaped
		s.prevCR = false
		return false
	case '"':
		if !s.escaped {
			s.toggle(doubleQuoted)
		}
	case '\'':
		if !s.escaped {
			s.toggle(singleQuoted)
		}
	}
	s.escaped = false
	s.prevCR = b == '\r'
	return false
}

// toggle opens q when unquoted and closes it when q is the open quote. The
// other quote character has no effect inside q.
func (s *scanState) toggle(q quote) {
	switch s.quote {
	case unquoted:
		s.quote = q
	case q:
		s.quote = unquoted
	}
}
