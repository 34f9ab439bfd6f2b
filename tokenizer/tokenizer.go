// Package tokenizer splits a chunked byte stream into newline-terminated
// records. Newlines inside single or double quotes do not end a record,
// records over a size limit are emitted in pieces, and each emission carries
// advisory offsets for a downstream key=value parser.
//
// A Tokenizer is not safe for concurrent use. Processing is time-boxed so a
// caller can interleave many streams on one goroutine.
package tokenizer

import (
	"errors"
	"time"

	"reduction.dev/lineingest/clocks"
	"reduction.dev/lineingest/util/offsets"
)

// ErrPoolExhausted is returned by Push when the tokenizer holds unscanned data
// and has no room for another chunk. Call Process to free capacity.
var ErrPoolExhausted = errors.New("tokenizer pool exhausted")

// checkInterval is the number of bytes scanned between clock reads.
const checkInterval = 1024

type Tokenizer struct {
	handler       Handler
	mode          Mode
	maxRecordSize int
	maxKVOffsets  int
	features      Features
	clock         clocks.Clock
	pool          *pool

	// The pending piece starts at offset head of the oldest chunk. The scan
	// cursor is at offset off of chunk cur. Everything before the cursor has
	// been scanned.
	head int
	cur  int
	off  int

	scan       scanState
	pieceBytes int
	pieceChars int
	dollarAt   int // piece offset of the last unquoted `$`, or -1
	kv         *offsets.Buffer
	marker     int

	chunkBuf [][]byte
}

func New(handler Handler, params Params) *Tokenizer {
	if handler == nil {
		panic("tokenizer: nil handler")
	}
	params = params.withDefaults()

	return &Tokenizer{
		handler:       handler,
		mode:          params.Mode,
		maxRecordSize: params.MaxRecordSize,
		maxKVOffsets:  2 * params.MaxKVPairs,
		features:      params.Features,
		clock:         params.Clock,
		pool:          newPool(params.PoolCapacity, params.SlotBudget),
		dollarAt:      -1,
		kv:            offsets.New(64),
	}
}

// Push adds the first byteLen bytes of data to the pool without scanning
// them. charLen is the character count of the chunk as known by the caller
// (see CountChars). The tokenizer owns data until it has been emitted.
//
// A chunk is always accepted when everything held has been scanned so that an
// open record can keep growing until it is split.
func (t *Tokenizer) Push(data []byte, byteLen, charLen int) error {
	if byteLen == 0 {
		return nil
	}

	slots := byteLen
	if t.mode == Chars {
		slots = charLen
	}
	if t.hasUnscanned() && t.pool.full(slots) {
		poolRejects.Inc()
		return ErrPoolExhausted
	}

	t.pool.add(chunk{data: data[:byteLen], chars: charLen, slots: slots})
	return nil
}

// HasCapacity reports whether Push would accept a one-slot chunk.
func (t *Tokenizer) HasCapacity() bool {
	return !t.hasUnscanned() || !t.pool.full(1)
}

func (t *Tokenizer) hasUnscanned() bool {
	return t.cur < t.pool.len()
}

// Process scans pushed data and calls the handler for every record it
// completes. A positive budget bounds the wall-clock time spent; Process then
// returns true when it stopped before scanning everything and can be called
// again to resume exactly where it left off. With forceFlush, content left
// after the last terminator is emitted as the end of its record once all
// data is scanned.
func (t *Tokenizer) Process(budget time.Duration, forceFlush bool) bool {
	var deadline time.Time
	if budget > 0 {
		deadline = t.clock.Now().Add(budget)
	}

	scanned := 0
	for t.cur < t.pool.len() {
		data := t.pool.at(t.cur).data
		for t.off < len(data) {
			if budget > 0 && scanned >= checkInterval {
				scanned = 0
				if !t.clock.Now().Before(deadline) {
					return true
				}
			}
			t.consume(data[t.off])
			t.off++
			scanned++
		}
		t.nextChunk()
	}

	if forceFlush && t.pieceBytes > 0 {
		forcedFlushes.Inc()
		last := t.pool.len() - 1
		t.emit(last, len(t.pool.at(last).data), false, false)
		t.pool.clear()
		t.resetPosition()
		t.scan = scanState{}
	}
	return false
}

// consume handles the byte at the scan cursor.
func (t *Tokenizer) consume(b byte) {
	quoted := t.scan.quote != unquoted
	escaped := t.scan.escaped
	prevCR := t.scan.prevCR

	if t.scan.step(b) {
		t.emit(t.cur, t.off, prevCR, false)
		t.startPiece(t.off + 1)
		return
	}

	charStart := t.mode == Bytes || isCharStart(b)
	if charStart && t.pieceChars == t.maxRecordSize {
		forcedSplits.Inc()
		t.emit(t.cur, t.off, false, true)
		t.startPiece(t.off)
	}

	if !quoted && !escaped {
		t.collectHints(b)
	}

	if charStart {
		t.pieceChars++
	}
	t.pieceBytes++
}

// collectHints records delimiter and marker offsets for an unquoted,
// unescaped byte at the current piece offset.
func (t *Tokenizer) collectHints(b byte) {
	switch b {
	case '=':
		if t.features.KeyValue && t.kv.Len()%2 == 0 && t.kv.Len() < t.maxKVOffsets {
			t.kv.Append(t.pieceBytes)
		}
	case ',':
		if t.features.KeyValue && t.kv.Len()%2 == 1 {
			t.kv.Append(t.pieceBytes)
		}
	case '$':
		t.dollarAt = t.pieceBytes
	case 'F':
		if t.features.CategoryMarker && t.marker == 0 && t.dollarAt >= 0 && t.dollarAt == t.pieceBytes-1 {
			t.marker = t.dollarAt + 1
		}
	}
}

// emit passes the pending piece up to (endCur, endOff) to the handler.
func (t *Tokenizer) emit(endCur, endOff int, trimCR, more bool) {
	chunks := t.chunkBuf[:0]
	for i := 0; i <= endCur; i++ {
		data := t.pool.at(i).data
		start, end := 0, len(data)
		if i == 0 {
			start = t.head
		}
		if i == endCur {
			end = endOff
		}
		if end > start {
			chunks = append(chunks, data[start:end])
		}
	}

	// The carriage return of a CRLF terminator is the last pending byte.
	if trimCR && len(chunks) > 0 {
		last := len(chunks) - 1
		chunks[last] = chunks[last][:len(chunks[last])-1]
		if len(chunks[last]) == 0 {
			chunks = chunks[:last]
		}
	}

	rec := Record{Chunks: chunks, Marker: t.marker, More: more}
	if t.kv.Len() > 0 {
		rec.KV = t.kv
	}
	if !more {
		recordsEmitted.Inc()
	}
	t.handler(rec)

	clear(chunks)
	t.chunkBuf = chunks[:0]
}

// startPiece starts a new piece at offset off of the cursor chunk and
// releases the chunks before it.
func (t *Tokenizer) startPiece(off int) {
	for ; t.cur > 0; t.cur-- {
		t.pool.releaseFront()
	}
	t.head = off
	t.pieceBytes = 0
	t.pieceChars = 0
	t.dollarAt = -1
	t.marker = 0
	t.kv.Reset()
}

// nextChunk moves the cursor past a fully scanned chunk, releasing it when
// none of its bytes are pending.
func (t *Tokenizer) nextChunk() {
	if t.cur == 0 && t.head >= len(t.pool.at(0).data) {
		t.pool.releaseFront()
		t.head = 0
	} else {
		t.cur++
	}
	t.off = 0
}

func (t *Tokenizer) resetPosition() {
	t.head, t.cur, t.off = 0, 0, 0
	t.pieceBytes = 0
	t.pieceChars = 0
	t.dollarAt = -1
	t.marker = 0
	t.kv.Reset()
}

// Erase discards all held chunks, the pending record and the quote state.
func (t *Tokenizer) Erase() {
	t.pool.clear()
	t.resetPosition()
	t.scan = scanState{}
}

// IsReady reports whether a Process call without forceFlush would emit
// something, either a terminated record or a forced split of an oversized
// one.
func (t *Tokenizer) IsReady() bool {
	s := t.scan
	chars := t.pieceChars
	off := t.off
	for i := t.cur; i < t.pool.len(); i++ {
		data := t.pool.at(i).data
		for ; off < len(data); off++ {
			b := data[off]
			if s.step(b) {
				return true
			}
			if t.mode == Bytes || isCharStart(b) {
				if chars == t.maxRecordSize {
					return true
				}
				chars++
			}
		}
		off = 0
	}
	return false
}

// Buffers returns the number of chunks held.
func (t *Tokenizer) Buffers() int {
	return t.pool.len()
}

// Bytes returns the number of bytes held, including already emitted bytes of
// partially consumed chunks.
func (t *Tokenizer) Bytes() int {
	return t.pool.heldBytes
}

// Length returns the number of characters held.
func (t *Tokenizer) Length() int {
	return t.pool.heldChars
}
