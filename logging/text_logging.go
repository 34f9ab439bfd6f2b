package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"
)

// TextHandler writes one line per record with the emitting connection or
// listener in brackets so a single stream can be filtered with grep:
//
//	2025/01/02 15:04:05 INFO [2bHw1...] closed records=12
type TextHandler struct {
	w          io.Writer
	instanceID string
	mu         *sync.Mutex // Serializes writes to w
	attrs      []slog.Attr
	prefix     string // Dotted group path for attrs added after WithGroup
}

// NewTextHandler writes to w, or to stderr when w is nil.
func NewTextHandler(w io.Writer) *TextHandler {
	if w == nil {
		w = os.Stderr
	}
	return &TextHandler{
		w:          w,
		mu:         &sync.Mutex{},
		instanceID: "root",
	}
}

func (h *TextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= globalLevel.Level()
}

func (h *TextHandler) Handle(ctx context.Context, r slog.Record) error {
	t := r.Time
	if t.IsZero() {
		t = time.Now()
	}
	buf := make([]byte, 0, 1024)
	buf = t.AppendFormat(buf, "2006/01/02 15:04:05")
	buf = fmt.Appendf(buf, " %s [%s] %s", r.Level.String(), h.instanceID, r.Message)

	for _, a := range h.attrs {
		buf = appendAttr(buf, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		buf = appendAttr(buf, h.prefix, a)
		return true
	})
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf)
	return err
}

func (h *TextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	// The instance ID moves to its own slot instead of being written as a
	// regular attribute.
	next := h.clone()
	for i, a := range attrs {
		if a.Key == "instanceID" && h.prefix == "" {
			next.instanceID = a.Value.String()
			attrs = slices.Delete(slices.Clone(attrs), i, i+1)
			break
		}
	}

	for _, a := range attrs {
		if h.prefix != "" {
			a.Key = h.prefix + a.Key
		}
		next.attrs = append(next.attrs, a)
	}
	return next
}

func (h *TextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	next.prefix = h.prefix + name + "."
	return next
}

func (h *TextHandler) clone() *TextHandler {
	return &TextHandler{
		w:          h.w,
		mu:         h.mu,
		instanceID: h.instanceID,
		attrs:      slices.Clip(h.attrs),
		prefix:     h.prefix,
	}
}

func appendAttr(buf []byte, prefix string, a slog.Attr) []byte {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return buf
	}
	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			buf = appendAttr(buf, prefix, ga)
		}
		return buf
	}
	buf = fmt.Appendf(buf, " %s%s=", prefix, a.Key)
	return appendValue(buf, a.Value)
}

// Append a value to the buffer wrapping in quotes if needed.
func appendValue(buf []byte, value slog.Value) []byte {
	s := value.String()
	if needsQuoting(s) {
		return fmt.Appendf(buf, "%q", s)
	}
	return append(buf, s...)
}

// Only spaces, `=` and non-printing runes need quoting with the text logger.
func needsQuoting(s string) bool {
	if len(s) == 0 {
		return true
	}
	for i := 0; i < len(s); {
		b := s[i]
		if b < utf8.RuneSelf {
			if b == ' ' || b == '=' || b == '"' || b < 0x20 {
				return true
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError || unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return true
		}
		i += size
	}
	return false
}
