// Package stdio reads appliance records from a byte stream such as stdin and
// writes formatted records to a stream such as stdout.
package stdio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
	"reduction.dev/lineingest/connectors"
	"reduction.dev/lineingest/ingest"
	"reduction.dev/lineingest/records"
	"reduction.dev/lineingest/tokenizer"
	"reduction.dev/lineingest/util/size"
)

// readSize is the size of a single read from the input.
const readSize = 64 * size.KB

type SourceConfig struct {
	// Defaults to os.Stdin.
	In io.Reader
	// Name attached to every record. Defaults to "stdin".
	Name      string
	Tokenizer tokenizer.Params
	Ingest    ingest.Params
	// Charset of the input. Nil reads the input as UTF-8.
	Encoding encoding.Encoding
	// Defaults to records.RawFormatter.
	Formatter        records.Formatter
	MaxAssembledSize int
}

// SourceReader frames its input into records with a tokenizer fed through an
// ingestion buffer. Each ReadEvents call reads once from the input and
// returns the formatted records completed so far.
type SourceReader struct {
	in        io.Reader
	mode      tokenizer.Mode
	buf       *ingest.Buffer
	formatter records.Formatter
	events    [][]byte
	err       error
	done      bool
}

func NewSourceReader(config SourceConfig) *SourceReader {
	if config.In == nil {
		config.In = os.Stdin
	}
	if config.Name == "" {
		config.Name = "stdin"
	}
	if config.Formatter == nil {
		config.Formatter = records.RawFormatter{}
	}
	in := config.In
	if config.Encoding != nil {
		in = transform.NewReader(in, config.Encoding.NewDecoder())
	}

	s := &SourceReader{
		in:        in,
		mode:      config.Tokenizer.Mode,
		formatter: config.Formatter,
	}
	asm := records.NewAssembler(config.Name, config.MaxAssembledSize, s.collect)
	tok := tokenizer.New(asm.Handle, config.Tokenizer)
	s.buf = ingest.NewBuffer(tok, config.Ingest)
	return s
}

func (s *SourceReader) collect(r records.Record) {
	event, err := s.formatter.Format(r)
	if err != nil {
		s.err = errors.Join(s.err, err)
		return
	}
	s.events = append(s.events, event)
}

func (s *SourceReader) ReadEvents() ([][]byte, error) {
	if s.done {
		return nil, connectors.ErrEndOfInput
	}

	data := make([]byte, readSize)
	n, readErr := s.in.Read(data)
	if n > 0 {
		chars := n
		if s.mode == tokenizer.Chars {
			chars = tokenizer.CountChars(data[:n])
		}
		s.buf.Push(data, n, chars)
	}

	atEOF := errors.Is(readErr, io.EOF)
	s.buf.Process(0, atEOF)

	events, err := s.events, s.err
	s.events, s.err = nil, nil
	if err != nil {
		return events, connectors.NewTerminalError(fmt.Errorf("format record: %w", err))
	}

	if atEOF {
		s.done = true
		return events, connectors.ErrEndOfInput
	}
	if readErr != nil {
		return events, connectors.NewReadError(readErr)
	}
	return events, nil
}

var _ connectors.SourceReader = (*SourceReader)(nil)
