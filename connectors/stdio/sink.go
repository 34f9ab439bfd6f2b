package stdio

import (
	"io"
	"os"
	"sync"

	"reduction.dev/lineingest/connectors"
)

type SinkConfig struct {
	// Defaults to os.Stdout.
	Out io.Writer
}

// Sink writes each record on its own line. It is safe for concurrent use.
type Sink struct {
	mu  sync.Mutex
	out io.Writer
}

func NewSink(config SinkConfig) *Sink {
	if config.Out == nil {
		config.Out = os.Stdout
	}
	return &Sink{out: config.Out}
}

func (s *Sink) Write(v []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line := make([]byte, 0, len(v)+1)
	line = append(line, v...)
	line = append(line, '\n')
	_, err := s.out.Write(line)
	return err
}

var _ connectors.SinkWriter = (*Sink)(nil)
