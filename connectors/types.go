package connectors

// SourceReader returns batches of events. ReadEvents returns ErrEndOfInput,
// possibly along with a final batch, once the source is exhausted.
type SourceReader interface {
	ReadEvents() ([][]byte, error)
}

type SinkWriter interface {
	Write([]byte) error
}

// SinkFlusher is implemented by sinks that batch writes.
type SinkFlusher interface {
	SinkWriter
	Flush() error
}

// KeyedSinkWriter is implemented by sinks that partition records by key.
type KeyedSinkWriter interface {
	SinkWriter
	WriteKeyed(key string, v []byte) error
}
