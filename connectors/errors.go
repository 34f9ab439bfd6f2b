package connectors

import (
	"errors"

	"github.com/bassosimone/errclass"
)

// ErrEndOfInput is returned by a SourceReader once its input is exhausted.
var ErrEndOfInput = errors.New("end of input")

// SourceError wraps errors from source readers with their error class and
// whether reading may resume.
type SourceError struct {
	Err       error
	Class     string
	Retryable bool
}

func (e *SourceError) Error() string {
	return e.Err.Error()
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

func NewRetryableError(err error) *SourceError {
	return &SourceError{Err: err, Class: errclass.New(err), Retryable: true}
}

func NewTerminalError(err error) *SourceError {
	return &SourceError{Err: err, Class: errclass.New(err), Retryable: false}
}

// Read errors in these classes leave the stream usable.
var retryableClasses = map[string]bool{
	errclass.ETIMEDOUT: true,
	"EINTR":            true,
	"EAGAIN":           true,
}

// NewReadError classifies an error returned by a stream read. Timeouts and
// interrupted calls are retryable. Anything else ends the stream.
func NewReadError(err error) *SourceError {
	class := errclass.New(err)
	return &SourceError{Err: err, Class: class, Retryable: retryableClasses[class]}
}

// IsConnectionReset reports whether the peer reset the connection, in which
// case the last record it sent may be incomplete.
func IsConnectionReset(err error) bool {
	var sourceErr *SourceError
	if errors.As(err, &sourceErr) {
		return sourceErr.Class == "ECONNRESET"
	}
	return err != nil && errclass.New(err) == "ECONNRESET"
}

// IsRetryable reports whether an error was marked retryable. Errors that were
// never classified are retried.
func IsRetryable(err error) bool {
	var sourceErr *SourceError
	if errors.As(err, &sourceErr) {
		return sourceErr.Retryable
	}
	return true
}
