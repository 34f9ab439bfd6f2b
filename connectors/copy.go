package connectors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"
)

const (
	// initialBackoffDuration is the starting duration for exponential backoff
	initialBackoffDuration = 100 * time.Millisecond

	// maxBackoffDuration is the maximum duration for backoff
	maxBackoffDuration = 10 * time.Second
)

// Copy writes every event read from src to dst until src reports
// ErrEndOfInput, src returns a terminal error, or ctx is canceled. Retryable
// read errors are logged and retried with exponential backoff. A sink that
// batches writes is flushed before Copy returns.
func Copy(ctx context.Context, dst SinkWriter, src SourceReader) (err error) {
	if f, ok := dst.(SinkFlusher); ok {
		defer func() {
			err = errors.Join(err, f.Flush())
		}()
	}

	consecutiveFailures := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		backoff(ctx, consecutiveFailures)

		events, readErr := src.ReadEvents()
		for _, e := range events {
			if err := dst.Write(e); err != nil {
				return fmt.Errorf("sink write: %w", err)
			}
		}

		switch {
		case readErr == nil:
			consecutiveFailures = 0
		case errors.Is(readErr, ErrEndOfInput):
			return nil
		case IsRetryable(readErr):
			consecutiveFailures++
			slog.Warn("source read failed", "err", readErr, "failures", consecutiveFailures)
		default:
			return readErr
		}
	}
}

// backoff sleeps for an increasingly longer duration as failures accumulate, up
// to a maximum duration.
func backoff(ctx context.Context, consecutiveFailures int) {
	if consecutiveFailures == 0 {
		return
	}

	factor := math.Pow(2, float64(consecutiveFailures))
	duration := min(time.Duration(float64(initialBackoffDuration)*factor), maxBackoffDuration)

	select {
	case <-ctx.Done():
		return
	case <-time.After(duration):
	}
}
