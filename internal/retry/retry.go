// Package retry provides a bounded fixed-backoff retry policy for upstream
// calls.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy retries an operation up to MaxAttempts times, sleeping Backoff
// between attempts. Retryable decides whether an error is worth another
// attempt; a nil predicate retries everything.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
	Retryable   func(error) bool
}

// Do runs op until it succeeds, returns a non-retryable error, the attempt
// budget is exhausted, or ctx is cancelled.
func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(p.Backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := op()
		if err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("max attempts (%d) exceeded: %w", attempts, lastErr)
}
