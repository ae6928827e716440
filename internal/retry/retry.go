// Package retry runs an operation a bounded number of times.
package retry

import (
	"context"
	"time"

	"github.com/newthinker/parley/internal/core"
)

// Policy controls Do.
type Policy struct {
	// MaxAttempts is the total number of attempts; values below 1 mean 1.
	MaxAttempts int
	// Retryable reports whether a failed attempt may be repeated. Nil means
	// nothing is retried.
	Retryable func(error) bool
	// Backoff is the pause between attempts.
	Backoff time.Duration
	// OnRetry is called after a retryable failure that will be retried.
	OnRetry func(attempt int, err error)
}

// Do calls fn until it succeeds, fails with a non-retryable error, or
// MaxAttempts retryable failures have happened. Attempts are numbered from 1.
// A non-retryable error is returned as is; running out of attempts returns
// core.ErrAPIExhausted wrapping the last error.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T

	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		v, err := fn(ctx, attempt)
		if err == nil {
			return v, nil
		}
		if p.Retryable == nil || !p.Retryable(err) {
			return zero, err
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}

		if p.Backoff > 0 {
			timer := time.NewTimer(p.Backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return zero, core.WrapError(core.ErrAPIExhausted, lastErr)
}
