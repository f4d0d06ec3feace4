package engine

import (
	"context"
	"errors"
	"time"
)

// Backoff is a deterministic bounded exponential backoff schedule. It holds
// no state of its own and is usable from any concurrency model; callers
// track the attempt counter.
type Backoff struct {
	Base        time.Duration
	Max         time.Duration
	MaxAttempts int
}

var DefaultBackoff = Backoff{
	Base:        200 * time.Millisecond,
	Max:         2 * time.Second,
	MaxAttempts: 3,
}

// Delay returns the pause before the given retry attempt. Attempt 1 waits
// Base, each further attempt doubles, capped at Max.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	if attempt > 30 {
		return b.Max
	}
	d := b.Base << uint(attempt-1)
	if d <= 0 || d > b.Max {
		d = b.Max
	}
	return d
}

// retryableError marks a failure that may succeed on a later attempt.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func retryable(err error) bool {
	var r *retryableError
	return errors.As(err, &r)
}

// retry runs fn under the backoff schedule. Non-retryable failures are
// surfaced immediately; retryable ones are retried until the attempt bound
// or context cancellation.
func (b Backoff) retry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= b.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return lastErr
			case <-time.After(b.Delay(attempt)):
			}
		}
		err := fn()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		lastErr = err
	}
	return lastErr
}
