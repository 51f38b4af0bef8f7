package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrMaxRetriesExceeded matches every *RetryError via errors.Is.
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

// RetryError is returned when every attempt failed with a retryable error.
// It unwraps to the error of the last attempt.
type RetryError struct {
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("%s after %d attempts: %v", ErrMaxRetriesExceeded, e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error { return e.Err }

func (e *RetryError) Is(target error) bool { return target == ErrMaxRetriesExceeded }

// BackoffFunc returns the delay after failed attempt n (1-based).
type BackoffFunc func(attempt int) time.Duration

// LinearBackoff waits step after the first failure, 2*step after the
// second, and so on.
func LinearBackoff(step time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		return step * time.Duration(attempt)
	}
}

// RetryConfig configures Retry.
type RetryConfig struct {
	// MaxAttempts counts the first call. Values below 1 mean one attempt.
	MaxAttempts int
	// Backoff is the delay schedule. Nil retries immediately.
	Backoff BackoffFunc
	// RetryIf selects retryable errors. Nil retries everything except
	// context cancellation and deadline errors.
	RetryIf func(error) bool
	// OnRetry runs before each backoff sleep.
	OnRetry func(attempt int, err error, backoff time.Duration)
}

func (c RetryConfig) retryable(err error) bool {
	if c.RetryIf != nil {
		return c.RetryIf(err)
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func (c RetryConfig) delay(attempt int) time.Duration {
	if c.Backoff == nil {
		return 0
	}
	return max(c.Backoff(attempt), 0)
}

// Retry calls fn until it succeeds, fails with a non-retryable error, or
// MaxAttempts is reached. A non-retryable error is returned unchanged. An
// exhausted loop returns a *RetryError wrapping the last error. No delay
// follows the last attempt, and ctx is checked before every attempt and
// during every sleep.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	attempts := max(cfg.MaxAttempts, 1)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		result, err := fn()
		if err == nil {
			return result, nil
		}
		if !cfg.retryable(err) {
			return zero, err
		}
		if attempt >= attempts {
			return zero, &RetryError{Attempts: attempt, Err: err}
		}

		wait := cfg.delay(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, wait)
		}
		if wait == 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}
