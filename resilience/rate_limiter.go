package resilience

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimiterConfig configures a RateLimiter.
type RateLimiterConfig struct {
	Name string
	// Rate is requests per second. Defaults to 10.
	Rate float64
	// Burst defaults to Rate rounded down, at least 1.
	Burst int
}

// RateLimiter is a token bucket shared by concurrent callers.
type RateLimiter struct {
	name string
	lim  *rate.Limiter
}

// NewRateLimiter returns a limiter that starts with a full bucket.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.Rate <= 0 {
		cfg.Rate = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = max(1, int(cfg.Rate))
	}
	return &RateLimiter{name: cfg.Name, lim: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst)}
}

// Allow takes a token if one is available.
func (rl *RateLimiter) Allow() bool { return rl.lim.Allow() }

// Wait blocks until a token is available. It fails early with
// context.DeadlineExceeded when the token would arrive after ctx's
// deadline, and the reservation is returned to the bucket.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if err := rl.lim.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("rate limiter %s: %w", rl.name, context.DeadlineExceeded)
	}
	return nil
}
