package httpclient

import (
	"fmt"
	"time"

	"github.com/kbukum/asrkit/resilience"
)

const defaultTimeout = 30 * time.Second

// Config configures a Client.
type Config struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// Timeout bounds each attempt, not the whole retried call.
	Timeout time.Duration     `yaml:"timeout" mapstructure:"timeout"`
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	Auth        *AuthConfig                   `yaml:"-" mapstructure:"-"`
	Retry       *resilience.RetryConfig       `yaml:"-" mapstructure:"-"`
	RateLimiter *resilience.RateLimiterConfig `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults sets a 30s attempt timeout when none is given.
func (c *Config) ApplyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
}

// Validate checks the timeout and rate limit.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("httpclient: timeout must be positive, got %s", c.Timeout)
	}
	if c.RateLimiter != nil && c.RateLimiter.Rate < 0 {
		return fmt.Errorf("httpclient: rate limit must not be negative")
	}
	if c.Retry != nil && c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("httpclient: retry needs at least one attempt")
	}
	return nil
}

// LinearRetryConfig makes attempts tries in total, sleeping step, 2*step,
// ... between them, and retries only what IsRetryable accepts.
func LinearRetryConfig(attempts int, step time.Duration) *resilience.RetryConfig {
	return &resilience.RetryConfig{
		MaxAttempts: attempts,
		Backoff:     resilience.LinearBackoff(step),
		RetryIf:     IsRetryable,
	}
}
