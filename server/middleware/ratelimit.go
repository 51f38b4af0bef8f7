package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/kbukum/asrkit/errors"
	"github.com/kbukum/asrkit/resilience"
)

// RateLimitConfig configures per-client request rate limiting.
type RateLimitConfig struct {
	// RequestsPerMinute is the sustained rate per client. Zero disables
	// the limiter.
	RequestsPerMinute int `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	// Burst is the number of requests a client may send at once.
	Burst int `yaml:"burst" mapstructure:"burst"`
	// KeyFunc extracts the client key. Defaults to the remote IP.
	KeyFunc func(*http.Request) string `yaml:"-" mapstructure:"-"`
	// IdleTTL evicts clients not seen for this long. Defaults to 10 minutes.
	IdleTTL time.Duration `yaml:"idle_ttl" mapstructure:"idle_ttl"`
}

// RateLimit rejects requests over the per-client rate with 429
// RATE_LIMITED. Each client gets its own token bucket.
func RateLimit(cfg RateLimitConfig) Middleware {
	if cfg.RequestsPerMinute <= 0 {
		return nil
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = RemoteIPKey
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	rl := &clientLimiters{cfg: cfg, clients: make(map[string]*clientLimiter), now: time.Now}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.allow(cfg.KeyFunc(r)) {
				w.Header().Set("Retry-After", "60")
				writeError(w, errors.New(errors.ErrCodeRateLimited, "Too many requests, slow down.", http.StatusTooManyRequests))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RemoteIPKey keys clients by the host part of RemoteAddr.
func RemoteIPKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type clientLimiter struct {
	limiter  *resilience.RateLimiter
	lastSeen time.Time
}

type clientLimiters struct {
	cfg       RateLimitConfig
	now       func() time.Time
	mu        sync.Mutex
	clients   map[string]*clientLimiter
	lastSweep time.Time
}

func (c *clientLimiters) allow(key string) bool {
	c.mu.Lock()
	now := c.now()
	if now.Sub(c.lastSweep) > c.cfg.IdleTTL {
		for k, cl := range c.clients {
			if now.Sub(cl.lastSeen) > c.cfg.IdleTTL {
				delete(c.clients, k)
			}
		}
		c.lastSweep = now
	}
	cl, ok := c.clients[key]
	if !ok {
		cl = &clientLimiter{limiter: resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Name:  key,
			Rate:  float64(c.cfg.RequestsPerMinute) / 60,
			Burst: max(1, c.cfg.Burst),
		})}
		c.clients[key] = cl
	}
	cl.lastSeen = now
	c.mu.Unlock()

	return cl.limiter.Allow()
}
