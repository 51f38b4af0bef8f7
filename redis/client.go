package redis

import (
	"context"
	"fmt"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/asrkit/errors"
	"github.com/kbukum/asrkit/logger"
	"github.com/kbukum/asrkit/observability"
)

// Client is the connection pool behind the shared outcome cache.
type Client struct {
	rdb       *goredis.Client
	addr      string
	log       *logger.Logger
	closeOnce sync.Once
	closeErr  error
}

// New builds the pool without dialing. A disabled or invalid config is a
// configuration error.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	cfg.ApplyDefaults()
	if !cfg.Enabled {
		return nil, errors.Configuration("redis is disabled")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Configuration(err.Error()).WithCause(err)
	}
	if log == nil {
		log = logger.Nop()
	}
	log = log.WithComponent("redis")

	c := &Client{
		rdb: goredis.NewClient(&goredis.Options{
			Addr:         cfg.Addr,
			Password:     cfg.Password,
			DB:           cfg.DB,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: cfg.MinIdleConns,
			MaxRetries:   cfg.MaxRetries,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		}),
		addr: cfg.Addr,
		log:  log,
	}
	log.Info("redis cache configured", logger.Fields("addr", cfg.Addr, "db", cfg.DB, "key_prefix", cfg.KeyPrefix))
	return c, nil
}

// Ping round-trips a PING.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping %s: %w", c.addr, err)
	}
	return nil
}

// CheckHealth reports degraded rather than down when Redis is
// unreachable, since transcription works without the cache.
func (c *Client) CheckHealth(ctx context.Context) observability.Health {
	h := observability.Health{Name: "redis", Status: observability.HealthStatusUp, Details: map[string]string{"addr": c.addr}}
	if err := c.Ping(ctx); err != nil {
		h.Status, h.Message = observability.HealthStatusDegraded, err.Error()
	}
	return h
}

// Close releases the pool. Later calls, and calls on a nil Client, are
// no-ops.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.closeOnce.Do(func() {
		c.log.Info("closing redis connection")
		c.closeErr = c.rdb.Close()
	})
	return c.closeErr
}

var _ observability.HealthChecker = (*Client)(nil)
