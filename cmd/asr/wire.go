package main

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/asrkit/asr"
	"github.com/kbukum/asrkit/bootstrap"
	"github.com/kbukum/asrkit/logger"
	"github.com/kbukum/asrkit/media"
	"github.com/kbukum/asrkit/observability"
	"github.com/kbukum/asrkit/provider"
	"github.com/kbukum/asrkit/redis"
	"github.com/kbukum/asrkit/transcription"
)

type application = bootstrap.App[*AppConfig]

// deps are the pieces built from the config and shared by the commands.
type deps struct {
	transcriber *asr.Transcriber
	metrics     *observability.Metrics
}

// wire builds the transcriber and registers every resource that needs a
// shutdown with app.
func wire(ctx context.Context, app *application) (*deps, error) {
	cfg := app.Cfg
	log := app.Logger

	metrics, shutdown, err := observability.Init(ctx, cfg.Observability)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	if err := app.Register(bootstrap.NewComponent("telemetry", nil, shutdown)); err != nil {
		return nil, err
	}

	tool := media.NewFFmpeg(cfg.ASR.MediaConfig(), nil)
	app.AddHealthCheck(observability.CheckFunc{Name: "ffmpeg", Check: tool.Check})

	backend, err := asr.NewBackend(cfg.ASR, log, metrics)
	if err != nil {
		return nil, err
	}
	app.AddHealthCheck(observability.CheckFunc{
		Name: "backend",
		Check: func(ctx context.Context) error {
			if !backend.IsAvailable(ctx) {
				return fmt.Errorf("%s backend is not available", backend.Name())
			}
			return nil
		},
	})

	cache, err := newCache(app)
	if err != nil {
		return nil, err
	}

	t, err := asr.New(cfg.ASR, tool, backend,
		asr.WithLogger(log),
		asr.WithMetrics(metrics),
		asr.WithCache(cache, cfg.ASR.CacheTTL),
	)
	if err != nil {
		return nil, err
	}

	log.Debug("transcriber ready", logger.Fields(
		"provider", cfg.ASR.Provider,
		"max_chunk_duration", cfg.ASR.MaxChunkDuration,
		"max_concurrency", cfg.ASR.MaxConcurrency,
		"api_key", cfg.ASR.Redacted().APIKey,
		"redis", cfg.Redis.Enabled,
	))
	return &deps{transcriber: t, metrics: metrics}, nil
}

// newCache returns the Redis-backed outcome cache when enabled and an
// in-process cache otherwise. The in-process cache is purged periodically
// while the app runs. Redis is optional: when it is down the
// service reports degraded and transcribes without cache hits.
func newCache(app *application) (provider.ContextStore[transcription.Outcome], error) {
	cfg := app.Cfg.Redis
	if !cfg.Enabled {
		store := provider.NewMemoryStore[transcription.Outcome]()
		if ttl := app.Cfg.ASR.CacheTTL; ttl > 0 {
			if err := app.Register(cachePurger(store, purgeInterval(ttl))); err != nil {
				return nil, err
			}
		}
		return store, nil
	}

	client, err := redis.New(cfg, app.Logger)
	if err != nil {
		return nil, err
	}
	closeFn := func(context.Context) error { return client.Close() }
	if err := app.Register(bootstrap.NewComponent("redis", nil, closeFn)); err != nil {
		return nil, err
	}
	app.AddHealthCheck(client)
	return redis.NewTypedStore[transcription.Outcome](client, cfg.KeyPrefix), nil
}

// minPurgeInterval bounds how often the in-process cache is swept.
const minPurgeInterval = time.Minute

// purgeInterval sweeps four times per TTL, at most once a minute.
func purgeInterval(ttl time.Duration) time.Duration {
	return max(ttl/4, minPurgeInterval)
}

// cachePurger runs store.PurgeEvery between component start and stop.
func cachePurger(store *provider.MemoryStore[transcription.Outcome], every time.Duration) bootstrap.Component {
	var cancel context.CancelFunc
	done := make(chan struct{})
	start := func(context.Context) error {
		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		go func() {
			defer close(done)
			store.PurgeEvery(ctx, every)
		}()
		return nil
	}
	stop := func(ctx context.Context) error {
		cancel()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return bootstrap.NewComponent("cache-purge", start, stop)
}
