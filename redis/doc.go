// Package redis backs the transcription result cache with Redis.
//
// Client wraps go-redis with the service logger, config defaults and a
// health probe. TypedStore[C] implements provider.ContextStore[C] by
// storing JSON under a namespaced key:
//
//	client, err := redis.New(cfg.Redis, log)
//	cache := redis.NewTypedStore[transcription.Outcome](client, "asr:outcome")
//	t, err := asr.New(cfg.ASR, tool, backend, asr.WithCache(cache, cfg.ASR.CacheTTL))
package redis
