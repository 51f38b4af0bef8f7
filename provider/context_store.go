package provider

import (
	"context"
	"time"
)

// ContextStore is typed key/value persistence with optional expiry. The
// transcription pipeline uses it to cache per-chunk outcomes; MemoryStore
// serves a single process and redis.TypedStore a fleet.
//
// Keys are opaque to the store. A TTL of 0 means no expiration.
type ContextStore[C any] interface {
	// Load returns (nil, nil) when the key is absent or expired.
	Load(ctx context.Context, key string) (*C, error)
	// Save stores val under key, replacing any previous value.
	Save(ctx context.Context, key string, val *C, ttl time.Duration) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
