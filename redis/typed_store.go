package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/asrkit/provider"
)

// TypedStore keeps JSON-encoded values of type C under "prefix:key".
type TypedStore[C any] struct {
	rdb    *goredis.Client
	prefix string
}

// NewTypedStore returns a store on client. An empty prefix leaves keys
// as given.
func NewTypedStore[C any](client *Client, prefix string) *TypedStore[C] {
	if prefix != "" {
		prefix += ":"
	}
	return &TypedStore[C]{rdb: client.rdb, prefix: prefix}
}

// Load returns (nil, nil) when the key is absent or expired. A value that
// is not valid JSON for C is an error.
func (s *TypedStore[C]) Load(ctx context.Context, key string) (*C, error) {
	raw, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	switch {
	case stderrors.Is(err, goredis.Nil):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	v := new(C)
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, fmt.Errorf("redis decode %s: %w", key, err)
	}
	return v, nil
}

// Save writes val with ttl; zero keeps it forever. A nil val deletes key.
func (s *TypedStore[C]) Save(ctx context.Context, key string, val *C, ttl time.Duration) error {
	if val == nil {
		return s.Delete(ctx, key)
	}
	raw, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("redis encode %s: %w", key, err)
	}
	if err := s.rdb.Set(ctx, s.prefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *TypedStore[C]) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

var _ provider.ContextStore[any] = (*TypedStore[any])(nil)
