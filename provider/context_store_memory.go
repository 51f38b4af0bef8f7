package provider

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a ContextStore for one process. It stores copies, so
// neither the saved nor the loaded pointer aliases the entry. Expired
// entries are invisible; Load, Purge or PurgeEvery reclaims them.
type MemoryStore[C any] struct {
	mu    sync.RWMutex
	items map[string]memEntry[C]
	now   func() time.Time
}

type memEntry[C any] struct {
	val      C
	deadline time.Time // zero: never expires
}

func (e memEntry[C]) expiredAt(t time.Time) bool {
	return !e.deadline.IsZero() && !t.Before(e.deadline)
}

// MemoryOption tunes a MemoryStore.
type MemoryOption func(*memoryConfig)

type memoryConfig struct{ now func() time.Time }

// WithMemoryClock replaces time.Now for expiry.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(c *memoryConfig) { c.now = now }
}

func NewMemoryStore[C any](opts ...MemoryOption) *MemoryStore[C] {
	cfg := memoryConfig{now: time.Now}
	for _, o := range opts {
		o(&cfg)
	}
	return &MemoryStore[C]{items: map[string]memEntry[C]{}, now: cfg.now}
}

func (s *MemoryStore[C]) Load(_ context.Context, key string) (*C, error) {
	now := s.now()
	s.mu.RLock()
	e, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if !e.expiredAt(now) {
		v := e.val
		return &v, nil
	}

	s.mu.Lock()
	if cur, ok := s.items[key]; ok && cur.expiredAt(now) {
		delete(s.items, key)
	}
	s.mu.Unlock()
	return nil, nil
}

// Save stores a copy of *val; a nil val deletes key.
func (s *MemoryStore[C]) Save(ctx context.Context, key string, val *C, ttl time.Duration) error {
	if val == nil {
		return s.Delete(ctx, key)
	}
	e := memEntry[C]{val: *val}
	if ttl > 0 {
		e.deadline = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.items[key] = e
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore[C]) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}

// Purge drops expired entries and reports how many went.
func (s *MemoryStore[C]) Purge() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.items)
	for k, e := range s.items {
		if e.expiredAt(now) {
			delete(s.items, k)
		}
	}
	return before - len(s.items)
}

// PurgeEvery calls Purge on every tick of interval until ctx is done.
func (s *MemoryStore[C]) PurgeEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Purge()
		}
	}
}

// Len counts entries, expired ones not yet reclaimed included.
func (s *MemoryStore[C]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

var _ ContextStore[any] = (*MemoryStore[any])(nil)
