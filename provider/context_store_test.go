package provider

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type cachedOutcome struct {
	Text     string
	Segments []string
}

func TestMemoryStore_SaveLoadDelete(t *testing.T) {
	store := NewMemoryStore[cachedOutcome]()
	ctx := context.Background()

	if got, err := store.Load(ctx, "missing"); err != nil || got != nil {
		t.Fatalf("Load(missing) = %v, %v", got, err)
	}

	v := cachedOutcome{Text: "你好", Segments: []string{"a"}}
	if err := store.Save(ctx, "k", &v, 0); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Load(ctx, "k")
	if err != nil || got == nil || got.Text != "你好" {
		t.Fatalf("Load = %+v, %v", got, err)
	}

	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := store.Load(ctx, "k"); got != nil {
		t.Fatalf("expected nil after delete, got %+v", got)
	}
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("deleting an absent key: %v", err)
	}
}

func TestMemoryStore_StoresCopies(t *testing.T) {
	store := NewMemoryStore[cachedOutcome]()
	ctx := context.Background()

	v := cachedOutcome{Text: "first"}
	_ = store.Save(ctx, "k", &v, 0)
	v.Text = "mutated after save"

	got, _ := store.Load(ctx, "k")
	if got.Text != "first" {
		t.Fatalf("stored value changed through caller pointer: %q", got.Text)
	}
	got.Text = "mutated after load"
	again, _ := store.Load(ctx, "k")
	if again.Text != "first" {
		t.Fatalf("stored value changed through loaded pointer: %q", again.Text)
	}
}

func TestMemoryStore_TTL(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	store := NewMemoryStore[string](WithMemoryClock(clock.Now))
	ctx := context.Background()

	short, long := "short", "long"
	_ = store.Save(ctx, "short", &short, time.Minute)
	_ = store.Save(ctx, "long", &long, time.Hour)
	_ = store.Save(ctx, "forever", &long, 0)

	clock.Advance(59 * time.Second)
	if got, _ := store.Load(ctx, "short"); got == nil {
		t.Fatal("entry expired early")
	}

	clock.Advance(time.Second)
	if got, _ := store.Load(ctx, "short"); got != nil {
		t.Fatalf("expected expiry at the TTL boundary, got %q", *got)
	}
	if store.Len() != 2 {
		t.Fatalf("expired entry should be reclaimed on load, len=%d", store.Len())
	}

	clock.Advance(2 * time.Hour)
	if n := store.Purge(); n != 1 {
		t.Fatalf("Purge removed %d, want 1", n)
	}
	if got, _ := store.Load(ctx, "forever"); got == nil || *got != "long" {
		t.Fatal("entry without TTL should never expire")
	}
}

func TestMemoryStore_PurgeEvery(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	store := NewMemoryStore[int](WithMemoryClock(clock.Now))
	ctx, cancel := context.WithCancel(context.Background())

	for i := range 1000 {
		_ = store.Save(ctx, fmt.Sprintf("old-%d", i), &i, time.Hour)
	}
	clock.Advance(48 * time.Hour)
	fresh := 1
	_ = store.Save(ctx, "fresh", &fresh, time.Hour)

	done := make(chan struct{})
	go func() {
		defer close(done)
		store.PurgeEvery(ctx, time.Millisecond)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for store.Len() != 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done

	if n := store.Len(); n != 1 {
		t.Fatalf("len = %d after purging, want only the fresh entry", n)
	}
	if got, _ := store.Load(context.Background(), "fresh"); got == nil {
		t.Fatal("unexpired entry was purged")
	}
}

func TestMemoryStore_SaveNilDeletes(t *testing.T) {
	store := NewMemoryStore[int]()
	ctx := context.Background()
	v := 1
	_ = store.Save(ctx, "k", &v, 0)
	if err := store.Save(ctx, "k", nil, 0); err != nil {
		t.Fatalf("Save(nil): %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, len=%d", store.Len())
	}
}

func TestMemoryStore_Concurrent(t *testing.T) {
	store := NewMemoryStore[int]()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.Save(ctx, "shared", &i, time.Minute)
			_, _ = store.Load(ctx, "shared")
		}(i)
	}
	wg.Wait()
	if store.Len() != 1 {
		t.Fatalf("len = %d, want 1", store.Len())
	}
}
