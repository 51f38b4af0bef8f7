package redis

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/kbukum/asrkit/errors"
	"github.com/kbukum/asrkit/logger"
	"github.com/kbukum/asrkit/observability"
	"github.com/kbukum/asrkit/transcription"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mini := miniredis.RunT(t)

	client, err := New(Config{Enabled: true, Addr: mini.Addr()}, logger.Nop())
	if err != nil {
		t.Fatalf("failed to create redis client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, mini
}

func TestTypedStore_RoundTripOutcome(t *testing.T) {
	client, mini := newTestClient(t)
	store := NewTypedStore[transcription.Outcome](client, "asr:outcome")
	ctx := context.Background()

	want := transcription.Outcome{
		Text:     "你好世界",
		Language: "zh",
		Segments: []transcription.Segment{{Start: 0.5, End: 2, Text: "你好"}},
	}
	if err := store.Save(ctx, "abc123", &want, 0); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	raw, err := mini.Get("asr:outcome:abc123")
	if err != nil || !strings.Contains(raw, "你好世界") {
		t.Fatalf("expected JSON under prefixed key, got %q, %v", raw, err)
	}

	got, err := store.Load(ctx, "abc123")
	if err != nil || got == nil {
		t.Fatalf("Load = %v, %v", got, err)
	}
	if got.Text != want.Text || len(got.Segments) != 1 || got.Segments[0].End != 2 {
		t.Errorf("loaded %+v, want %+v", got, want)
	}
}

func TestTypedStore_LoadMissing(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewTypedStore[transcription.Outcome](client, "asr")

	got, err := store.Load(context.Background(), "nonexistent")
	if err != nil || got != nil {
		t.Fatalf("Load(missing) = %+v, %v", got, err)
	}
}

func TestTypedStore_DeleteAndSaveNil(t *testing.T) {
	client, mini := newTestClient(t)
	store := NewTypedStore[transcription.Outcome](client, "")
	ctx := context.Background()

	v := transcription.Outcome{Text: "x"}
	_ = store.Save(ctx, "k1", &v, 0)
	_ = store.Save(ctx, "k2", &v, 0)
	if !mini.Exists("k1") {
		t.Fatal("expected bare key without prefix")
	}

	if err := store.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Save(ctx, "k2", nil, 0); err != nil {
		t.Fatalf("Save(nil) failed: %v", err)
	}
	if mini.Exists("k1") || mini.Exists("k2") {
		t.Fatal("expected both keys removed")
	}
}

func TestTypedStore_TTL(t *testing.T) {
	client, mini := newTestClient(t)
	store := NewTypedStore[transcription.Outcome](client, "asr")
	ctx := context.Background()

	v := transcription.Outcome{Text: "short lived"}
	if err := store.Save(ctx, "k1", &v, 2*time.Second); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if ttl := mini.TTL("asr:k1"); ttl != 2*time.Second {
		t.Errorf("ttl = %v, want 2s", ttl)
	}

	mini.FastForward(3 * time.Second)
	got, err := store.Load(ctx, "k1")
	if err != nil || got != nil {
		t.Fatalf("expected expiry, got %+v, %v", got, err)
	}
}

func TestTypedStore_CorruptValue(t *testing.T) {
	client, mini := newTestClient(t)
	store := NewTypedStore[transcription.Outcome](client, "asr")
	_ = mini.Set("asr:bad", "{not json")

	if _, err := store.Load(context.Background(), "bad"); err == nil {
		t.Fatal("expected unmarshal error")
	}
}

func TestTypedStore_ServerDown(t *testing.T) {
	client, mini := newTestClient(t)
	store := NewTypedStore[transcription.Outcome](client, "asr")
	mini.SetError("LOADING dataset in memory")

	if _, err := store.Load(context.Background(), "k"); err == nil {
		t.Fatal("expected error from failing server")
	}
}

func TestClient_PingAndHealth(t *testing.T) {
	client, mini := newTestClient(t)
	ctx := context.Background()

	if err := client.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if h := client.CheckHealth(ctx); h.Status != observability.HealthStatusUp || h.Details["addr"] != mini.Addr() {
		t.Errorf("health = %+v", h)
	}

	mini.SetError("ERR connection lost")
	if h := client.CheckHealth(ctx); h.Status != observability.HealthStatusDegraded || h.Message == "" {
		t.Errorf("health after shutdown = %+v", h)
	}
}

func TestNew_Config(t *testing.T) {
	if _, err := New(Config{}, nil); !errors.HasCode(err, errors.ErrCodeConfiguration) {
		t.Fatalf("expected configuration error for disabled redis, got %v", err)
	}
	if _, err := New(Config{Enabled: true, Addr: "localhost:6379", DB: -1}, nil); !errors.HasCode(err, errors.ErrCodeConfiguration) {
		t.Fatalf("expected configuration error for negative db, got %v", err)
	}

	c := Config{}
	c.ApplyDefaults()
	if c.Addr != "localhost:6379" || c.KeyPrefix != "asr:outcome" || c.DialTimeout != 5*time.Second {
		t.Errorf("unexpected defaults: %+v", c)
	}
}

func TestClient_CloseIdempotent(t *testing.T) {
	client, _ := newTestClient(t)
	if err := client.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	var nilClient *Client
	if err := nilClient.Close(); err != nil {
		t.Fatalf("nil Close: %v", err)
	}
}
