package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/asrkit/resilience"
)

func newTestClient(t *testing.T, cfg Config, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	if cfg.BaseURL == "" {
		cfg.BaseURL = srv.URL
	}
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestClient_Do_Request(t *testing.T) {
	c := newTestClient(t, Config{
		Headers: map[string]string{"User-Agent": "asrkit", "Accept": "text/plain"},
		Auth:    BearerAuth("sk-default"),
	}, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v4/audio/transcriptions" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("stream") != "false" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		if got := r.Header.Get("User-Agent"); got != "asrkit" {
			t.Errorf("default header = %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("request header should override default, got %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-override" {
			t.Errorf("auth = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("content type = %q", got)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body["model"] != "glm-asr" {
			t.Errorf("body = %v (%v)", body, err)
		}
		w.Header().Set("X-Request-Id", "req-1")
		w.Write([]byte(`{"text":"hello"}`))
	})

	resp, err := c.Do(context.Background(), Request{
		Method:  http.MethodPost,
		Path:    "/v4/audio/transcriptions",
		Query:   map[string]string{"stream": "false"},
		Headers: map[string]string{"Accept": "application/json"},
		Body:    map[string]string{"model": "glm-asr"},
		Auth:    BearerAuth("sk-override"),
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode != http.StatusOK || resp.Text() != `{"text":"hello"}` {
		t.Errorf("resp = %d %s", resp.StatusCode, resp.Text())
	}
	if resp.Header.Get("X-Request-Id") != "req-1" {
		t.Errorf("headers = %v", resp.Header)
	}
}

func TestClient_Do_BodyEncodings(t *testing.T) {
	tests := []struct {
		name   string
		body   any
		wantCT string
		want   string
	}{
		{"string", "prompt", "text/plain; charset=utf-8", "prompt"},
		{"bytes", []byte{'R', 'I', 'F', 'F'}, "application/octet-stream", "RIFF"},
		{"nil", nil, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
				if got := r.Header.Get("Content-Type"); got != tt.wantCT {
					t.Errorf("content type = %q, want %q", got, tt.wantCT)
				}
				data, _ := io.ReadAll(r.Body)
				if string(data) != tt.want {
					t.Errorf("body = %q, want %q", data, tt.want)
				}
			})
			if _, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/", Body: tt.body}); err != nil {
				t.Fatalf("Do: %v", err)
			}
		})
	}
}

func TestClient_Do_AbsoluteURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	c, err := New(Config{BaseURL: "http://unused.invalid"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: srv.URL + "/health"}); err != nil {
		t.Fatalf("Do: %v", err)
	}
}

func TestClient_Do_StatusError(t *testing.T) {
	c := newTestClient(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"audio too long"}}`))
	})

	resp, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/"})
	if KindOf(err) != KindStatus || StatusCode(err) != 400 || IsRetryable(err) {
		t.Fatalf("err = %v", err)
	}
	if resp == nil || resp.StatusCode != 400 {
		t.Fatal("expected the response alongside the status error")
	}
}

func TestClient_Do_Retry(t *testing.T) {
	tests := []struct {
		name         string
		statuses     []int
		wantAttempts int32
		wantErr      bool
		wantStatus   int
		wantRetryErr bool
	}{
		{"recovers after 503", []int{503, 429, 200}, 3, false, 0, false},
		{"exhausted", []int{500, 500, 500}, 3, true, 500, true},
		{"terminal 401", []int{401}, 1, true, 401, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts int32
			c := newTestClient(t, Config{Retry: LinearRetryConfig(3, time.Millisecond)}, func(w http.ResponseWriter, r *http.Request) {
				n := atomic.AddInt32(&attempts, 1)
				w.WriteHeader(tt.statuses[min(int(n), len(tt.statuses))-1])
			})

			_, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/"})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got := atomic.LoadInt32(&attempts); got != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", got, tt.wantAttempts)
			}
			if !tt.wantErr {
				return
			}
			if StatusCode(err) != tt.wantStatus {
				t.Errorf("status = %d, want %d", StatusCode(err), tt.wantStatus)
			}
			if errors.Is(err, resilience.ErrMaxRetriesExceeded) != tt.wantRetryErr {
				t.Errorf("exhausted = %v, want %v", !tt.wantRetryErr, tt.wantRetryErr)
			}
		})
	}
}

func TestClient_Do_NoRetry(t *testing.T) {
	var attempts int32
	c := newTestClient(t, Config{Retry: LinearRetryConfig(3, time.Millisecond)}, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	if _, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/health", NoRetry: true}); err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestClient_Do_AttemptTimeoutIsRetried(t *testing.T) {
	var attempts int32
	c := newTestClient(t, Config{Timeout: 50 * time.Millisecond, Retry: LinearRetryConfig(2, time.Millisecond)},
		func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&attempts, 1) == 1 {
				select {
				case <-r.Context().Done():
				case <-time.After(time.Second):
				}
				return
			}
			w.Write([]byte(`{"text":"ok"}`))
		})

	resp, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/"})
	if err != nil {
		t.Fatalf("expected the second attempt to succeed, got %v", err)
	}
	if resp.Text() != `{"text":"ok"}` {
		t.Errorf("body = %s", resp.Text())
	}
}

func TestClient_Do_CallerCancel(t *testing.T) {
	var attempts int32
	c := newTestClient(t, Config{Retry: LinearRetryConfig(3, time.Millisecond)}, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := c.Do(ctx, Request{Method: http.MethodPost, Path: "/"})
	if KindOf(err) != KindCanceled || IsRetryable(err) {
		t.Fatalf("err = %v, want non-retryable cancellation", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestClient_Do_RateLimited(t *testing.T) {
	c := newTestClient(t, Config{RateLimiter: &resilience.RateLimiterConfig{Rate: 50, Burst: 1}},
		func(w http.ResponseWriter, r *http.Request) {})

	start := time.Now()
	for range 3 {
		if _, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"}); err != nil {
			t.Fatalf("Do: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("requests were not spaced by the limiter: %v", elapsed)
	}
}
