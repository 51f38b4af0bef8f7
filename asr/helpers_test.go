package asr

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/asrkit/media"
	"github.com/kbukum/asrkit/provider"
	"github.com/kbukum/asrkit/transcription"
)

// fakeTool is an in-memory media.Tool. Extracted ranges are raw 16-bit PCM
// behind a 44-byte header, loud unless silentFrom reports the range start
// as silent. The amplitude encodes the start, so every loud range has
// distinct bytes.
type fakeTool struct {
	duration   float64
	silences   []media.SilenceInterval
	silentFrom func(start float64) bool
	probeErr   error

	mu           sync.Mutex
	detectCalls  int
	extractCalls []float64
}

func (f *fakeTool) Probe(_ context.Context, path string) (*media.AudioInfo, error) {
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	return &media.AudioInfo{Path: path, DurationSeconds: f.duration, Format: "wav", SampleRateHz: 16000, Channels: 1}, nil
}

func (f *fakeTool) ExtractRange(_ context.Context, _ string, start, _ float64, outPath string) error {
	f.mu.Lock()
	f.extractCalls = append(f.extractCalls, start)
	f.mu.Unlock()

	amplitude := int16(12000 + int(start*10))
	if f.silentFrom != nil && f.silentFrom(start) {
		amplitude = 0
	}
	data := make([]byte, 44+2*1600)
	for i := 0; i < 1600; i++ {
		v := amplitude
		if i%2 == 1 {
			v = -v
		}
		binary.LittleEndian.PutUint16(data[44+2*i:], uint16(v))
	}
	return os.WriteFile(outPath, data, 0o600)
}

func (f *fakeTool) DetectSilence(context.Context, string, float64, float64) ([]media.SilenceInterval, error) {
	f.mu.Lock()
	f.detectCalls++
	f.mu.Unlock()
	return f.silences, nil
}

// fakeBackend answers by chunk index, parsed from the upload file name,
// and records what it was asked.
type fakeBackend struct {
	delay   time.Duration
	respond func(i int, req transcription.Request) (*transcription.Outcome, error)

	calls       atomic.Int32
	inFlight    atomic.Int32
	maxInFlight atomic.Int32

	mu       sync.Mutex
	contexts map[int]string
	order    []int
}

func (b *fakeBackend) provider() transcription.Provider {
	return provider.Func[transcription.Request, *transcription.Outcome]{
		ProviderName: "fake",
		Fn:           b.execute,
	}
}

func (b *fakeBackend) execute(ctx context.Context, req transcription.Request) (*transcription.Outcome, error) {
	b.calls.Add(1)
	n := b.inFlight.Add(1)
	defer b.inFlight.Add(-1)
	for {
		cur := b.maxInFlight.Load()
		if n <= cur || b.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	var i int
	if _, err := fmt.Sscanf(req.FileName, "chunk_%04d.wav", &i); err != nil {
		return nil, fmt.Errorf("unexpected file name %q", req.FileName)
	}
	b.mu.Lock()
	if b.contexts == nil {
		b.contexts = map[int]string{}
	}
	b.contexts[i] = req.Context
	b.order = append(b.order, i)
	b.mu.Unlock()

	if b.delay > 0 {
		select {
		case <-time.After(b.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if b.respond != nil {
		return b.respond(i, req)
	}
	return &transcription.Outcome{Text: fmt.Sprintf("[%d]", i)}, nil
}

func (b *fakeBackend) contextOf(i int) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.contexts[i]
	return c, ok
}

func testConfig() Config {
	c := DefaultConfig()
	c.APIKey = "sk-test"
	return c
}

func newTestTranscriber(t *testing.T, cfg Config, tool *fakeTool, backend *fakeBackend, opts ...Option) *Transcriber {
	t.Helper()
	cfg.WorkDir = t.TempDir()
	tr, err := New(cfg, tool, backend.provider(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tr
}

// brackets builds the expected text "[0][1]..." for the given indexes.
func brackets(idx ...int) string {
	var b strings.Builder
	for _, i := range idx {
		fmt.Fprintf(&b, "[%d]", i)
	}
	return b.String()
}
