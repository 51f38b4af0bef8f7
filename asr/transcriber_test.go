package asr

import (
	"context"
	stderrors "errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/asrkit/errors"
	"github.com/kbukum/asrkit/media"
	"github.com/kbukum/asrkit/provider"
	"github.com/kbukum/asrkit/transcription"
)

func TestTranscribe_ShortFileIsOneChunk(t *testing.T) {
	tool := &fakeTool{duration: 10}
	backend := &fakeBackend{}
	tr := newTestTranscriber(t, testConfig(), tool, backend)

	res, err := tr.Transcribe(context.Background(), "/audio/short.wav", RunOptions{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got := backend.calls.Load(); got != 1 {
		t.Errorf("backend calls = %d, want 1", got)
	}
	if tool.detectCalls != 0 {
		t.Errorf("silence detection ran %d times for a single-chunk file", tool.detectCalls)
	}
	if res.Text != "[0]" {
		t.Errorf("text = %q", res.Text)
	}
	if len(res.Segments) != 1 || res.Segments[0].Start != 0 || res.Segments[0].End != 10 {
		t.Errorf("segments = %+v, want one synthesized [0,10] segment", res.Segments)
	}
	if res.Stats.Chunks != 1 || res.Stats.ChunksTranscribed != 1 || res.Stats.Mode != ModeSliding {
		t.Errorf("stats = %+v", res.Stats)
	}
	if res.Stats.RunID == "" || res.DurationSeconds != 10 {
		t.Errorf("run id %q, duration %v", res.Stats.RunID, res.DurationSeconds)
	}
}

func TestTranscribe_CutsAtSilenceMidpoint(t *testing.T) {
	tool := &fakeTool{duration: 70, silences: []media.SilenceInterval{{Start: 24.5, End: 25.5}}}
	backend := &fakeBackend{}
	tr := newTestTranscriber(t, testConfig(), tool, backend)

	res, err := tr.Transcribe(context.Background(), "/audio/long.wav", RunOptions{Mode: ModeNone})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if tool.detectCalls != 1 {
		t.Errorf("silence detection ran %d times, want 1", tool.detectCalls)
	}
	if res.Stats.Chunks != 3 {
		t.Fatalf("chunks = %d, want 3", res.Stats.Chunks)
	}
	if res.Segments[0].End != 25.0 || res.Segments[1].Start != 25.0 {
		t.Errorf("first cut at %v/%v, want 25.0", res.Segments[0].End, res.Segments[1].Start)
	}
	if last := res.Segments[len(res.Segments)-1]; last.End != 70 {
		t.Errorf("last segment ends at %v, want 70", last.End)
	}
	if res.Text != brackets(0, 1, 2) {
		t.Errorf("text = %q", res.Text)
	}
}

func TestTranscribe_ModeNoneBoundsConcurrency(t *testing.T) {
	tool := &fakeTool{duration: 300}
	backend := &fakeBackend{delay: 20 * time.Millisecond}
	tr := newTestTranscriber(t, testConfig(), tool, backend)

	res, err := tr.Transcribe(context.Background(), "/audio/a.wav", RunOptions{Mode: ModeNone, MaxConcurrency: 3})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got := backend.maxInFlight.Load(); got > 3 {
		t.Errorf("max in flight = %d, want <= 3", got)
	}
	if got := backend.calls.Load(); got != 12 {
		t.Errorf("backend calls = %d, want 12", got)
	}
	for i := 0; i < 12; i++ {
		if c, _ := backend.contextOf(i); c != "" {
			t.Errorf("chunk %d got context %q in none mode", i, c)
		}
	}
	want := brackets(0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11)
	if res.Text != want {
		t.Errorf("text = %q, want %q", res.Text, want)
	}
	if res.Stats.Concurrency != 3 {
		t.Errorf("stats concurrency = %d", res.Stats.Concurrency)
	}
}

func TestTranscribe_ConcurrencyIsClamped(t *testing.T) {
	tool := &fakeTool{duration: 300}
	backend := &fakeBackend{delay: 5 * time.Millisecond}
	tr := newTestTranscriber(t, testConfig(), tool, backend)

	for _, tc := range []struct{ in, want int }{{-4, 1}, {0, DefaultMaxConcurrency}, {100, MaxConcurrencyLimit}} {
		res, err := tr.Transcribe(context.Background(), "/audio/a.wav", RunOptions{Mode: ModeNone, MaxConcurrency: tc.in})
		if err != nil {
			t.Fatalf("Transcribe(%d): %v", tc.in, err)
		}
		if res.Stats.Concurrency != tc.want {
			t.Errorf("concurrency %d resolved to %d, want %d", tc.in, res.Stats.Concurrency, tc.want)
		}
	}
}

func TestTranscribe_SlidingUsesFirstChunkText(t *testing.T) {
	tool := &fakeTool{duration: 100}
	backend := &fakeBackend{respond: func(i int, _ transcription.Request) (*transcription.Outcome, error) {
		if i == 0 {
			return &transcription.Outcome{Text: "今天我们讨论预算。"}, nil
		}
		return &transcription.Outcome{Text: "后续"}, nil
	}}
	cfg := testConfig()
	cfg.ContextMaxChars = 4
	tr := newTestTranscriber(t, cfg, tool, backend)

	res, err := tr.Transcribe(context.Background(), "/audio/a.wav", RunOptions{Mode: ModeSliding, MaxConcurrency: 2})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if c, _ := backend.contextOf(0); c != "" {
		t.Errorf("first chunk context = %q, want empty", c)
	}
	for i := 1; i < 4; i++ {
		if c, _ := backend.contextOf(i); c != "论预算。" {
			t.Errorf("chunk %d context = %q, want the 4-rune tail of chunk 0", i, c)
		}
	}
	if backend.order[0] != 0 {
		t.Errorf("first call was chunk %d, want 0", backend.order[0])
	}
	if res.Text != "今天我们讨论预算。后续后续后续" {
		t.Errorf("text = %q", res.Text)
	}
	if got := backend.maxInFlight.Load(); got > 2 {
		t.Errorf("max in flight = %d, want <= 2", got)
	}
}

func TestTranscribe_SlidingStartsAtFirstSpeechChunk(t *testing.T) {
	tool := &fakeTool{duration: 75, silentFrom: func(start float64) bool { return start == 0 }}
	backend := &fakeBackend{}
	tr := newTestTranscriber(t, testConfig(), tool, backend)

	if _, err := tr.Transcribe(context.Background(), "/audio/a.wav", RunOptions{}); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if _, ok := backend.contextOf(0); ok {
		t.Error("silent chunk 0 reached the backend")
	}
	if c, _ := backend.contextOf(1); c != "" {
		t.Errorf("first speech chunk context = %q, want empty", c)
	}
	if c, _ := backend.contextOf(2); c != "[1]" {
		t.Errorf("chunk 2 context = %q, want [1]", c)
	}
}

func TestTranscribe_FullSerialCarriesPriorText(t *testing.T) {
	tool := &fakeTool{duration: 100}
	backend := &fakeBackend{}
	cfg := testConfig()
	cfg.ContextMaxChars = 5
	tr := newTestTranscriber(t, cfg, tool, backend)

	res, err := tr.Transcribe(context.Background(), "/audio/a.wav", RunOptions{Mode: ModeFullSerial, MaxConcurrency: 10})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	want := map[int]string{0: "", 1: "[0]", 2: "0][1]", 3: "1][2]"}
	for i, w := range want {
		if c, _ := backend.contextOf(i); c != w {
			t.Errorf("chunk %d context = %q, want %q", i, c, w)
		}
	}
	if got := backend.maxInFlight.Load(); got != 1 {
		t.Errorf("max in flight = %d, want 1", got)
	}
	for i, idx := range backend.order {
		if idx != i {
			t.Fatalf("call order = %v, want ascending", backend.order)
		}
	}
	if res.Text != brackets(0, 1, 2, 3) {
		t.Errorf("text = %q", res.Text)
	}
}

func TestTranscribe_AllSilent(t *testing.T) {
	tool := &fakeTool{duration: 60, silentFrom: func(float64) bool { return true }}
	backend := &fakeBackend{}
	tr := newTestTranscriber(t, testConfig(), tool, backend)

	for _, mode := range Modes {
		res, err := tr.Transcribe(context.Background(), "/audio/quiet.wav", RunOptions{Mode: mode})
		if err != nil {
			t.Fatalf("%s: %v", mode, err)
		}
		if res.Text != "" || res.Segments == nil || len(res.Segments) != 0 {
			t.Errorf("%s: text %q segments %#v", mode, res.Text, res.Segments)
		}
		if res.Stats.Chunks != 3 || res.Stats.ChunksSkippedSilent != 3 || res.Stats.ChunksTranscribed != 0 {
			t.Errorf("%s: stats = %+v", mode, res.Stats)
		}
	}
	if got := backend.calls.Load(); got != 0 {
		t.Errorf("backend calls = %d, want 0", got)
	}
}

func TestTranscribe_SkipsSilentChunks(t *testing.T) {
	tool := &fakeTool{duration: 75, silentFrom: func(start float64) bool { return start == 25 }}
	backend := &fakeBackend{}
	tr := newTestTranscriber(t, testConfig(), tool, backend)

	res, err := tr.Transcribe(context.Background(), "/audio/a.wav", RunOptions{Mode: ModeNone})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != brackets(0, 2) {
		t.Errorf("text = %q", res.Text)
	}
	if res.Stats.ChunksTranscribed != 2 || res.Stats.ChunksSkippedSilent != 1 {
		t.Errorf("stats = %+v", res.Stats)
	}
	if len(res.Segments) != 2 || res.Segments[1].Start != 50 {
		t.Errorf("segments = %+v", res.Segments)
	}
}

func TestTranscribe_ShiftsSegmentsToFileTime(t *testing.T) {
	tool := &fakeTool{duration: 50}
	backend := &fakeBackend{respond: func(i int, _ transcription.Request) (*transcription.Outcome, error) {
		return &transcription.Outcome{Text: "ab", Segments: []transcription.Segment{
			{Start: 0.5, End: 1.0, Text: "a"},
			{Start: 1.0, End: 2.25, Text: "b"},
		}}, nil
	}}
	tr := newTestTranscriber(t, testConfig(), tool, backend)

	res, err := tr.Transcribe(context.Background(), "/audio/a.wav", RunOptions{Mode: ModeNone})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(res.Segments) != 4 {
		t.Fatalf("segments = %+v", res.Segments)
	}
	if s := res.Segments[2]; s.Start != 25.5 || s.End != 26.0 || s.Text != "a" {
		t.Errorf("shifted segment = %+v, want [25.5,26.0] a", s)
	}
	if s := res.Segments[3]; math.Abs(s.End-27.25) > 1e-9 {
		t.Errorf("shifted end = %v, want 27.25", s.End)
	}
}

func TestTranscribe_DropsHallucinations(t *testing.T) {
	tool := &fakeTool{duration: 75}
	backend := &fakeBackend{respond: func(i int, _ transcription.Request) (*transcription.Outcome, error) {
		switch i {
		case 1:
			return &transcription.Outcome{Text: "No speech detected.", Segments: []transcription.Segment{{Start: 0, End: 3, Text: "No speech detected."}}}, nil
		case 2:
			return &transcription.Outcome{Text: "（静音）"}, nil
		}
		return &transcription.Outcome{Text: "hello"}, nil
	}}
	tr := newTestTranscriber(t, testConfig(), tool, backend)

	res, err := tr.Transcribe(context.Background(), "/audio/a.wav", RunOptions{Mode: ModeFullSerial})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "hello" {
		t.Errorf("text = %q, want hallucinations removed", res.Text)
	}
	if len(res.Segments) != 1 {
		t.Errorf("segments = %+v", res.Segments)
	}
	if c, _ := backend.contextOf(2); c != "hello" {
		t.Errorf("context after a hallucinated chunk = %q, want %q", c, "hello")
	}
	if res.Stats.ChunksTranscribed != 3 {
		t.Errorf("hallucinated chunks still count as transcribed: %+v", res.Stats)
	}
}

func TestTranscribe_FirstFailureWins(t *testing.T) {
	tool := &fakeTool{duration: 300}
	backend := &fakeBackend{delay: 10 * time.Millisecond, respond: func(i int, _ transcription.Request) (*transcription.Outcome, error) {
		if i == 2 {
			return nil, errors.MaxRetriesExceeded(3, errors.API(503, true, stderrors.New("unavailable")))
		}
		return &transcription.Outcome{Text: "ok"}, nil
	}}
	tr := newTestTranscriber(t, testConfig(), tool, backend)

	res, err := tr.Transcribe(context.Background(), "/audio/a.wav", RunOptions{Mode: ModeNone, MaxConcurrency: 2})
	if res != nil {
		t.Errorf("expected no partial result, got %+v", res)
	}
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.ErrCodeMaxRetriesExceeded {
		t.Fatalf("expected MAX_RETRIES_EXCEEDED, got %v", err)
	}
	if appErr.Details["chunk_index"] != 2 {
		t.Errorf("chunk_index detail = %v, want 2", appErr.Details["chunk_index"])
	}
	if got := backend.calls.Load(); got >= 12 {
		t.Errorf("backend calls = %d, expected remaining chunks to be abandoned", got)
	}
}

func TestTranscribe_PlainBackendErrorIsClassified(t *testing.T) {
	tool := &fakeTool{duration: 10}
	backend := &fakeBackend{respond: func(int, transcription.Request) (*transcription.Outcome, error) {
		return nil, stderrors.New("connection reset")
	}}
	tr := newTestTranscriber(t, testConfig(), tool, backend)

	_, err := tr.Transcribe(context.Background(), "/audio/a.wav", RunOptions{})
	if !errors.HasCode(err, errors.ErrCodeAPI) {
		t.Fatalf("expected API_ERROR, got %v", err)
	}
}

func TestTranscribe_Canceled(t *testing.T) {
	tool := &fakeTool{duration: 100}
	backend := &fakeBackend{}
	tr := newTestTranscriber(t, testConfig(), tool, backend)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tr.Transcribe(ctx, "/audio/a.wav", RunOptions{Mode: ModeNone})
	if !errors.HasCode(err, errors.ErrCodeCanceled) {
		t.Fatalf("expected CANCELED, got %v", err)
	}
	if got := backend.calls.Load(); got != 0 {
		t.Errorf("backend calls = %d after cancellation", got)
	}
}

func TestTranscribe_ReusesCachedOutcomes(t *testing.T) {
	tool := &fakeTool{duration: 75}
	backend := &fakeBackend{}
	store := provider.NewMemoryStore[transcription.Outcome]()
	tr := newTestTranscriber(t, testConfig(), tool, backend, WithCache(store, time.Hour))

	first, err := tr.Transcribe(context.Background(), "/audio/a.wav", RunOptions{Mode: ModeNone})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Stats.ChunksFromCache != 0 || first.Stats.ChunksTranscribed != 3 || store.Len() != 3 {
		t.Errorf("first run stats %+v, %d cached entries", first.Stats, store.Len())
	}
	if got := backend.calls.Load(); got != 3 {
		t.Errorf("backend calls = %d after the first run, want one per chunk", got)
	}

	second, err := tr.Transcribe(context.Background(), "/audio/a.wav", RunOptions{Mode: ModeNone})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if got := backend.calls.Load(); got != 3 {
		t.Errorf("backend calls = %d, want 3 across both runs", got)
	}
	if second.Stats.ChunksFromCache != 3 || second.Text != first.Text {
		t.Errorf("second run = %+v", second)
	}

	// A different context is a different request.
	if _, err := tr.Transcribe(context.Background(), "/audio/a.wav", RunOptions{Mode: ModeFullSerial}); err != nil {
		t.Fatalf("third run: %v", err)
	}
	if got := backend.calls.Load(); got != 5 {
		t.Errorf("backend calls = %d, want 5 after a run with context", got)
	}
}

func TestTranscribe_InvalidInput(t *testing.T) {
	tr := newTestTranscriber(t, testConfig(), &fakeTool{duration: 10}, &fakeBackend{})

	if _, err := tr.Transcribe(context.Background(), "", RunOptions{}); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("empty path: %v", err)
	}
	if _, err := tr.Transcribe(context.Background(), "/a.wav", RunOptions{Mode: "fast"}); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("bad mode: %v", err)
	}
}

func TestTranscribe_ProbeFailureIsMediaError(t *testing.T) {
	tool := &fakeTool{probeErr: stderrors.New("moov atom not found")}
	tr := newTestTranscriber(t, testConfig(), tool, &fakeBackend{})

	_, err := tr.Transcribe(context.Background(), "/audio/broken.m4a", RunOptions{})
	if !errors.HasCode(err, errors.ErrCodeMedia) {
		t.Fatalf("expected MEDIA_ERROR, got %v", err)
	}

	tool.probeErr = errors.NotFound("file", "/audio/missing.wav")
	if _, err := tr.AudioInfo(context.Background(), "/audio/missing.wav"); !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Fatalf("expected classified error to pass through, got %v", err)
	}
}

func TestAudioInfo(t *testing.T) {
	tr := newTestTranscriber(t, testConfig(), &fakeTool{duration: 61.5}, &fakeBackend{})

	info, err := tr.AudioInfo(context.Background(), "/audio/talk.wav")
	if err != nil {
		t.Fatalf("AudioInfo: %v", err)
	}
	if info.DurationSeconds != 61.5 || info.Path != "/audio/talk.wav" {
		t.Errorf("info = %+v", info)
	}
	if got := tr.EstimateChunks(info.DurationSeconds); got != 2 {
		t.Errorf("EstimateChunks = %d, want 2", got)
	}
}

func TestNew_Validation(t *testing.T) {
	tool, backend := &fakeTool{}, &fakeBackend{}

	if _, err := New(DefaultConfig(), tool, backend.provider()); !errors.HasCode(err, errors.ErrCodeConfiguration) {
		t.Errorf("missing api key: %v", err)
	}
	if _, err := New(testConfig(), nil, backend.provider()); !errors.HasCode(err, errors.ErrCodeConfiguration) {
		t.Errorf("nil tool: %v", err)
	}
	if _, err := New(testConfig(), tool, nil); !errors.HasCode(err, errors.ErrCodeConfiguration) {
		t.Errorf("nil backend: %v", err)
	}
}

func TestEstimateChunks(t *testing.T) {
	tests := []struct {
		dur, max float64
		want     int
	}{
		{0, 25, 1},
		{10, 25, 1},
		{49.9, 25, 1},
		{50, 25, 2},
		{3600, 25, 144},
		{10, 0, 1},
	}
	for _, tc := range tests {
		if got := EstimateChunks(tc.dur, tc.max); got != tc.want {
			t.Errorf("EstimateChunks(%v, %v) = %d, want %d", tc.dur, tc.max, got, tc.want)
		}
	}
}

func TestCacheKey_DependsOnInputs(t *testing.T) {
	tr := newTestTranscriber(t, testConfig(), &fakeTool{}, &fakeBackend{})
	r := newRun(tr, nil, "", tr.log)

	base := transcription.Request{Audio: []byte("pcm"), Context: "a", Language: "zh"}
	keys := map[string]bool{r.cacheKey(base): true}
	for _, req := range []transcription.Request{
		{Audio: []byte("pcm2"), Context: "a", Language: "zh"},
		{Audio: []byte("pcm"), Context: "b", Language: "zh"},
		{Audio: []byte("pcm"), Context: "a", Language: "en"},
		{Audio: []byte("pcm"), Context: "a\x00", Language: "zh"},
	} {
		k := r.cacheKey(req)
		if keys[k] {
			t.Errorf("request %+v collides with an earlier key", req)
		}
		keys[k] = true
	}
	if r.cacheKey(base) != r.cacheKey(base) || len(r.cacheKey(base)) != 64 || strings.ToLower(r.cacheKey(base)) != r.cacheKey(base) {
		t.Error("cache key must be a stable lowercase sha256 hex digest")
	}
}
