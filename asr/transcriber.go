package asr

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/asrkit/chunking"
	"github.com/kbukum/asrkit/errors"
	"github.com/kbukum/asrkit/logger"
	"github.com/kbukum/asrkit/media"
	"github.com/kbukum/asrkit/observability"
	"github.com/kbukum/asrkit/provider"
	"github.com/kbukum/asrkit/transcription"
)

// Transcriber runs the chunked transcription pipeline. It is safe for
// concurrent use; every run gets its own scratch directory, bulkhead and
// result arena.
type Transcriber struct {
	cfg      Config
	tool     media.Tool
	backend  transcription.Provider
	log      *logger.Logger
	metrics  *observability.Metrics
	cache    provider.ContextStore[transcription.Outcome]
	cacheTTL time.Duration
	now      func() time.Time
	newRunID func() string
}

// Option configures a Transcriber.
type Option func(*Transcriber)

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(t *Transcriber) {
		if l != nil {
			t.log = l
		}
	}
}

// WithMetrics records run and chunk metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(t *Transcriber) { t.metrics = m }
}

// WithCache reuses backend outcomes for identical chunks. Entries expire
// after ttl; zero keeps them until evicted by the store.
func WithCache(store provider.ContextStore[transcription.Outcome], ttl time.Duration) Option {
	return func(t *Transcriber) {
		t.cache = store
		t.cacheTTL = ttl
	}
}

// WithClock replaces time.Now for run timing.
func WithClock(now func() time.Time) Option {
	return func(t *Transcriber) {
		if now != nil {
			t.now = now
		}
	}
}

// New validates cfg and builds a Transcriber. Configuration problems are
// reported here, before any file is read.
func New(cfg Config, tool media.Tool, backend transcription.Provider, opts ...Option) (*Transcriber, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if tool == nil {
		return nil, errors.Configuration("asr: media tool is required")
	}
	if backend == nil {
		return nil, errors.Configuration("asr: transcription backend is required")
	}

	t := &Transcriber{
		cfg:      cfg,
		tool:     tool,
		backend:  backend,
		log:      logger.Nop(),
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	for _, o := range opts {
		o(t)
	}
	t.log = t.log.WithComponent("asr")
	return t, nil
}

// Config returns the effective configuration.
func (t *Transcriber) Config() Config { return t.cfg }

// AudioInfo probes a file without transcribing it.
func (t *Transcriber) AudioInfo(ctx context.Context, audioPath string) (*media.AudioInfo, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanProbe)
	defer span.End()

	info, err := t.probe(ctx, audioPath)
	if err != nil {
		observability.SetSpanError(ctx, err)
		return nil, err
	}
	observability.SetSpanAttribute(ctx, observability.AttrDurationSec, info.DurationSeconds)
	return info, nil
}

// EstimateChunks is the chunk count a file of the given duration needs
// at the configured maximum chunk length, never less than one.
func (t *Transcriber) EstimateChunks(durationSeconds float64) int {
	return EstimateChunks(durationSeconds, t.cfg.MaxChunkDuration)
}

// Transcribe runs the whole pipeline on one file: probe, silence detection
// (only for files longer than one chunk), segmentation, extraction,
// dispatch and assembly.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath string, opts RunOptions) (result *RunResult, err error) {
	mode, concurrency, err := opts.resolve(&t.cfg)
	if err != nil {
		return nil, err
	}
	language := opts.Language
	if language == "" {
		language = t.cfg.Language
	}

	start := t.now()
	runID := t.newRunID()
	ctx = logger.ContextWithRunID(ctx, runID)
	ctx, span := observability.StartSpan(ctx, observability.SpanRun)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrRunID, runID)
	observability.SetSpanAttribute(ctx, observability.AttrMode, mode.String())

	log := t.log.WithContext(ctx).WithFields(logger.Fields(logger.FieldMode, mode.String()))

	var audioSeconds float64
	defer func() {
		status := observability.StatusOK
		if err != nil {
			status = observability.StatusError
			observability.SetSpanError(ctx, err)
			t.metrics.RecordError(ctx, observability.ErrorType(err), "asr")
			log.Error("transcription failed", logger.Fields(
				logger.FieldError, err.Error(),
				logger.FieldDuration, t.now().Sub(start).Milliseconds(),
			))
		}
		t.metrics.RecordRun(ctx, mode.String(), status, t.now().Sub(start), audioSeconds)
	}()

	info, err := t.probe(ctx, audioPath)
	if err != nil {
		return nil, err
	}
	audioSeconds = info.DurationSeconds
	observability.SetSpanAttribute(ctx, observability.AttrDurationSec, info.DurationSeconds)

	chunks, err := t.chunk(ctx, audioPath, info, log)
	if err != nil {
		return nil, err
	}
	observability.SetSpanAttribute(ctx, observability.AttrChunks, len(chunks))

	log.Info("transcription started", logger.Fields(
		"path", audioPath,
		"duration_s", info.DurationSeconds,
		"chunks", len(chunks),
		"concurrency", concurrency,
	))

	r := newRun(t, chunks, language, log)
	if err := r.dispatch(ctx, mode, concurrency); err != nil {
		return nil, err
	}

	text, segments := r.assemble()
	stats := r.stats()
	stats.RunID = runID
	stats.Mode = mode
	stats.Concurrency = concurrency
	stats.TotalTimeSeconds = roundTo(t.now().Sub(start).Seconds(), 2)

	log.Info("transcription finished", logger.Fields(
		"chunks", stats.Chunks,
		"chunks_transcribed", stats.ChunksTranscribed,
		"chunks_skipped_silent", stats.ChunksSkippedSilent,
		"chunks_from_cache", stats.ChunksFromCache,
		"total_time_s", stats.TotalTimeSeconds,
	))

	return &RunResult{
		Text:            text,
		Segments:        segments,
		DurationSeconds: info.DurationSeconds,
		Stats:           stats,
	}, nil
}

func (t *Transcriber) probe(ctx context.Context, audioPath string) (*media.AudioInfo, error) {
	if audioPath == "" {
		return nil, errors.InvalidInput("audio_path", "audio_path is required")
	}
	info, err := t.tool.Probe(ctx, audioPath)
	if err != nil {
		return nil, asMediaError("probe", err)
	}
	return info, nil
}

// chunk segments the file and extracts every range.
func (t *Transcriber) chunk(ctx context.Context, audioPath string, info *media.AudioInfo, log *logger.Logger) ([]chunking.Chunk, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanSegment)
	defer span.End()

	var silences []media.SilenceInterval
	if info.DurationSeconds > t.cfg.MaxChunkDuration {
		var err error
		silences, err = t.tool.DetectSilence(ctx, audioPath, t.cfg.SilenceThresholdDB, t.cfg.MinSilenceDuration)
		if err != nil {
			return nil, asMediaError("silencedetect", err)
		}
		log.Debug("silence detected", logger.Fields("intervals", len(silences)))
	}

	ranges := chunking.Segment(info.DurationSeconds, t.cfg.MaxChunkDuration, silences)
	m := chunking.Materializer{
		Extractor:          t.tool,
		SilenceThresholdDB: t.cfg.SilenceThresholdDB,
		WorkDir:            t.cfg.WorkDir,
		Logger:             log,
	}
	chunks, err := m.Materialize(ctx, audioPath, ranges)
	if err != nil {
		return nil, asMediaError("extract", err)
	}
	return chunks, nil
}

// asMediaError keeps classified errors as they are and files anything
// else from the media layer under MEDIA_ERROR.
func asMediaError(op string, err error) error {
	if _, ok := errors.AsAppError(err); ok {
		return err
	}
	return errors.Media(op, err)
}

// EstimateChunks returns max(1, int(duration/maxChunk)).
func EstimateChunks(durationSeconds, maxChunk float64) int {
	if maxChunk <= 0 {
		return 1
	}
	n := int(durationSeconds / maxChunk)
	if n < 1 {
		return 1
	}
	return n
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
