package asr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/asrkit/chunking"
	"github.com/kbukum/asrkit/errors"
	"github.com/kbukum/asrkit/logger"
	"github.com/kbukum/asrkit/media"
	"github.com/kbukum/asrkit/observability"
	"github.com/kbukum/asrkit/resilience"
	"github.com/kbukum/asrkit/transcription"
	"github.com/kbukum/asrkit/util"
)

// slot is the result cell of one chunk. Each slot is written by exactly
// one goroutine and read only after every writer has finished.
type slot struct {
	done      bool
	silent    bool
	fromCache bool
	text      string
	segments  []transcription.Segment
}

// run is the state of a single Transcribe call.
type run struct {
	t        *Transcriber
	chunks   []chunking.Chunk
	slots    []slot
	language string
	log      *logger.Logger
}

func newRun(t *Transcriber, chunks []chunking.Chunk, language string, log *logger.Logger) *run {
	return &run{
		t:        t,
		chunks:   chunks,
		slots:    make([]slot, len(chunks)),
		language: language,
		log:      log,
	}
}

// dispatch transcribes every speech chunk according to mode. Silent chunks
// are settled up front and never reach the backend.
func (r *run) dispatch(ctx context.Context, mode ContextMode, concurrency int) error {
	speech := make([]int, 0, len(r.chunks))
	for i, c := range r.chunks {
		if c.IsSilent {
			r.slots[i] = slot{done: true, silent: true}
			r.t.metrics.RecordChunk(ctx, observability.ChunkSilent)
			r.log.Debug("chunk skipped as silent", logger.Fields(
				logger.FieldChunkIndex, i,
				"level_db", c.LevelDB,
			))
			continue
		}
		speech = append(speech, i)
	}
	if len(speech) == 0 {
		return nil
	}

	switch mode {
	case ModeNone:
		return r.parallel(ctx, speech, "", concurrency)

	case ModeSliding:
		first := speech[0]
		if err := r.transcribe(ctx, first, ""); err != nil {
			return err
		}
		prior := util.TailRunes(r.slots[first].text, r.t.cfg.ContextMaxChars)
		return r.parallel(ctx, speech[1:], prior, concurrency)

	case ModeFullSerial:
		var prior string
		for _, i := range speech {
			if err := r.transcribe(ctx, i, util.TailRunes(prior, r.t.cfg.ContextMaxChars)); err != nil {
				return err
			}
			prior += r.slots[i].text
		}
		return nil

	default:
		return errors.InvalidInput("context_mode", fmt.Sprintf("unknown context mode %q", mode))
	}
}

// parallel transcribes the given chunks with at most concurrency in
// flight. Slots are admitted in index order. The first failure cancels the
// remaining work and is returned once every started call has finished.
func (r *run) parallel(ctx context.Context, indexes []int, prior string, concurrency int) error {
	if len(indexes) == 0 {
		return nil
	}
	bh := resilience.NewBulkhead(resilience.BulkheadConfig{
		Name:          "asr-dispatch",
		MaxConcurrent: concurrency,
	})

	g, gctx := errgroup.WithContext(ctx)
	for _, i := range indexes {
		release, err := bh.Acquire(gctx)
		if err != nil {
			break
		}
		g.Go(func() error {
			defer release()
			return r.transcribe(gctx, i, prior)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return errors.Canceled(err)
	}
	return nil
}

// transcribe fills the slot of chunk i, from the cache when possible.
func (r *run) transcribe(ctx context.Context, i int, prior string) (err error) {
	c := r.chunks[i]
	if err := ctx.Err(); err != nil {
		return errors.Canceled(err)
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanChunk)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrChunkIndex, i)
	defer func() {
		if err != nil {
			observability.SetSpanError(ctx, err)
			r.t.metrics.RecordChunk(ctx, observability.ChunkFailed)
		}
	}()

	req := transcription.Request{
		Audio:    c.Audio,
		FileName: fmt.Sprintf("chunk_%04d.%s", i, media.DefaultFormat),
		Format:   media.DefaultFormat,
		Context:  prior,
		Language: r.language,
	}
	key := r.cacheKey(req)

	out, cached := r.lookup(ctx, key, i)
	if !cached {
		out, err = r.t.backend.Execute(ctx, req)
		if err != nil {
			return withChunkIndex(transcription.ClassifyError(err), i)
		}
		if out == nil {
			out = &transcription.Outcome{}
		}
		r.store(ctx, key, out, i)
	}

	r.fill(i, out, cached)
	if cached {
		r.t.metrics.RecordChunk(ctx, observability.ChunkCached)
	} else {
		r.t.metrics.RecordChunk(ctx, observability.ChunkTranscribed)
	}
	r.log.Debug("chunk transcribed", logger.Fields(
		logger.FieldChunkIndex, i,
		"chars", len([]rune(r.slots[i].text)),
		"context_chars", len([]rune(prior)),
		"cached", cached,
	))
	return nil
}

// fill sanitizes an outcome and writes it into slot i in file time.
func (r *run) fill(i int, out *transcription.Outcome, cached bool) {
	c := r.chunks[i]
	s := slot{done: true, fromCache: cached}

	s.text = transcription.Sanitize(out.Text)
	if s.text == "" && out.Text != "" {
		r.log.Debug("chunk text dropped as hallucination", logger.Fields(
			logger.FieldChunkIndex, i,
			"text", out.Text,
		))
	}
	if s.text != "" {
		segs := make([]transcription.Segment, 0, len(out.Segments))
		for _, seg := range out.Segments {
			if transcription.IsHallucination(seg.Text) {
				continue
			}
			segs = append(segs, seg)
		}
		s.segments = transcription.Shift(segs, float64(c.StartMs)/1000)
	}
	r.slots[i] = s
}

func (r *run) lookup(ctx context.Context, key string, i int) (*transcription.Outcome, bool) {
	if r.t.cache == nil {
		return nil, false
	}
	out, err := r.t.cache.Load(ctx, key)
	if err != nil {
		r.log.Warn("chunk cache lookup failed", logger.Fields(
			logger.FieldChunkIndex, i,
			logger.FieldError, err.Error(),
		))
		return nil, false
	}
	if out == nil {
		return nil, false
	}
	return out, true
}

func (r *run) store(ctx context.Context, key string, out *transcription.Outcome, i int) {
	if r.t.cache == nil {
		return
	}
	if err := r.t.cache.Save(ctx, key, out, r.t.cacheTTL); err != nil {
		r.log.Warn("chunk cache store failed", logger.Fields(
			logger.FieldChunkIndex, i,
			logger.FieldError, err.Error(),
		))
	}
}

// cacheKey identifies a backend call by everything that can change its
// answer: backend, model, language, context and the audio itself.
func (r *run) cacheKey(req transcription.Request) string {
	h := sha256.New()
	for _, part := range []string{r.t.backend.Name(), r.t.cfg.Model, req.Language, req.Context} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	h.Write(req.Audio)
	return hex.EncodeToString(h.Sum(nil))
}

// assemble joins slot texts in index order with no separator. Chunks with
// text but no segments contribute one segment spanning the whole chunk.
func (r *run) assemble() (string, []transcription.Segment) {
	var b strings.Builder
	segments := make([]transcription.Segment, 0, len(r.slots))
	for i, s := range r.slots {
		if s.silent || s.text == "" {
			continue
		}
		b.WriteString(s.text)
		if len(s.segments) > 0 {
			segments = append(segments, s.segments...)
			continue
		}
		c := r.chunks[i]
		segments = append(segments, transcription.Segment{
			Start: float64(c.StartMs) / 1000,
			End:   float64(c.EndMs) / 1000,
			Text:  s.text,
		})
	}
	return b.String(), segments
}

func (r *run) stats() Stats {
	st := Stats{Chunks: len(r.slots)}
	for _, s := range r.slots {
		switch {
		case s.silent:
			st.ChunksSkippedSilent++
		case s.done:
			st.ChunksTranscribed++
			if s.fromCache {
				st.ChunksFromCache++
			}
		}
	}
	return st
}

func withChunkIndex(err error, i int) error {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr.WithDetail("chunk_index", i)
	}
	return err
}
