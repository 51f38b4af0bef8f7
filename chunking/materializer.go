package chunking

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kbukum/asrkit/errors"
	"github.com/kbukum/asrkit/logger"
	"github.com/kbukum/asrkit/media"
)

// Chunk is one bounded slice of the source audio and the unit of
// transcription work. Chunks of one run are indexed densely from zero and
// chunk[i].EndMs == chunk[i+1].StartMs.
type Chunk struct {
	Index    int
	StartMs  int64
	EndMs    int64
	Audio    []byte
	IsSilent bool
	LevelDB  float64
}

// Materializer extracts time ranges of an input file as WAV bytes and flags
// silent chunks by RMS level.
type Materializer struct {
	Extractor media.Extractor
	// SilenceThresholdDB defaults to DefaultSilenceThresholdDB when zero.
	SilenceThresholdDB float64
	// WorkDir is the parent of the per-call scratch directory. Empty uses
	// the system temp dir.
	WorkDir string
	Logger  *logger.Logger
}

// Materialize extracts every range in order. All intermediate files live in
// one scratch directory that is removed before Materialize returns, on
// success and on failure. Any extraction failure aborts the call.
func (m *Materializer) Materialize(ctx context.Context, path string, ranges []TimeRange) ([]Chunk, error) {
	if m.Extractor == nil {
		return nil, errors.Configuration("chunking: materializer has no extractor")
	}
	threshold := m.SilenceThresholdDB
	if threshold == 0 {
		threshold = DefaultSilenceThresholdDB
	}
	log := m.Logger
	if log == nil {
		log = logger.Nop()
	}

	dir, err := os.MkdirTemp(m.WorkDir, "asr-chunks-*")
	if err != nil {
		return nil, errors.Media("workdir", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			log.Warn("failed to remove chunk workdir", logger.Fields("dir", dir, logger.FieldError, rmErr.Error()))
		}
	}()

	chunks := make([]Chunk, 0, len(ranges))
	for i, r := range ranges {
		if err := ctx.Err(); err != nil {
			return nil, errors.Canceled(err)
		}

		out := filepath.Join(dir, fmt.Sprintf("chunk_%04d.wav", i))
		if err := m.Extractor.ExtractRange(ctx, path, r.Start, r.Duration(), out); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(out)
		if err != nil {
			return nil, errors.Media("extract", err).WithDetail("chunk_index", i)
		}

		level := RMSLevel(data)
		c := Chunk{
			Index:    i,
			StartMs:  r.StartMs(),
			EndMs:    r.EndMs(),
			Audio:    data,
			IsSilent: IsSilent(level, threshold),
			LevelDB:  level,
		}
		log.Debug("chunk materialized", logger.Fields(
			logger.FieldChunkIndex, i,
			"start_ms", c.StartMs,
			"end_ms", c.EndMs,
			"level_db", level,
			"silent", c.IsSilent,
		))
		chunks = append(chunks, c)
	}
	return chunks, nil
}
