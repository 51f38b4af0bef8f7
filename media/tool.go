// Package media wraps the external media tool used by the pipeline. It
// probes input files, detects silent stretches and extracts time ranges as
// normalized mono 16 kHz PCM WAV.
package media

import "context"

// AudioInfo describes an input file. It is produced once per file and is
// read-only afterwards.
type AudioInfo struct {
	Path            string  `json:"path"`
	DurationSeconds float64 `json:"duration_seconds"`
	Format          string  `json:"format"`
	SampleRateHz    int     `json:"sample_rate_hz"`
	Channels        int     `json:"channels"`
	SizeBytes       int64   `json:"size_bytes"`
}

// SilenceInterval is a stretch of audio below the silence threshold.
// Start and End are seconds from the beginning of the file, Start < End.
type SilenceInterval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Midpoint returns the center of the interval.
func (s SilenceInterval) Midpoint() float64 {
	return (s.Start + s.End) / 2
}

// Prober reads stream metadata from a media file.
type Prober interface {
	Probe(ctx context.Context, path string) (*AudioInfo, error)
}

// Extractor writes the range [start, start+duration) of a media file to
// outPath as a mono 16 kHz 16-bit PCM WAV.
type Extractor interface {
	ExtractRange(ctx context.Context, path string, start, duration float64, outPath string) error
}

// SilenceDetector lists the silent intervals of a media file in ascending order.
type SilenceDetector interface {
	DetectSilence(ctx context.Context, path string, thresholdDB, minDuration float64) ([]SilenceInterval, error)
}

// Tool is the full set of media capabilities the pipeline consumes.
type Tool interface {
	Prober
	Extractor
	SilenceDetector
}
