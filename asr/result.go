package asr

import "github.com/kbukum/asrkit/transcription"

// RunResult is the assembled transcript of one file.
type RunResult struct {
	// Text is the chunk texts joined in index order with no separator.
	Text string `json:"text"`
	// Segments are in file time, ordered by chunk index.
	Segments        []transcription.Segment `json:"segments"`
	DurationSeconds float64                 `json:"duration_seconds"`
	Stats           Stats                   `json:"stats"`
}

// Stats summarizes a run.
type Stats struct {
	RunID               string      `json:"run_id"`
	Chunks              int         `json:"chunks"`
	ChunksTranscribed   int         `json:"chunks_transcribed"`
	ChunksSkippedSilent int         `json:"chunks_skipped_silent"`
	ChunksFromCache     int         `json:"chunks_from_cache"`
	TotalTimeSeconds    float64     `json:"total_time_seconds"`
	Mode                ContextMode `json:"mode"`
	Concurrency         int         `json:"concurrency"`
}
