package asr

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kbukum/asrkit/media"
)

// FormatResult renders a run as Markdown: a stats line, the full text and,
// when there is more than one non-empty segment, a timestamped segment list.
func FormatResult(res *RunResult) string {
	st := res.Stats

	var stats strings.Builder
	fmt.Fprintf(&stats, "**Duration:** %.1fs | **Chunks:** %d/%d", res.DurationSeconds, st.ChunksTranscribed, st.Chunks)
	if st.ChunksSkippedSilent > 0 {
		fmt.Fprintf(&stats, " (%d silent skipped)", st.ChunksSkippedSilent)
	}
	if st.ChunksFromCache > 0 {
		fmt.Fprintf(&stats, " (%d cached)", st.ChunksFromCache)
	}
	fmt.Fprintf(&stats, " | **Time:** %ss | **Mode:** %s", formatSeconds(st.TotalTimeSeconds), st.Mode)

	lines := []string{
		"## Transcription Result",
		"",
		stats.String(),
		"",
		"### Full Text",
		"",
		res.Text,
	}

	var segs []string
	for _, seg := range res.Segments {
		if strings.TrimSpace(seg.Text) == "" {
			continue
		}
		segs = append(segs, fmt.Sprintf("**[%.1fs - %.1fs]** %s", seg.Start, seg.End, seg.Text))
	}
	if len(segs) > 1 {
		lines = append(lines, "", "### Segments", "")
		lines = append(lines, segs...)
	}
	return strings.Join(lines, "\n")
}

// FormatAudioInfo renders probe results as Markdown, including the number
// of chunks a file of this length needs at maxChunk seconds per chunk.
func FormatAudioInfo(info *media.AudioInfo, maxChunk float64) string {
	size := float64(info.SizeBytes) / (1024 * 1024)
	return strings.Join([]string{
		"## Audio Info",
		"",
		"**File:** " + filepath.Base(info.Path),
		"**Format:** " + info.Format,
		fmt.Sprintf("**Duration:** %.1fs (%.1f minutes)", info.DurationSeconds, info.DurationSeconds/60),
		fmt.Sprintf("**Size:** %.2f MB", size),
		fmt.Sprintf("**Estimated chunks:** %d (at %ss per chunk)",
			EstimateChunks(info.DurationSeconds, maxChunk), formatSeconds(maxChunk)),
	}, "\n")
}

// formatSeconds prints the shortest exact form, keeping one decimal for
// whole numbers ("12.0", "3.25").
func formatSeconds(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
