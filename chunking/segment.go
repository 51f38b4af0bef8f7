// Package chunking splits long audio into bounded-duration chunks. Cuts are
// placed inside detected silence where possible, and every chunk is
// materialized as normalized PCM with a loudness-based silence flag.
package chunking

import (
	"math"
	"sort"

	"github.com/kbukum/asrkit/media"
)

// epsilon absorbs floating-point drift when comparing second offsets.
const epsilon = 1e-6

// minTail is the shortest trailing range emitted on its own. Anything
// shorter would round to a zero-length chunk, so the preceding cut moves
// back until the tail is minTail long.
const minTail = 1e-3

// TimeRange is a half-open span of the source audio in seconds.
type TimeRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns End - Start.
func (r TimeRange) Duration() float64 { return r.End - r.Start }

// StartMs returns Start rounded to whole milliseconds.
func (r TimeRange) StartMs() int64 { return Millis(r.Start) }

// EndMs returns End rounded to whole milliseconds.
func (r TimeRange) EndMs() int64 { return Millis(r.End) }

// Millis converts seconds to rounded milliseconds. Adjacent ranges share a
// boundary value, so their millisecond bounds stay equal after rounding.
func Millis(seconds float64) int64 {
	return int64(math.Round(seconds * 1000))
}

// Segment computes contiguous ranges covering [0, total], none longer than
// maxChunk. Each cut is placed at the latest silence midpoint that falls
// after the current start and no later than start+maxChunk; without one the
// range is cut flat at start+maxChunk. The final range always runs to total.
//
// silences need not be sorted. A total not exceeding maxChunk, or a
// non-positive maxChunk, yields a single range.
func Segment(total, maxChunk float64, silences []media.SilenceInterval) []TimeRange {
	if total < 0 {
		total = 0
	}
	if total <= maxChunk || maxChunk <= 0 {
		return []TimeRange{{Start: 0, End: total}}
	}

	mids := make([]float64, 0, len(silences))
	for _, s := range silences {
		if s.End > s.Start {
			mids = append(mids, s.Midpoint())
		}
	}
	sort.Float64s(mids)

	var out []TimeRange
	start := 0.0
	for start < total-epsilon {
		ideal := start + maxChunk
		end := total
		if ideal < total-epsilon {
			end = math.Min(ideal, total-minTail)
			if end <= start {
				end = ideal
			}
			if m, ok := lastMidpoint(mids, start, end); ok {
				end = m
			}
		}
		out = append(out, TimeRange{Start: start, End: end})
		start = end
	}
	return out
}

// lastMidpoint returns the largest midpoint m with start+minTail < m <= ideal.
func lastMidpoint(mids []float64, start, ideal float64) (float64, bool) {
	i := sort.Search(len(mids), func(i int) bool { return mids[i] > ideal })
	if i == 0 {
		return 0, false
	}
	if m := mids[i-1]; m > start+minTail {
		return m, true
	}
	return 0, false
}
