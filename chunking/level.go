package chunking

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/go-audio/wav"
)

// DefaultSilenceThresholdDB is the RMS level below which a chunk is silent.
const DefaultSilenceThresholdDB = -40.0

// wavHeaderSize is the canonical RIFF/WAVE header length skipped when the
// bytes cannot be parsed as a WAV container.
const wavHeaderSize = 44

// RMSLevel returns the root-mean-square level of 16-bit PCM audio in dBFS.
// WAV input is decoded with its own bit depth; any other input is read as
// little-endian int16 after a 44-byte header. Audio without samples, or
// with all-zero samples, returns negative infinity.
func RMSLevel(audio []byte) float64 {
	if samples, bitDepth, ok := decodeWAV(audio); ok {
		return dbfs(samples, bitDepth)
	}
	if len(audio) <= wavHeaderSize {
		return math.Inf(-1)
	}
	body := audio[wavHeaderSize:]
	samples := make([]int, len(body)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(body[2*i:])))
	}
	return dbfs(samples, 16)
}

// IsSilent reports whether the level is strictly below the threshold.
func IsSilent(levelDB, thresholdDB float64) bool {
	return levelDB < thresholdDB
}

func decodeWAV(audio []byte) ([]int, int, bool) {
	d := wav.NewDecoder(bytes.NewReader(audio))
	if !d.IsValidFile() {
		return nil, 0, false
	}
	buf, err := d.FullPCMBuffer()
	if err != nil || buf == nil {
		return nil, 0, false
	}
	depth := int(d.BitDepth)
	if depth <= 0 {
		depth = 16
	}
	return buf.Data, depth, true
}

func dbfs(samples []int, bitDepth int) float64 {
	if len(samples) == 0 {
		return math.Inf(-1)
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	if rms == 0 {
		return math.Inf(-1)
	}
	fullScale := float64(int64(1) << (bitDepth - 1))
	return 20 * math.Log10(rms/fullScale)
}
