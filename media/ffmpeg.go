package media

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kbukum/asrkit/errors"
	"github.com/kbukum/asrkit/process"
)

// Config selects the media tool binaries.
type Config struct {
	FFmpegPath  string `yaml:"ffmpeg_path" mapstructure:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path" mapstructure:"ffprobe_path"`
}

// ApplyDefaults resolves both binaries through PATH when unset.
func (c *Config) ApplyDefaults() {
	if c.FFmpegPath == "" {
		c.FFmpegPath = "ffmpeg"
	}
	if c.FFprobePath == "" {
		c.FFprobePath = "ffprobe"
	}
}

// FFmpeg implements Tool on top of the ffmpeg and ffprobe executables.
type FFmpeg struct {
	cfg    Config
	runner process.Runner
}

// NewFFmpeg creates an FFmpeg tool. A nil runner uses process.Exec.
func NewFFmpeg(cfg Config, runner process.Runner) *FFmpeg {
	cfg.ApplyDefaults()
	if runner == nil {
		runner = process.Exec
	}
	return &FFmpeg{cfg: cfg, runner: runner}
}

// Check verifies that ffmpeg and ffprobe can be executed.
func (f *FFmpeg) Check(ctx context.Context) error {
	for _, bin := range []string{f.cfg.FFmpegPath, f.cfg.FFprobePath} {
		if _, err := f.runner.Run(ctx, process.Command{Binary: bin, Args: []string{"-version"}}); err != nil {
			return errors.Media("check", err).WithDetail("binary", bin)
		}
	}
	return nil
}

type probeOutput struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
		Size       string `json:"size"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
	} `json:"streams"`
}

// Probe reads duration, sample rate and channel layout with ffprobe.
func (f *FFmpeg) Probe(ctx context.Context, path string) (*AudioInfo, error) {
	st, err := os.Stat(path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, errors.Media("probe", fmt.Errorf("audio file not found: %s", path)).WithDetail("path", path)
		}
		return nil, errors.Media("probe", err).WithDetail("path", path)
	}
	if st.IsDir() {
		return nil, errors.Media("probe", fmt.Errorf("not a regular file: %s", path)).WithDetail("path", path)
	}

	res, err := f.runner.Run(ctx, process.Command{
		Binary: f.cfg.FFprobePath,
		Args: []string{
			"-v", "error",
			"-print_format", "json",
			"-show_format", "-show_streams",
			path,
		},
	})
	if err != nil {
		return nil, mediaError(ctx, "probe", err)
	}

	info, err := parseProbe(res.Stdout, path)
	if err != nil {
		return nil, errors.Media("probe", err).WithDetail("path", path)
	}
	if info.SizeBytes == 0 {
		info.SizeBytes = st.Size()
	}
	return info, nil
}

func parseProbe(out []byte, path string) (*AudioInfo, error) {
	var p probeOutput
	if err := json.Unmarshal(out, &p); err != nil {
		return nil, fmt.Errorf("decode ffprobe output: %w", err)
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(p.Format.Duration), 64)
	if err != nil || duration < 0 {
		return nil, fmt.Errorf("ffprobe reported no usable duration %q", p.Format.Duration)
	}

	info := &AudioInfo{
		Path:            path,
		DurationSeconds: duration,
		Format:          formatName(path, p.Format.FormatName),
	}
	if size, err := strconv.ParseInt(p.Format.Size, 10, 64); err == nil {
		info.SizeBytes = size
	}
	for _, s := range p.Streams {
		if s.CodecType != "audio" {
			continue
		}
		info.SampleRateHz, _ = strconv.Atoi(s.SampleRate)
		info.Channels = s.Channels
		break
	}
	return info, nil
}

// formatName prefers the extension map; ffprobe reports container families
// such as "mov,mp4,m4a,3gp" that are less useful to callers.
func formatName(path, probed string) string {
	if f, ok := lookupExtension(path); ok {
		return f
	}
	if probed != "" {
		return strings.Split(probed, ",")[0]
	}
	return DefaultFormat
}

// ExtractRange cuts [start, start+duration) and re-encodes it as mono
// 16 kHz signed 16-bit WAV.
func (f *FFmpeg) ExtractRange(ctx context.Context, path string, start, duration float64, outPath string) error {
	_, err := f.runner.Run(ctx, process.Command{
		Binary: f.cfg.FFmpegPath,
		Args: []string{
			"-hide_banner", "-loglevel", "error",
			"-y",
			"-ss", seconds(start),
			"-t", seconds(duration),
			"-i", path,
			"-ac", "1", "-ar", "16000",
			"-sample_fmt", "s16",
			"-f", "wav",
			outPath,
		},
	})
	if err != nil {
		return mediaError(ctx, "extract", err)
	}
	return nil
}

// DetectSilence runs ffmpeg's silencedetect filter and parses its report.
func (f *FFmpeg) DetectSilence(ctx context.Context, path string, thresholdDB, minDuration float64) ([]SilenceInterval, error) {
	res, err := f.runner.Run(ctx, process.Command{
		Binary: f.cfg.FFmpegPath,
		Args: []string{
			"-hide_banner", "-nostats",
			"-i", path,
			"-af", fmt.Sprintf("silencedetect=noise=%sdB:d=%s", strconv.FormatFloat(thresholdDB, 'f', -1, 64), seconds(minDuration)),
			"-f", "null", "-",
		},
	})
	if err != nil {
		return nil, mediaError(ctx, "detect_silence", err)
	}
	return parseSilence(string(res.Stderr)), nil
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func mediaError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if stderrors.Is(ctxErr, context.DeadlineExceeded) {
			return errors.Timeout(op).WithCause(err)
		}
		return errors.Canceled(err)
	}
	return errors.Media(op, err)
}
