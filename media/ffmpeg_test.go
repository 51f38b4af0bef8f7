package media

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kbukum/asrkit/errors"
	"github.com/kbukum/asrkit/process"
)

const probeJSON = `{
  "streams": [
    {"index": 0, "codec_type": "video", "width": 640},
    {"index": 1, "codec_type": "audio", "sample_rate": "44100", "channels": 2}
  ],
  "format": {
    "filename": "talk.m4a",
    "format_name": "mov,mp4,m4a,3gp,3g2,mj2",
    "duration": "70.025000",
    "size": "1120400"
  }
}`

const silenceStderr = `Input #0, wav, from 'talk.wav':
  Duration: 00:01:10.00, bitrate: 256 kb/s
  Stream #0:0: Audio: pcm_s16le, 16000 Hz, mono, s16, 256 kb/s
[silencedetect @ 0x55d5c] silence_start: -0.0015
[silencedetect @ 0x55d5c] silence_end: 0.8 | silence_duration: 0.8015
[silencedetect @ 0x55d5c] silence_start: 24.5
[silencedetect @ 0x55d5c] silence_end: 25.5 | silence_duration: 1
[silencedetect @ 0x55d5c] silence_start: 68.2
size=N/A time=00:01:10.00 bitrate=N/A speed= 900x
`

func writeTempFile(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte("not really audio"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return p
}

func TestParseProbe(t *testing.T) {
	info, err := parseProbe([]byte(probeJSON), "/data/talk.m4a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.DurationSeconds != 70.025 {
		t.Errorf("duration = %v, want 70.025", info.DurationSeconds)
	}
	if info.Format != "m4a" {
		t.Errorf("format = %q, want m4a", info.Format)
	}
	if info.SampleRateHz != 44100 || info.Channels != 2 {
		t.Errorf("stream = %d Hz / %d ch, want 44100 Hz / 2 ch", info.SampleRateHz, info.Channels)
	}
	if info.SizeBytes != 1120400 {
		t.Errorf("size = %d, want 1120400", info.SizeBytes)
	}
}

func TestParseProbe_Invalid(t *testing.T) {
	tests := []struct {
		name string
		out  string
	}{
		{"not json", "garbage"},
		{"missing duration", `{"format": {"format_name": "wav"}}`},
		{"bad duration", `{"format": {"duration": "N/A"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseProbe([]byte(tt.out), "a.wav"); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestFormatName(t *testing.T) {
	tests := []struct {
		path, probed, want string
	}{
		{"a.MP3", "mp3", "mp3"},
		{"a.opus", "ogg", "ogg"},
		{"a.aac", "aac,adts", "aac"},
		{"noext", "", "wav"},
	}
	for _, tt := range tests {
		if got := formatName(tt.path, tt.probed); got != tt.want {
			t.Errorf("formatName(%q, %q) = %q, want %q", tt.path, tt.probed, got, tt.want)
		}
	}
}

func TestParseSilence(t *testing.T) {
	got := parseSilence(silenceStderr)
	want := []SilenceInterval{
		{Start: 0, End: 0.8},
		{Start: 24.5, End: 25.5},
		{Start: 68.2, End: 70},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d intervals, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("interval %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if m := got[1].Midpoint(); m != 25 {
		t.Errorf("midpoint = %v, want 25", m)
	}
}

func TestParseSilence_UnterminatedWithoutDuration(t *testing.T) {
	got := parseSilence("[silencedetect @ 0x1] silence_start: 3.5\n")
	if len(got) != 0 {
		t.Fatalf("expected no intervals, got %+v", got)
	}
}

func TestFFmpeg_Probe(t *testing.T) {
	path := writeTempFile(t, "talk.m4a")
	var seen process.Command
	tool := NewFFmpeg(Config{}, process.RunnerFunc(func(_ context.Context, cmd process.Command) (*process.Result, error) {
		seen = cmd
		return &process.Result{Stdout: []byte(probeJSON)}, nil
	}))

	info, err := tool.Probe(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen.Binary != "ffprobe" {
		t.Errorf("binary = %q, want ffprobe", seen.Binary)
	}
	if seen.Args[len(seen.Args)-1] != path {
		t.Errorf("last arg = %q, want input path", seen.Args[len(seen.Args)-1])
	}
	if info.Path != path || info.DurationSeconds != 70.025 {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestFFmpeg_Probe_MissingFile(t *testing.T) {
	called := false
	tool := NewFFmpeg(Config{}, process.RunnerFunc(func(context.Context, process.Command) (*process.Result, error) {
		called = true
		return &process.Result{}, nil
	}))

	_, err := tool.Probe(context.Background(), filepath.Join(t.TempDir(), "nope.wav"))
	if !errors.HasCode(err, errors.ErrCodeMedia) {
		t.Fatalf("expected media error, got %v", err)
	}
	if called {
		t.Error("ffprobe should not run for a missing file")
	}
}

func TestFFmpeg_Probe_ToolFailure(t *testing.T) {
	path := writeTempFile(t, "talk.wav")
	tool := NewFFmpeg(Config{}, process.RunnerFunc(func(context.Context, process.Command) (*process.Result, error) {
		return &process.Result{ExitCode: 1}, &process.ExitError{Binary: "ffprobe", ExitCode: 1, Stderr: "Invalid data found"}
	}))

	_, err := tool.Probe(context.Background(), path)
	if !errors.HasCode(err, errors.ErrCodeMedia) {
		t.Fatalf("expected media error, got %v", err)
	}
	var exitErr *process.ExitError
	if !stderrors.As(err, &exitErr) {
		t.Error("expected cause to be *process.ExitError")
	}
}

func TestFFmpeg_ExtractRange(t *testing.T) {
	var seen process.Command
	tool := NewFFmpeg(Config{FFmpegPath: "/opt/ffmpeg"}, process.RunnerFunc(func(_ context.Context, cmd process.Command) (*process.Result, error) {
		seen = cmd
		return &process.Result{}, nil
	}))

	if err := tool.ExtractRange(context.Background(), "in.mp3", 25, 24.5, "out.wav"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen.Binary != "/opt/ffmpeg" {
		t.Errorf("binary = %q", seen.Binary)
	}
	args := strings.Join(seen.Args, " ")
	for _, want := range []string{"-ss 25.000", "-t 24.500", "-i in.mp3", "-ac 1", "-ar 16000", "-sample_fmt s16", "-f wav out.wav"} {
		if !strings.Contains(args, want) {
			t.Errorf("args %q missing %q", args, want)
		}
	}
}

func TestFFmpeg_DetectSilence(t *testing.T) {
	var seen process.Command
	tool := NewFFmpeg(Config{}, process.RunnerFunc(func(_ context.Context, cmd process.Command) (*process.Result, error) {
		seen = cmd
		return &process.Result{Stderr: []byte(silenceStderr)}, nil
	}))

	got, err := tool.DetectSilence(context.Background(), "in.wav", -40, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d intervals, want 3", len(got))
	}
	args := strings.Join(seen.Args, " ")
	if !strings.Contains(args, "silencedetect=noise=-40dB:d=0.500") {
		t.Errorf("args %q missing silencedetect filter", args)
	}
}

func TestFFmpeg_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tool := NewFFmpeg(Config{}, process.RunnerFunc(func(ctx context.Context, _ process.Command) (*process.Result, error) {
		return nil, ctx.Err()
	}))

	err := tool.ExtractRange(ctx, "in.wav", 0, 1, "out.wav")
	if !errors.HasCode(err, errors.ErrCodeCanceled) {
		t.Fatalf("expected canceled error, got %v", err)
	}
}

func TestFFmpeg_Check(t *testing.T) {
	tool := NewFFmpeg(Config{}, process.RunnerFunc(func(_ context.Context, cmd process.Command) (*process.Result, error) {
		if cmd.Binary == "ffprobe" {
			return nil, process.ErrBinaryNotFound
		}
		return &process.Result{}, nil
	}))
	if err := tool.Check(context.Background()); !errors.HasCode(err, errors.ErrCodeMedia) {
		t.Fatalf("expected media error, got %v", err)
	}
}

func TestFormatFromExtension(t *testing.T) {
	tests := map[string]string{
		"a.mp3": "mp3", "b.WAV": "wav", "c.m4a": "m4a", "d.flac": "flac",
		"e.ogg": "ogg", "f.webm": "webm", "g.aiff": "wav", "h": "wav",
	}
	for in, want := range tests {
		if got := FormatFromExtension(in); got != want {
			t.Errorf("FormatFromExtension(%q) = %q, want %q", in, got, want)
		}
	}
	if MIMEType("mp3") != "audio/mpeg" || MIMEType("xyz") != "application/octet-stream" {
		t.Error("unexpected MIME mapping")
	}
}
