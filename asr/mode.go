package asr

import (
	"strings"

	"github.com/kbukum/asrkit/errors"
)

// ContextMode selects how prior transcript text is fed to later chunks.
type ContextMode string

const (
	// ModeNone transcribes every chunk concurrently with no context.
	ModeNone ContextMode = "none"
	// ModeSliding transcribes the first speech chunk alone and uses its text
	// as the context of every remaining chunk, which then run concurrently.
	ModeSliding ContextMode = "sliding"
	// ModeFullSerial transcribes chunks one at a time, each with the tail
	// of everything transcribed before it.
	ModeFullSerial ContextMode = "full_serial"

	// DefaultMode is used when RunOptions.Mode is empty.
	DefaultMode = ModeSliding
)

// Modes lists the accepted context modes.
var Modes = []ContextMode{ModeNone, ModeSliding, ModeFullSerial}

// ParseContextMode parses a mode name, case-insensitively. The empty string
// yields DefaultMode; anything else unknown is an invalid-input error.
func ParseContextMode(s string) (ContextMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultMode, nil
	}
	m := ContextMode(s)
	if !m.Valid() {
		return "", errors.InvalidInput("context_mode",
			"context_mode must be one of: none, sliding, full_serial").WithDetail("value", s)
	}
	return m, nil
}

// Valid reports whether m is a known mode.
func (m ContextMode) Valid() bool {
	for _, known := range Modes {
		if m == known {
			return true
		}
	}
	return false
}

func (m ContextMode) String() string { return string(m) }

// RunOptions are the per-call knobs of Transcribe.
type RunOptions struct {
	// Mode defaults to DefaultMode.
	Mode ContextMode `json:"context_mode,omitempty"`
	// MaxConcurrency defaults to the configured value and is clamped to
	// [1, MaxConcurrencyLimit].
	MaxConcurrency int `json:"max_concurrency,omitempty"`
	// Language overrides the configured language for this run.
	Language string `json:"language,omitempty"`
}

func (o RunOptions) resolve(cfg *Config) (ContextMode, int, error) {
	mode, err := ParseContextMode(string(o.Mode))
	if err != nil {
		return "", 0, err
	}
	n := o.MaxConcurrency
	if n == 0 {
		n = cfg.MaxConcurrency
	}
	return mode, clamp(n, 1, MaxConcurrencyLimit), nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
