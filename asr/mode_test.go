package asr

import (
	"testing"

	"github.com/kbukum/asrkit/errors"
)

func TestParseContextMode(t *testing.T) {
	tests := []struct {
		in   string
		want ContextMode
	}{
		{"", ModeSliding},
		{"none", ModeNone},
		{"Sliding", ModeSliding},
		{" FULL_SERIAL ", ModeFullSerial},
	}
	for _, tc := range tests {
		got, err := ParseContextMode(tc.in)
		if err != nil || got != tc.want {
			t.Errorf("ParseContextMode(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}

	_, err := ParseContextMode("parallel")
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.ErrCodeInvalidInput {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
	if appErr.Details["value"] != "parallel" {
		t.Errorf("details = %v", appErr.Details)
	}
}

func TestRunOptions_Resolve(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		opts     RunOptions
		wantMode ContextMode
		wantN    int
	}{
		{RunOptions{}, ModeSliding, 5},
		{RunOptions{Mode: ModeNone, MaxConcurrency: 8}, ModeNone, 8},
		{RunOptions{MaxConcurrency: 50}, ModeSliding, 20},
		{RunOptions{MaxConcurrency: -1}, ModeSliding, 1},
	}
	for _, tc := range tests {
		mode, n, err := tc.opts.resolve(&cfg)
		if err != nil || mode != tc.wantMode || n != tc.wantN {
			t.Errorf("resolve(%+v) = %q, %d, %v; want %q, %d", tc.opts, mode, n, err, tc.wantMode, tc.wantN)
		}
	}
}
