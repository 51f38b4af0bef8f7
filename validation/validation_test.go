package validation

import (
	"strings"
	"testing"

	"github.com/kbukum/asrkit/errors"
)

type sampleConfig struct {
	APIKey   string  `mapstructure:"api_key" validate:"required"`
	MaxChunk float64 `mapstructure:"max_chunk_duration" validate:"gt=0,lte=30"`
	Format   string  `validate:"omitempty,oneof=multipart chat"`
	Retries  int     `json:"max_retries" validate:"gte=0"`
	Endpoint string  `json:"endpoint" validate:"omitempty,url"`
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  sampleConfig
		want []string
	}{
		{name: "valid", cfg: sampleConfig{APIKey: "k", MaxChunk: 25, Format: "chat"}},
		{name: "missing key", cfg: sampleConfig{MaxChunk: 25}, want: []string{"api_key: is required"}},
		{name: "chunk above limit", cfg: sampleConfig{APIKey: "k", MaxChunk: 31}, want: []string{"max_chunk_duration: must be at most 30"}},
		{name: "chunk zero", cfg: sampleConfig{APIKey: "k"}, want: []string{"max_chunk_duration: must be greater than 0"}},
		{
			name: "several",
			cfg:  sampleConfig{MaxChunk: 10, Format: "xml", Retries: -1, Endpoint: "not a url"},
			want: []string{
				"api_key: is required",
				"format: must be one of: multipart chat",
				"max_retries: must be at least 0",
				"endpoint: must be a valid URL",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.cfg)
			if len(tt.want) == 0 {
				if err != nil {
					t.Fatalf("Validate = %v, want nil", err)
				}
				return
			}
			appErr, ok := errors.AsAppError(err)
			if !ok || appErr.Code != errors.ErrCodeInvalidInput {
				t.Fatalf("err = %v, want INVALID_INPUT", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(appErr.Message, w) {
					t.Errorf("message %q lacks %q", appErr.Message, w)
				}
			}
			if fields, _ := appErr.Details["fields"].([]FieldError); len(fields) != len(tt.want) {
				t.Errorf("fields = %v, want %d entries", appErr.Details["fields"], len(tt.want))
			}
		})
	}
}

func TestValidate_NotAStruct(t *testing.T) {
	if err := Validate(42); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("err = %v", err)
	}
}

func TestSnakeCase(t *testing.T) {
	for in, want := range map[string]string{
		"MaxChunkDuration": "max_chunk_duration",
		"Format":           "format",
		"already":          "already",
	} {
		if got := snakeCase(in); got != want {
			t.Errorf("snakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
