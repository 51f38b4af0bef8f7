package whisper

import (
	"time"

	"github.com/kbukum/asrkit/transcription"
)

const (
	defaultURL         = "http://localhost:8387"
	defaultModel       = "base"
	defaultTimeout     = 120 * time.Second
	defaultBackoffStep = time.Second
	healthTimeout      = 5 * time.Second
)

// Config configures the faster-whisper sidecar client.
type Config struct {
	URL         string        `yaml:"url" mapstructure:"url"`
	Model       string        `yaml:"model" mapstructure:"model"`
	Language    string        `yaml:"language" mapstructure:"language"`
	Device      string        `yaml:"device" mapstructure:"device"`
	ComputeType string        `yaml:"compute_type" mapstructure:"compute_type"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxRetries  int           `yaml:"max_retries" mapstructure:"max_retries"`
	BackoffStep time.Duration `yaml:"backoff_step" mapstructure:"backoff_step"`
}

// ApplyDefaults targets a local sidecar running the base model.
func (c *Config) ApplyDefaults() {
	if c.URL == "" {
		c.URL = defaultURL
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.BackoffStep <= 0 {
		c.BackoffStep = defaultBackoffStep
	}
	c.MaxRetries = max(c.MaxRetries, 0)
}

// fields are the multipart form values sent with every chunk.
func (c *Config) fields(req transcription.Request) map[string]string {
	f := map[string]string{"model": req.Model}
	for k, v := range map[string]string{
		"language":       req.Language,
		"initial_prompt": req.Context,
		"device":         c.Device,
		"compute_type":   c.ComputeType,
	} {
		if v != "" {
			f[k] = v
		}
	}
	return f
}
