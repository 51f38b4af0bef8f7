package glm

import (
	"fmt"
	"time"
)

// Request formats accepted by the service.
const (
	// FormatMultipart uploads the audio as multipart/form-data to the
	// audio transcriptions endpoint.
	FormatMultipart = "multipart"
	// FormatChat posts a JSON chat-completions payload with the audio
	// inlined as base64.
	FormatChat = "chat"
)

const (
	// DefaultTranscriptionsURL is the multipart transcription endpoint.
	DefaultTranscriptionsURL = "https://open.bigmodel.cn/api/paas/v4/audio/transcriptions"
	// DefaultChatURL is the chat-completions endpoint used by FormatChat.
	DefaultChatURL = "https://open.bigmodel.cn/api/paas/v4/chat/completions"
	// DefaultModel is the speech recognition model name.
	DefaultModel = "glm-asr"

	defaultTimeout     = 60 * time.Second
	defaultBackoffStep = time.Second
)

// Config holds configuration for the GLM transcription provider.
type Config struct {
	// APIBase is the full endpoint URL. Defaults by RequestFormat.
	APIBase string `yaml:"api_base" mapstructure:"api_base"`
	// APIKey is sent as a bearer token.
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
	Model  string `yaml:"model" mapstructure:"model"`
	// RequestFormat is FormatMultipart (default) or FormatChat.
	RequestFormat string `yaml:"request_format" mapstructure:"request_format"`
	Language      string `yaml:"language" mapstructure:"language"`
	// Timeout bounds each attempt.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// MaxRetries is the number of retries after the first attempt.
	// Negative values disable retries.
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries"`
	// BackoffStep is the linear backoff unit: step, 2*step, 3*step, ...
	BackoffStep time.Duration `yaml:"backoff_step" mapstructure:"backoff_step"`
	// RateLimit caps requests per second across all callers. Zero disables it.
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.RequestFormat == "" {
		c.RequestFormat = FormatMultipart
	}
	if c.APIBase == "" {
		c.APIBase = DefaultTranscriptionsURL
		if c.RequestFormat == FormatChat {
			c.APIBase = DefaultChatURL
		}
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.BackoffStep == 0 {
		c.BackoffStep = defaultBackoffStep
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("glm: api key is required")
	}
	if c.RequestFormat != FormatMultipart && c.RequestFormat != FormatChat {
		return fmt.Errorf("glm: request format must be %q or %q, got %q", FormatMultipart, FormatChat, c.RequestFormat)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("glm: timeout must be positive")
	}
	return nil
}
