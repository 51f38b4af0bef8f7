package asr

import (
	"fmt"
	"time"

	"github.com/kbukum/asrkit/chunking"
	"github.com/kbukum/asrkit/errors"
	"github.com/kbukum/asrkit/media"
	"github.com/kbukum/asrkit/transcription/glm"
	"github.com/kbukum/asrkit/transcription/whisper"
	"github.com/kbukum/asrkit/util"
	"github.com/kbukum/asrkit/validation"
)

// ServiceChunkLimit is the longest audio, in seconds, the hosted service
// accepts in one request.
const ServiceChunkLimit = 30.0

// Defaults applied by Config.ApplyDefaults.
const (
	DefaultProvider           = glm.ProviderName
	DefaultMaxChunkDuration   = 25.0
	DefaultMaxConcurrency     = 5
	DefaultContextMaxChars    = 2000
	DefaultRequestTimeout     = 60.0
	DefaultMaxRetries         = 2
	DefaultBackoffStep        = time.Second
	DefaultMinSilenceDuration = 0.5
	DefaultCacheTTL           = 24 * time.Hour

	// MaxConcurrencyLimit caps per-run concurrency regardless of input.
	MaxConcurrencyLimit = 20
)

// Config is the transcription pipeline configuration, read from the "asr"
// section (env prefix ASR_).
type Config struct {
	// Provider selects the backend: "glm" or "whisper".
	Provider string `yaml:"provider" mapstructure:"provider" validate:"oneof=glm whisper"`
	// APIBase is the backend endpoint URL. Empty uses the backend default.
	APIBase string `yaml:"api_base" mapstructure:"api_base"`
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
	Model   string `yaml:"model" mapstructure:"model"`
	// RequestFormat is "multipart" or "chat" for the glm backend.
	RequestFormat string `yaml:"request_format" mapstructure:"request_format" validate:"omitempty,oneof=multipart chat"`
	Language      string `yaml:"language" mapstructure:"language"`

	// MaxChunkDuration is the longest chunk in seconds.
	MaxChunkDuration float64 `yaml:"max_chunk_duration" mapstructure:"max_chunk_duration" validate:"gt=0,lte=30"`
	MaxConcurrency   int     `yaml:"max_concurrency" mapstructure:"max_concurrency" validate:"gte=1,lte=20"`
	// ContextMaxChars bounds the prior-text context in runes.
	ContextMaxChars int `yaml:"context_max_chars" mapstructure:"context_max_chars" validate:"gte=0"`
	// RequestTimeout bounds each backend attempt, in seconds.
	RequestTimeout float64       `yaml:"request_timeout" mapstructure:"request_timeout" validate:"gt=0"`
	MaxRetries     int           `yaml:"max_retries" mapstructure:"max_retries" validate:"gte=0"`
	BackoffStep    time.Duration `yaml:"backoff_step" mapstructure:"backoff_step" validate:"gte=0"`
	// RateLimit caps backend requests per second. Zero disables it.
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit" validate:"gte=0"`

	// SilenceThresholdDB is the dBFS level below which audio counts as silence.
	SilenceThresholdDB float64 `yaml:"silence_threshold_db" mapstructure:"silence_threshold_db" validate:"lt=0"`
	// MinSilenceDuration is the shortest silence, in seconds, used as a cut candidate.
	MinSilenceDuration float64 `yaml:"min_silence_duration" mapstructure:"min_silence_duration" validate:"gt=0"`

	FFmpegPath  string `yaml:"ffmpeg_path" mapstructure:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path" mapstructure:"ffprobe_path"`
	// WorkDir holds per-run scratch directories. Empty uses the system temp dir.
	WorkDir string `yaml:"work_dir" mapstructure:"work_dir"`

	// CacheTTL is how long cached chunk outcomes live. Zero keeps them forever.
	CacheTTL time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl" validate:"gte=0"`
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
	if c.MaxChunkDuration == 0 {
		c.MaxChunkDuration = DefaultMaxChunkDuration
	}
	if c.MaxConcurrency == 0 {
		c.MaxConcurrency = DefaultMaxConcurrency
	}
	if c.ContextMaxChars == 0 {
		c.ContextMaxChars = DefaultContextMaxChars
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.BackoffStep == 0 {
		c.BackoffStep = DefaultBackoffStep
	}
	if c.SilenceThresholdDB == 0 {
		c.SilenceThresholdDB = chunking.DefaultSilenceThresholdDB
	}
	if c.MinSilenceDuration == 0 {
		c.MinSilenceDuration = DefaultMinSilenceDuration
	}
}

// DefaultConfig returns a Config with every default applied. MaxRetries
// is the only default that cannot be expressed through ApplyDefaults, since
// zero retries is a valid setting.
func DefaultConfig() Config {
	c := Config{MaxRetries: DefaultMaxRetries, CacheTTL: DefaultCacheTTL}
	c.ApplyDefaults()
	return c
}

// Validate reports the first configuration problem as a configuration
// error. A missing API key for the hosted backend is fatal here, before any
// file is touched.
func (c *Config) Validate() error {
	if c.Provider == glm.ProviderName && c.APIKey == "" {
		return errors.Configuration("asr.api_key is required (set ASR_API_KEY)").WithDetail("field", "api_key")
	}
	if c.MaxChunkDuration > ServiceChunkLimit {
		return errors.Configuration(fmt.Sprintf(
			"asr.max_chunk_duration %.1fs exceeds the %.0fs service limit", c.MaxChunkDuration, ServiceChunkLimit,
		)).WithDetail("field", "max_chunk_duration")
	}
	if err := validation.Validate(c); err != nil {
		appErr, _ := errors.AsAppError(err)
		msg := err.Error()
		if appErr != nil {
			msg = appErr.Message
		}
		return errors.Configuration("invalid asr config: " + msg).WithCause(err)
	}
	return nil
}

// Timeout returns RequestTimeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout * float64(time.Second))
}

// MediaConfig returns the media tool settings.
func (c *Config) MediaConfig() media.Config {
	return media.Config{FFmpegPath: c.FFmpegPath, FFprobePath: c.FFprobePath}
}

// BackendConfig returns the factory config map for the selected provider.
func (c *Config) BackendConfig() map[string]any {
	m := map[string]any{
		"model":        c.Model,
		"language":     c.Language,
		"timeout":      c.Timeout(),
		"max_retries":  c.MaxRetries,
		"backoff_step": c.BackoffStep,
	}
	switch c.Provider {
	case whisper.ProviderName:
		if c.APIBase != "" {
			m["url"] = c.APIBase
		}
	default:
		m["api_base"] = c.APIBase
		m["api_key"] = c.APIKey
		m["request_format"] = c.RequestFormat
		m["rate_limit"] = c.RateLimit
	}
	return m
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	if c.APIKey != "" {
		c.APIKey = util.MaskSecret(c.APIKey, 4)
	}
	return c
}
