package server

import (
	"fmt"

	"github.com/kbukum/asrkit/errors"
	"github.com/kbukum/asrkit/server/middleware"
)

// Config holds HTTP server configuration.
type Config struct {
	Host         string `yaml:"host" mapstructure:"host"`
	Port         int    `yaml:"port" mapstructure:"port"`
	ReadTimeout  int    `yaml:"read_timeout" mapstructure:"read_timeout"`   // seconds
	WriteTimeout int    `yaml:"write_timeout" mapstructure:"write_timeout"` // seconds, covers a whole transcription
	IdleTimeout  int    `yaml:"idle_timeout" mapstructure:"idle_timeout"`   // seconds
	MaxBodySize  string `yaml:"max_body_size" mapstructure:"max_body_size"` // e.g. "200MB"
	// UploadDir receives uploaded audio. Empty uses the system temp dir.
	UploadDir string `yaml:"upload_dir" mapstructure:"upload_dir"`
	// AllowLocalPaths lets JSON requests name files on the server host.
	AllowLocalPaths bool                       `yaml:"allow_local_paths" mapstructure:"allow_local_paths"`
	CORS            middleware.CORSConfig      `yaml:"cors" mapstructure:"cors"`
	RateLimit       middleware.RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 60
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 1800
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 120
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "200MB"
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if len(c.CORS.AllowedMethods) == 0 {
		c.CORS.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(c.CORS.AllowedHeaders) == 0 {
		c.CORS.AllowedHeaders = []string{"Origin", "Content-Type", "Accept", "X-Request-Id"}
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return errors.Configuration(fmt.Sprintf("server.port must be between 0 and 65535 (got: %d)", c.Port))
	}
	if c.ReadTimeout < 0 {
		return errors.Configuration(fmt.Sprintf("server.read_timeout must be non-negative (got: %d)", c.ReadTimeout))
	}
	if c.WriteTimeout < 0 {
		return errors.Configuration(fmt.Sprintf("server.write_timeout must be non-negative (got: %d)", c.WriteTimeout))
	}
	if c.IdleTimeout < 0 {
		return errors.Configuration(fmt.Sprintf("server.idle_timeout must be non-negative (got: %d)", c.IdleTimeout))
	}
	if c.RateLimit.RequestsPerMinute < 0 {
		return errors.Configuration("server.rate_limit.requests_per_minute must be non-negative")
	}
	return nil
}
