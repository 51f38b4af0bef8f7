package main

import (
	"github.com/kbukum/asrkit/asr"
	"github.com/kbukum/asrkit/config"
	"github.com/kbukum/asrkit/observability"
	"github.com/kbukum/asrkit/redis"
	"github.com/kbukum/asrkit/server"
	"github.com/kbukum/asrkit/version"
)

const serviceName = "asr"

// legacyEnvPrefix is accepted in place of ASR_ for deployments that still
// export AUTOGLM_ASR_API_KEY and friends.
const legacyEnvPrefix = "AUTOGLM_ASR_"

// AppConfig is the full configuration of the asr binary. Every field can
// be set from config.yml or from the environment, e.g. ASR_API_KEY,
// SERVER_PORT, REDIS_ADDR.
type AppConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	ASR           asr.Config           `yaml:"asr" mapstructure:"asr"`
	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Redis         redis.Config         `yaml:"redis" mapstructure:"redis"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// newAppConfig returns a config pre-filled with defaults that the loader
// keeps unless a file or env var overrides them.
func newAppConfig() *AppConfig {
	return &AppConfig{
		ServiceConfig: config.ServiceConfig{Name: serviceName, Version: version.Version},
		ASR:           asr.DefaultConfig(),
	}
}

// loadConfig reads config.yml, .env and the environment, where
// AUTOGLM_ASR_* variables alias ASR_*.
func loadConfig(configFile string) (*AppConfig, error) {
	cfg := newAppConfig()
	opts := []config.LoaderOption{config.WithEnvAlias(legacyEnvPrefix, "ASR_")}
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults applies defaults to every section.
func (c *AppConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.ASR.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Redis.ApplyDefaults()

	if c.Observability.ServiceName == "" {
		c.Observability.ServiceName = c.Name
	}
	if c.Observability.ServiceVersion == "" {
		c.Observability.ServiceVersion = c.Version
	}
	if c.Observability.Environment == "" {
		c.Observability.Environment = c.Environment
	}
	c.Observability.ApplyDefaults()
}

// Validate validates every section. The ASR section comes first so that a
// missing API key is the error the user sees.
func (c *AppConfig) Validate() error {
	if err := c.ASR.Validate(); err != nil {
		return err
	}
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Redis.Validate(); err != nil {
		return err
	}
	return c.Observability.Validate()
}
