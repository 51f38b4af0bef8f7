package bootstrap

import (
	"time"

	"github.com/kbukum/asrkit/logger"
)

const defaultGracefulTimeout = 15 * time.Second

// Option tunes NewApp. It is not generic so one option works for any
// config type.
type Option func(*settings)

type settings struct {
	log             *logger.Logger
	gracefulTimeout time.Duration
}

// WithLogger replaces the logger built from the config's logging section.
func WithLogger(l *logger.Logger) Option {
	return func(s *settings) { s.log = l }
}

// WithGracefulTimeout bounds how long shutdown may take.
func WithGracefulTimeout(d time.Duration) Option {
	return func(s *settings) { s.gracefulTimeout = d }
}
