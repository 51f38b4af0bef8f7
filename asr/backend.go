package asr

import (
	"github.com/kbukum/asrkit/logger"
	"github.com/kbukum/asrkit/observability"
	"github.com/kbukum/asrkit/provider"
	"github.com/kbukum/asrkit/transcription"
	"github.com/kbukum/asrkit/transcription/glm"
	"github.com/kbukum/asrkit/transcription/whisper"
)

// NewBackend creates the transcription backend named by cfg.Provider and
// wraps it with logging, metrics and tracing. A nil logger or metrics
// disables that layer.
func NewBackend(cfg Config, log *logger.Logger, metrics *observability.Metrics) (transcription.Provider, error) {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.Nop()
	}

	reg := transcription.NewRegistry()
	reg.RegisterFactory(glm.ProviderName, glm.Factory(glm.WithLogger(log)))
	reg.RegisterFactory(whisper.ProviderName, whisper.Factory())

	backend, err := reg.Create(cfg.Provider, cfg.BackendConfig())
	if err != nil {
		return nil, err
	}

	mw := []transcription.Middleware{provider.WithLogging[transcription.Request, *transcription.Outcome](log)}
	if metrics != nil {
		mw = append(mw, provider.WithMetrics[transcription.Request, *transcription.Outcome](metrics))
	}
	mw = append(mw, provider.WithTracing[transcription.Request, *transcription.Outcome]("asr"))

	return provider.Chain(mw...)(backend), nil
}
