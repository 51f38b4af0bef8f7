// Package glm implements transcription.Provider for the Zhipu GLM speech
// recognition API. It supports the multipart audio transcriptions endpoint
// and the JSON chat-completions endpoint with inlined audio.
package glm

import (
	"context"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/kbukum/asrkit/errors"
	"github.com/kbukum/asrkit/httpclient"
	"github.com/kbukum/asrkit/logger"
	"github.com/kbukum/asrkit/media"
	"github.com/kbukum/asrkit/provider"
	"github.com/kbukum/asrkit/resilience"
	"github.com/kbukum/asrkit/transcription"
)

// ProviderName is the registered name for the GLM provider.
const ProviderName = "glm"

// Provider implements transcription.Provider against the GLM API.
type Provider struct {
	cfg    Config
	client *httpclient.Client
	log    *logger.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l *logger.Logger) Option {
	return func(p *Provider) { p.log = l }
}

// NewProvider creates a GLM provider. Every call is attempted up to
// MaxRetries+1 times; timeouts, connection failures, 429 and 5xx responses
// are retried with linear backoff, other failures return immediately.
func NewProvider(cfg Config, opts ...Option) (*Provider, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Configuration(err.Error()).WithCause(err)
	}

	p := &Provider{cfg: cfg, log: logger.Nop()}
	for _, o := range opts {
		o(p)
	}
	p.log = p.log.WithComponent("glm")

	retry := httpclient.LinearRetryConfig(cfg.MaxRetries+1, cfg.BackoffStep)
	retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
		p.log.Warn("transcription attempt failed, retrying", logger.Fields(
			logger.FieldAttempt, attempt,
			logger.FieldStatus, httpclient.StatusCode(err),
			logger.FieldError, err.Error(),
			"backoff", backoff.String(),
		))
	}

	hc := httpclient.Config{
		Timeout: cfg.Timeout,
		Auth:    httpclient.BearerAuth(cfg.APIKey),
		Retry:   retry,
	}
	if cfg.RateLimit > 0 {
		hc.RateLimiter = &resilience.RateLimiterConfig{Name: ProviderName, Rate: cfg.RateLimit}
	}
	client, err := httpclient.New(hc)
	if err != nil {
		return nil, errors.Configuration(err.Error()).WithCause(err)
	}
	p.client = client
	return p, nil
}

// Factory returns a provider.Factory that creates GLM Provider instances
// from a generic config map.
func Factory(opts ...Option) provider.Factory[transcription.Provider] {
	return func(cfg map[string]any) (transcription.Provider, error) {
		gc := Config{MaxRetries: 2}
		transcription.Setting(cfg, "api_base", &gc.APIBase)
		transcription.Setting(cfg, "api_key", &gc.APIKey)
		transcription.Setting(cfg, "model", &gc.Model)
		transcription.Setting(cfg, "request_format", &gc.RequestFormat)
		transcription.Setting(cfg, "language", &gc.Language)
		transcription.Setting(cfg, "timeout", &gc.Timeout)
		transcription.Setting(cfg, "max_retries", &gc.MaxRetries)
		transcription.Setting(cfg, "backoff_step", &gc.BackoffStep)
		transcription.Setting(cfg, "rate_limit", &gc.RateLimit)
		return NewProvider(gc, opts...)
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return ProviderName }

// IsAvailable reports whether the provider has credentials. The service
// exposes no health endpoint.
func (p *Provider) IsAvailable(_ context.Context) bool { return p.cfg.APIKey != "" }

// Model returns the configured model name.
func (p *Provider) Model() string { return p.cfg.Model }

// Execute transcribes one chunk of audio.
func (p *Provider) Execute(ctx context.Context, req transcription.Request) (*transcription.Outcome, error) {
	req = req.Resolve(p.cfg.Model, p.cfg.Language)

	var body any
	if p.cfg.RequestFormat == FormatChat {
		body = chatBody(req)
	} else {
		body = multipartBody(req)
	}

	resp, err := p.client.Do(ctx, httpclient.Request{
		Method:  http.MethodPost,
		Path:    p.cfg.APIBase,
		Headers: map[string]string{"Accept": "application/json"},
		Body:    body,
	})
	if err != nil {
		return nil, transcription.ClassifyError(err)
	}

	out, err := decodeResponse(resp.Body)
	if err != nil {
		return nil, errors.API(resp.StatusCode, false, err)
	}
	return out, nil
}

func multipartBody(req transcription.Request) *httpclient.MultipartBody {
	fields := map[string]string{"model": req.Model}
	if req.Context != "" {
		fields["prompt"] = req.Context
	}
	if req.Language != "" {
		fields["language"] = req.Language
	}
	return &httpclient.MultipartBody{
		Fields: fields,
		Files: []httpclient.FileField{{
			FieldName:   "file",
			FileName:    req.FileName,
			ContentType: media.MIMEType(req.Format),
			Data:        req.Audio,
		}},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type       string      `json:"type"`
	Text       string      `json:"text,omitempty"`
	InputAudio *inputAudio `json:"input_audio,omitempty"`
}

type inputAudio struct {
	Data   string `json:"data"`
	Format string `json:"format"`
}

func chatBody(req transcription.Request) chatRequest {
	var parts []contentPart
	if req.Context != "" {
		parts = append(parts, contentPart{Type: "text", Text: req.Context})
	}
	parts = append(parts, contentPart{
		Type: "input_audio",
		InputAudio: &inputAudio{
			Data:   base64.StdEncoding.EncodeToString(req.Audio),
			Format: req.Format,
		},
	})
	return chatRequest{
		Model:    req.Model,
		Messages: []chatMessage{{Role: "user", Content: parts}},
	}
}

// compile-time interface check
var _ transcription.Provider = (*Provider)(nil)
