// Package whisper is a transcription backend for a self-hosted
// faster-whisper HTTP sidecar. It needs no API key.
package whisper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kbukum/asrkit/errors"
	"github.com/kbukum/asrkit/httpclient"
	"github.com/kbukum/asrkit/media"
	"github.com/kbukum/asrkit/provider"
	"github.com/kbukum/asrkit/transcription"
)

// ProviderName is the registry name.
const ProviderName = "whisper"

// Provider posts chunks to POST /transcribe on the sidecar.
type Provider struct {
	cfg    Config
	client *httpclient.Client
}

// NewProvider builds the client with the same retry policy as the hosted
// backend: MaxRetries+1 attempts, linear backoff, retrying timeouts,
// connection failures, 429 and 5xx.
func NewProvider(cfg Config) (*Provider, error) {
	cfg.ApplyDefaults()
	client, err := httpclient.New(httpclient.Config{
		BaseURL: cfg.URL,
		Timeout: cfg.Timeout,
		Retry:   httpclient.LinearRetryConfig(cfg.MaxRetries+1, cfg.BackoffStep),
	})
	if err != nil {
		return nil, errors.Configuration(err.Error()).WithCause(err)
	}
	return &Provider{cfg: cfg, client: client}, nil
}

// Factory reads the backend config map.
func Factory() provider.Factory[transcription.Provider] {
	return func(m map[string]any) (transcription.Provider, error) {
		cfg := Config{MaxRetries: 2}
		transcription.Setting(m, "url", &cfg.URL)
		transcription.Setting(m, "model", &cfg.Model)
		transcription.Setting(m, "language", &cfg.Language)
		transcription.Setting(m, "device", &cfg.Device)
		transcription.Setting(m, "compute_type", &cfg.ComputeType)
		transcription.Setting(m, "timeout", &cfg.Timeout)
		transcription.Setting(m, "max_retries", &cfg.MaxRetries)
		transcription.Setting(m, "backoff_step", &cfg.BackoffStep)
		return NewProvider(cfg)
	}
}

func (p *Provider) Name() string { return ProviderName }

// IsAvailable probes GET /health once.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	_, err := p.client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/health", NoRetry: true})
	return err == nil
}

// Execute uploads one chunk. Prior transcript text travels as
// initial_prompt.
func (p *Provider) Execute(ctx context.Context, req transcription.Request) (*transcription.Outcome, error) {
	req = req.Resolve(p.cfg.Model, p.cfg.Language)
	resp, err := p.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/transcribe",
		Body: &httpclient.MultipartBody{
			Fields: p.cfg.fields(req),
			Files: []httpclient.FileField{{
				FieldName:   "audio",
				FileName:    req.FileName,
				ContentType: media.MIMEType(req.Format),
				Data:        req.Audio,
			}},
		},
	})
	if err != nil {
		return nil, transcription.ClassifyError(err)
	}

	var body struct {
		Text     string                  `json:"text"`
		Language string                  `json:"language"`
		Segments []transcription.Segment `json:"segments"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, errors.API(resp.StatusCode, false, fmt.Errorf("decode whisper response: %w", err))
	}
	out := &transcription.Outcome{Text: body.Text, Language: body.Language}
	if len(body.Segments) > 0 {
		out.Segments = body.Segments
	}
	return out, nil
}

var _ transcription.Provider = (*Provider)(nil)
