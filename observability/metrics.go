package observability

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kbukum/asrkit/errors"
)

// Outcome labels for chunk and run metrics.
const (
	StatusOK    = "ok"
	StatusError = "error"

	ChunkTranscribed = "transcribed"
	ChunkSilent      = "silent"
	ChunkCached      = "cached"
	ChunkFailed      = "failed"
)

// Metrics holds the instruments for transcription runs, backend calls and
// the HTTP API. A nil *Metrics records nothing.
type Metrics struct {
	runs         metric.Int64Counter
	runSeconds   metric.Float64Histogram
	audioSeconds metric.Float64Counter
	chunks       metric.Int64Counter

	backendCalls   metric.Int64Counter
	backendSeconds metric.Float64Histogram
	errorsTotal    metric.Int64Counter

	requests       metric.Int64Counter
	requestSeconds metric.Float64Histogram
	inFlight       metric.Int64UpDownCounter
}

// instrumentSet creates instruments on one meter and collects failures.
type instrumentSet struct {
	meter metric.Meter
	errs  []error
}

func (s *instrumentSet) check(name string, err error) {
	if err != nil {
		s.errs = append(s.errs, fmt.Errorf("instrument %s: %w", name, err))
	}
}

func (s *instrumentSet) counter(name, desc string) metric.Int64Counter {
	c, err := s.meter.Int64Counter(name, metric.WithDescription(desc))
	s.check(name, err)
	return c
}

func (s *instrumentSet) seconds(name, desc string) metric.Float64Histogram {
	h, err := s.meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
	s.check(name, err)
	return h
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	s := &instrumentSet{meter: meter}
	m := &Metrics{
		runs:           s.counter("asr.run.total", "Transcription runs by mode and status"),
		runSeconds:     s.seconds("asr.run.duration", "Wall time of transcription runs"),
		chunks:         s.counter("asr.chunk.total", "Chunks by outcome"),
		backendCalls:   s.counter("operation.total", "Backend calls by provider and status"),
		backendSeconds: s.seconds("operation.duration", "Backend call latency"),
		errorsTotal:    s.counter("error.total", "Errors by type and component"),
		requests:       s.counter("request.total", "HTTP requests by route and status"),
		requestSeconds: s.seconds("request.duration", "HTTP request latency"),
	}

	var err error
	m.audioSeconds, err = meter.Float64Counter("asr.audio.duration",
		metric.WithDescription("Seconds of audio transcribed"), metric.WithUnit("s"))
	s.check("asr.audio.duration", err)
	m.inFlight, err = meter.Int64UpDownCounter("request.active",
		metric.WithDescription("In-flight HTTP requests"))
	s.check("request.active", err)

	if len(s.errs) > 0 {
		return nil, stderrors.Join(s.errs...)
	}
	return m, nil
}

// RecordRun records a finished run. Audio seconds count only for
// successful runs.
func (m *Metrics) RecordRun(ctx context.Context, mode, status string, took time.Duration, audioSeconds float64) {
	if m == nil {
		return
	}
	m.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode), attribute.String("status", status)))
	m.runSeconds.Record(ctx, took.Seconds(), metric.WithAttributes(attribute.String("mode", mode)))
	if status == StatusOK && audioSeconds > 0 {
		m.audioSeconds.Add(ctx, audioSeconds)
	}
}

// RecordChunk counts one chunk with the given outcome label.
func (m *Metrics) RecordChunk(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.chunks.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordOperation records one backend call.
func (m *Metrics) RecordOperation(ctx context.Context, service, operation, status string, took time.Duration) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String("service", service), attribute.String("operation", operation)}
	m.backendSeconds.Record(ctx, took.Seconds(), metric.WithAttributes(attrs...))
	m.backendCalls.Add(ctx, 1, metric.WithAttributes(append(attrs, attribute.String("status", status))...))
}

// RecordError counts an error by type and component.
func (m *Metrics) RecordError(ctx context.Context, errType, component string) {
	if m == nil {
		return
	}
	m.errorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("type", errType), attribute.String("component", component)))
}

// RecordRequestStart marks an HTTP request in flight.
func (m *Metrics) RecordRequestStart(ctx context.Context) {
	if m == nil {
		return
	}
	m.inFlight.Add(ctx, 1)
}

// RecordRequestEnd records a completed HTTP request.
func (m *Metrics) RecordRequestEnd(ctx context.Context, method, route string, status int, took time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.Add(ctx, -1)
	attrs := []attribute.KeyValue{attribute.String("method", method), attribute.String("route", route)}
	m.requestSeconds.Record(ctx, took.Seconds(), metric.WithAttributes(attrs...))
	m.requests.Add(ctx, 1, metric.WithAttributes(append(attrs, attribute.Int("status", status))...))
}

// ErrorType is a low-cardinality label for err: the lower-cased error
// code, or "unknown".
func ErrorType(err error) string {
	if appErr, ok := errors.AsAppError(err); ok {
		return strings.ToLower(string(appErr.Code))
	}
	return "unknown"
}
