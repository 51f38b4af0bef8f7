// Package observability wires OpenTelemetry tracing and metrics for the
// transcription pipeline and the HTTP API.
//
// Setup, usually from the command entry point:
//
//	metrics, shutdown, err := observability.Init(ctx, cfg.Observability)
//	defer shutdown(context.Background())
//
// With Enabled false no exporter is created and the instruments record into
// the global no-op provider, so callers never need nil checks beyond the
// *Metrics receiver itself.
//
// Spans:
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanRun)
//	defer span.End()
//	observability.SetSpanAttribute(ctx, observability.AttrRunID, runID)
//
// Health:
//
//	health := observability.CheckAll(ctx, "asr", version, checkers...)
package observability
