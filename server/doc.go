// Package server exposes the transcription pipeline over HTTP using Gin,
// served over HTTP/1.1 and h2c.
//
// # Routes
//
//   - POST /v1/transcriptions: transcribe an uploaded file ("file" form
//     field) or, with allow_local_paths, a JSON {"audio_path": ...}
//   - POST|GET /v1/audio-info: probe a file without transcribing it
//   - /health, /alive, /ready: health, liveness and readiness probes
//   - /info, /debug/runtime: build information and runtime statistics
//
// Both API routes accept ?format=markdown for a rendered response.
//
// # Middleware
//
// Built-in middleware (server/middleware) wraps the whole engine: panic
// recovery, request IDs, CORS, per-client rate limiting, body size limits,
// request logging and OpenTelemetry request metrics.
package server
