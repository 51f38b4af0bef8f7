// Package provider is a small generic framework for swappable backends.
//
// Backends implement RequestResponse[I, O] and are created by name from a
// Registry of factories. Cross-cutting behavior is layered with Middleware:
//
//	wrapped := provider.Chain(
//	    provider.WithLogging[In, Out](log),
//	    provider.WithMetrics[In, Out](metrics),
//	    provider.WithTracing[In, Out]("asr"),
//	)(backend)
//
// ContextStore[C] is the typed key/value persistence interface used for
// result caching; MemoryStore is the in-process implementation and
// redis.TypedStore the shared one.
package provider
