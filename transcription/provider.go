package transcription

import "github.com/kbukum/asrkit/provider"

// Provider is the interface that transcription backends must implement.
// Execute sends one request and returns the normalized outcome.
type Provider interface {
	provider.RequestResponse[Request, *Outcome]
}

// Middleware wraps a Provider with cross-cutting behavior.
type Middleware = provider.Middleware[Request, *Outcome]

// Setting copies cfg[key] into dst when the value is a T. Factories use it
// to read the loosely typed config map.
func Setting[T any](cfg map[string]any, key string, dst *T) {
	if v, ok := cfg[key].(T); ok {
		*dst = v
	}
}
