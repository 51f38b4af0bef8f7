package provider

import "context"

// Provider is a named backend that can report readiness.
type Provider interface {
	Name() string
	IsAvailable(ctx context.Context) bool
}

// RequestResponse is a Provider that maps one input to one output.
type RequestResponse[I, O any] interface {
	Provider
	Execute(ctx context.Context, input I) (O, error)
}

// Factory builds a provider from a loosely typed config map.
type Factory[T Provider] func(cfg map[string]any) (T, error)

// Func adapts a function to RequestResponse. It is always available.
type Func[I, O any] struct {
	ProviderName string
	Fn           func(ctx context.Context, input I) (O, error)
}

func (f Func[I, O]) Name() string                     { return f.ProviderName }
func (f Func[I, O]) IsAvailable(context.Context) bool { return true }

func (f Func[I, O]) Execute(ctx context.Context, input I) (O, error) { return f.Fn(ctx, input) }
