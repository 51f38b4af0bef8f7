package provider

import (
	"context"
	"slices"
	"time"

	"github.com/kbukum/asrkit/logger"
	"github.com/kbukum/asrkit/observability"
)

// Middleware decorates a RequestResponse.
type Middleware[I, O any] func(RequestResponse[I, O]) RequestResponse[I, O]

// Chain composes middlewares with the first one outermost, so
// Chain(a, b)(p) is a(b(p)). Nil entries are skipped.
func Chain[I, O any](middlewares ...Middleware[I, O]) Middleware[I, O] {
	return func(p RequestResponse[I, O]) RequestResponse[I, O] {
		for _, mw := range slices.Backward(middlewares) {
			if mw != nil {
				p = mw(p)
			}
		}
		return p
	}
}

// Around turns fn into a Middleware. fn receives the wrapped provider and
// decides how to call it; Name and IsAvailable pass through.
func Around[I, O any](fn func(ctx context.Context, next RequestResponse[I, O], input I) (O, error)) Middleware[I, O] {
	return func(next RequestResponse[I, O]) RequestResponse[I, O] {
		return &around[I, O]{next: next, fn: fn}
	}
}

type around[I, O any] struct {
	next RequestResponse[I, O]
	fn   func(context.Context, RequestResponse[I, O], I) (O, error)
}

func (a *around[I, O]) Name() string                         { return a.next.Name() }
func (a *around[I, O]) IsAvailable(ctx context.Context) bool { return a.next.IsAvailable(ctx) }

func (a *around[I, O]) Execute(ctx context.Context, input I) (O, error) {
	return a.fn(ctx, a.next, input)
}

// WithLogging logs every call with its duration: failures at error level,
// successes at debug. Request and run IDs come from ctx.
func WithLogging[I, O any](log *logger.Logger) Middleware[I, O] {
	return Around(func(ctx context.Context, next RequestResponse[I, O], input I) (O, error) {
		began := time.Now()
		out, err := next.Execute(ctx, input)

		fields := logger.Fields("provider", next.Name(), logger.FieldDuration, time.Since(began).Milliseconds())
		l := log.WithContext(ctx)
		if err != nil {
			fields[logger.FieldError] = err.Error()
			l.Error("provider execute failed", fields)
		} else {
			l.Debug("provider execute ok", fields)
		}
		return out, err
	})
}

// WithMetrics records call count, latency and error type.
func WithMetrics[I, O any](m *observability.Metrics) Middleware[I, O] {
	return Around(func(ctx context.Context, next RequestResponse[I, O], input I) (O, error) {
		began := time.Now()
		out, err := next.Execute(ctx, input)

		status := observability.StatusOK
		if err != nil {
			status = observability.StatusError
			m.RecordError(ctx, observability.ErrorType(err), next.Name())
		}
		m.RecordOperation(ctx, next.Name(), "execute", status, time.Since(began))
		return out, err
	})
}

// WithTracing wraps every call in a span named "<service>.<provider>".
func WithTracing[I, O any](service string) Middleware[I, O] {
	return Around(func(ctx context.Context, next RequestResponse[I, O], input I) (O, error) {
		ctx, span := observability.StartSpan(ctx, service+"."+next.Name())
		defer span.End()
		observability.SetSpanAttribute(ctx, observability.AttrServiceName, service)
		observability.SetSpanAttribute(ctx, observability.AttrOperationName, next.Name())

		out, err := next.Execute(ctx, input)
		observability.SetSpanError(ctx, err)
		return out, err
	})
}
