package middleware

import (
	"net/http"
	"time"

	"github.com/kbukum/asrkit/observability"
)

// Metrics records request count, duration and in-flight requests. Routes
// are labeled by path; unknown paths share the "other" label.
func Metrics(m *observability.Metrics, routes ...string) Middleware {
	known := make(map[string]bool, len(routes))
	for _, r := range routes {
		known[r] = true
	}
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := r.URL.Path
			if !known[route] {
				route = "other"
			}
			start := time.Now()
			m.RecordRequestStart(r.Context())
			sw := newStatusWriter(w)
			defer func() {
				m.RecordRequestEnd(r.Context(), r.Method, route, sw.status, time.Since(start))
			}()
			next.ServeHTTP(sw, r)
		})
	}
}
