// Package middleware holds the net/http middleware applied around every
// route of the server.
package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/kbukum/asrkit/errors"
	"github.com/kbukum/asrkit/logger"
)

// Middleware wraps an http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Chain composes multiple middleware. The first in the list is the outermost
// (runs first on a request, last on a response).
func Chain(middlewares ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			if middlewares[i] != nil {
				final = middlewares[i](final)
			}
		}
		return final
	}
}

// writeError writes an AppError as the standard JSON error body.
func writeError(w http.ResponseWriter, appErr *errors.AppError) {
	body, err := json.Marshal(appErr.ToResponse())
	if err != nil {
		logger.Error("failed to encode error response", logger.Fields(logger.FieldError, err.Error()))
		http.Error(w, appErr.Message, appErr.HTTPStatus)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_, _ = w.Write(body)
}
