package middleware

import (
	"fmt"
	"net/http"

	"github.com/kbukum/asrkit/errors"
	"github.com/kbukum/asrkit/util"
)

const defaultMaxBodySize = 100 << 20

// BodySizeLimit caps request bodies at maxSize, e.g. "200MB". A declared
// Content-Length over the cap is rejected with 413 before the handler
// runs. Chunked bodies are cut off at the cap, and reads past it fail with
// *http.MaxBytesError.
func BodySizeLimit(maxSize string) Middleware {
	limit := util.ParseSize(maxSize, defaultMaxBodySize)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				writeError(w, errors.New(errors.ErrCodeInvalidInput,
					fmt.Sprintf("Request body exceeds the %s limit.", maxSize),
					http.StatusRequestEntityTooLarge))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
