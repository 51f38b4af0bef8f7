package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failed request.
type Kind string

const (
	KindTimeout    Kind = "timeout"
	KindConnection Kind = "connection"
	KindCanceled   Kind = "canceled"
	// KindStatus is a response outside 2xx.
	KindStatus Kind = "status"
	// KindRequest is a request that could not be built or encoded.
	KindRequest Kind = "request"
)

const maxErrorBody = 256

// Error is a failed request. StatusCode and Body are set for KindStatus.
type Error struct {
	Kind       Kind
	StatusCode int
	Body       []byte
	Err        error
}

func (e *Error) Error() string {
	if e.Kind == KindStatus {
		msg := fmt.Sprintf("httpclient: HTTP %d %s", e.StatusCode, http.StatusText(e.StatusCode))
		if s := bodySnippet(e.Body); s != "" {
			msg += ": " + s
		}
		return msg
	}
	if e.Err != nil {
		return fmt.Sprintf("httpclient: %s: %v", e.Kind, e.Err)
	}
	return "httpclient: " + string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether another attempt may succeed. Timeouts,
// connection failures, 429 and 5xx responses are retryable.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindConnection:
		return true
	case KindStatus:
		return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
	default:
		return false
	}
}

// StatusError returns the error for a response status, or nil for 2xx.
func StatusError(statusCode int, body []byte) *Error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	return &Error{Kind: KindStatus, StatusCode: statusCode, Body: body}
}

// Canceled wraps a caller cancellation. It is never retried.
func Canceled(err error) *Error {
	return &Error{Kind: KindCanceled, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// IsRetryable is the RetryIf predicate for client retries.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable()
}

func bodySnippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}
	return strings.ToValidUTF8(s, "")
}
