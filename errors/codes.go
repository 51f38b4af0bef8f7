package errors

import "net/http"

// ErrorCode is the machine-readable class of an AppError.
type ErrorCode string

const (
	// Pipeline failures.
	ErrCodeConfiguration      ErrorCode = "CONFIGURATION_ERROR"
	ErrCodeMedia              ErrorCode = "MEDIA_ERROR"
	ErrCodeAPI                ErrorCode = "API_ERROR"
	ErrCodeMaxRetriesExceeded ErrorCode = "MAX_RETRIES_EXCEEDED"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
	ErrCodeCanceled           ErrorCode = "CANCELED"

	// Request failures.
	ErrCodeRateLimited  ErrorCode = "RATE_LIMITED"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// statusClientClosed is the nginx convention for a request the client
// abandoned.
const statusClientClosed = 499

type codeTraits struct {
	status    int
	retryable bool
}

var traits = map[ErrorCode]codeTraits{
	ErrCodeConfiguration:      {http.StatusInternalServerError, false},
	ErrCodeMedia:              {http.StatusUnprocessableEntity, false},
	ErrCodeAPI:                {http.StatusBadGateway, false},
	ErrCodeMaxRetriesExceeded: {http.StatusBadGateway, false},
	ErrCodeTimeout:            {http.StatusGatewayTimeout, true},
	ErrCodeCanceled:           {statusClientClosed, false},
	ErrCodeRateLimited:        {http.StatusTooManyRequests, true},
	ErrCodeNotFound:           {http.StatusNotFound, false},
	ErrCodeInvalidInput:       {http.StatusBadRequest, false},
	ErrCodeMissingField:       {http.StatusBadRequest, false},
	ErrCodeInternal:           {http.StatusInternalServerError, false},
}

// HTTPStatus is the default response status for c; unknown codes map to
// 500.
func (c ErrorCode) HTTPStatus() int {
	if t, ok := traits[c]; ok {
		return t.status
	}
	return http.StatusInternalServerError
}

// IsRetryableCode reports whether errors of this class are worth retrying
// by default.
func IsRetryableCode(code ErrorCode) bool {
	return traits[code].retryable
}
