// Package errors is the error taxonomy of the transcription service.
// Every failure that leaves the pipeline is an *AppError whose Code names
// its class; the code decides the HTTP status and the default retryable
// flag.
package errors

import "fmt"

// AppError is a classified error.
type AppError struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`

	HTTPStatus int   `json:"-"`
	Cause      error `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the cause and returns e.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets one detail and returns e.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

// New returns an error of class code with an explicit HTTP status.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	e := newf(code, "%s", message)
	e.HTTPStatus = httpStatus
	return e
}

func newf(code ErrorCode, format string, args ...any) *AppError {
	return &AppError{
		Code:       code,
		Message:    fmt.Sprintf(format, args...),
		Retryable:  IsRetryableCode(code),
		HTTPStatus: code.HTTPStatus(),
	}
}

// Configuration reports missing or invalid configuration, detected before
// any I/O.
func Configuration(message string) *AppError {
	return newf(ErrCodeConfiguration, "%s", message)
}

// Media reports a failed probe, silence scan or extraction.
func Media(operation string, cause error) *AppError {
	return newf(ErrCodeMedia, "media %s failed", operation).
		WithDetail("operation", operation).
		WithCause(cause)
}

// API reports a failed transcription backend call. status is 0 when no
// HTTP response arrived.
func API(status int, retryable bool, cause error) *AppError {
	if status == 0 {
		e := newf(ErrCodeAPI, "transcription service request failed").WithCause(cause)
		e.Retryable = retryable
		return e
	}
	e := newf(ErrCodeAPI, "transcription service returned status %d", status).
		WithDetail("status", status).
		WithCause(cause)
	e.Retryable = retryable
	return e
}

// MaxRetriesExceeded wraps the last error of an exhausted retry loop.
func MaxRetriesExceeded(attempts int, last error) *AppError {
	return newf(ErrCodeMaxRetriesExceeded, "transcription failed after %d attempts", attempts).
		WithDetail("attempts", attempts).
		WithCause(last)
}

// Timeout reports an operation that ran out of time.
func Timeout(operation string) *AppError {
	return newf(ErrCodeTimeout, "The request took too long. Please try again.").
		WithDetail("operation", operation)
}

// Canceled reports an operation abandoned by its caller.
func Canceled(cause error) *AppError {
	return newf(ErrCodeCanceled, "The operation was canceled.").WithCause(cause)
}

// NotFound reports a missing resource; id may be empty.
func NotFound(resource, id string) *AppError {
	e := newf(ErrCodeNotFound, "The requested %s was not found.", resource).WithDetail("resource", resource)
	if id != "" {
		e.WithDetail("id", id)
	}
	return e
}

// InvalidInput reports a bad request value.
func InvalidInput(field, reason string) *AppError {
	e := newf(ErrCodeInvalidInput, "Invalid input: %s", reason)
	if field != "" {
		e.WithDetail("field", field)
	}
	return e
}

// Validation reports a request that failed struct validation.
func Validation(message string) *AppError {
	return newf(ErrCodeInvalidInput, "%s", message)
}

// MissingField reports an absent required field.
func MissingField(field string) *AppError {
	return newf(ErrCodeMissingField, "Missing required field: %s", field).WithDetail("field", field)
}

// Internal wraps an unexpected failure.
func Internal(cause error) *AppError {
	return newf(ErrCodeInternal, "An unexpected error occurred.").WithCause(cause)
}
