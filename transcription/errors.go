package transcription

import (
	"context"
	stderrors "errors"

	"github.com/kbukum/asrkit/errors"
	"github.com/kbukum/asrkit/httpclient"
	"github.com/kbukum/asrkit/resilience"
)

// ClassifyError maps a failed backend call onto the application error
// taxonomy:
//
//   - exhausted retries become MAX_RETRIES_EXCEEDED wrapping the last API error
//   - HTTP and transport failures become API_ERROR with status and retryable flag
//   - caller cancellation stays CANCELED
//
// AppErrors pass through unchanged.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.AsAppError(err); ok {
		return err
	}

	var retryErr *resilience.RetryError
	if stderrors.As(err, &retryErr) {
		last := apiError(retryErr.Err)
		return errors.MaxRetriesExceeded(retryErr.Attempts, last)
	}

	kind := httpclient.KindOf(err)
	if kind == httpclient.KindCanceled || stderrors.Is(err, context.Canceled) {
		return errors.Canceled(err)
	}
	if kind == "" && stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Timeout("transcribe").WithCause(err)
	}
	return apiError(err)
}

func apiError(err error) *errors.AppError {
	return errors.API(httpclient.StatusCode(err), httpclient.IsRetryable(err), err)
}
