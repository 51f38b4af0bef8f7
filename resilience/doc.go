// Package resilience provides the retry, concurrency-limiting and
// rate-limiting primitives used around transcription requests.
//
//   - Retry: bounded attempts with pluggable backoff. An exhausted loop
//     returns a *RetryError that matches ErrMaxRetriesExceeded.
//   - Bulkhead: caps the number of in-flight calls. Acquires from one
//     goroutine are admitted in call order.
//   - RateLimiter: token bucket that spaces out outbound requests.
//
//	bh := resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 5})
//	release, err := bh.Acquire(ctx)
//	if err != nil {
//	    return err
//	}
//	go func() {
//	    defer release()
//	    out, err := resilience.Retry(ctx, resilience.RetryConfig{
//	        MaxAttempts: 3,
//	        Backoff:     resilience.LinearBackoff(time.Second),
//	        RetryIf:     httpclient.IsRetryable,
//	    }, call)
//	    ...
//	}()
package resilience
