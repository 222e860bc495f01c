// Package retry provides backoff and retry logic for transient failures,
// used by the HTTP line sink.
//
//	err := retry.Do(ctx, func(ctx context.Context) error {
//		return sink.post(ctx, line)
//	}, &retry.Config{
//		MaxAttempts: 3,
//		Backoff:     retry.NewErrorTypeBackoff(),
//		RetryIf:     retry.DefaultRetryIf,
//	})
//
// Typed errors from chatscrape/pkg/errors are retried only when their type is
// retryable (network, rate_limit, server_error). Context errors stop the loop.
// ErrorTypeBackoff picks a delay table from the error type of each failure.
package retry
