package usecase

import (
	"context"
	"time"
)

// retryPolicy controls the shared retry-with-backoff behavior used by both
// the batch and per-item classification paths.
type retryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
	Retryable   func(error) bool
}

// exponentialBackoff doubles the delay each attempt: 500ms, 1s, 2s, ...
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500<<(attempt-1)) * time.Millisecond
}

// retryWithBackoff runs op until it succeeds, a non-retryable error occurs,
// attempts are exhausted, or the context is done. The last error is returned.
func retryWithBackoff(ctx context.Context, policy retryPolicy, op func() error) error {
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if policy.Retryable != nil && !policy.Retryable(lastErr) {
			return lastErr
		}
		if attempt == policy.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(policy.Backoff(attempt)):
		}
	}
	return lastErr
}
