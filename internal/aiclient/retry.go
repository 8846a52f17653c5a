package aiclient

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// withRetry runs op with exponential backoff until it succeeds, returns a non-retryable
// error, or runs out of attempts.
func withRetry(ctx context.Context, o options, provider string, retryable func(error) bool, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.minInterval
	b.MaxInterval = o.maxInterval
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(o.maxAttempts-1)), ctx)

	attempt := 0
	operation := func() error {
		attempt++
		err := op()
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		o.logger.Warn("AI request failed, retrying",
			"provider", provider,
			"attempt", attempt,
			"maxAttempts", o.maxAttempts,
			"wait", wait,
			"error", err)
	}
	return backoff.RetryNotify(operation, policy, notify)
}
