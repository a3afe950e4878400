package coordinator

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// withRetry wraps a single coordinator round-trip with bounded exponential
// backoff, retrying only transient transport failures (connection resets,
// timeouts, 5xx) and never a claim rejection, which is a normal race
// outcome rather than a fault (spec.md §7 "Transient I/O").
func withRetry(ctx context.Context, maxElapsed time.Duration, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = maxElapsed

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if isPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(policy, ctx))
}

// isPermanent reports whether err should never be retried: a claim
// rejection, a 404, or any client error (4xx) that a retry cannot fix.
func isPermanent(err error) bool {
	var notFound *ErrNotFound
	if errors.As(err, &notFound) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode >= 400 && statusErr.StatusCode < 500 {
			return true
		}
	}
	return false
}
