package rag

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v3"
)

// retryTransient runs fn with bounded exponential backoff, retrying only the
// transient failure classes. Structural errors abort immediately and the last
// transient error is surfaced once the budget is exhausted. A budget of zero
// means exactly one attempt.
func retryTransient(ctx context.Context, maxRetries int, fn func() error) error {
	if maxRetries <= 0 {
		return fn()
	}

	op := func() error {
		err := fn()
		if err != nil && !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = 0 // bounded by the retry count, not wall time

	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(maxRetries)), ctx))
}
