package board

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// retryOnce runs fn, retrying exactly once on transient failures. Auth
// expiry is permanent: retrying with the same rejected token cannot help.
func retryOnce[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	operation := func() (T, error) {
		value, err := fn()
		if err != nil && errors.Is(err, ErrAuthExpired) {
			return value, backoff.Permanent(err)
		}
		return value, err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 250 * time.Millisecond

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(2),
	)
}
