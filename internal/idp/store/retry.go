package store

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// DefaultUniqueKeyAttempts bounds CreateWithUniqueKey.
const DefaultUniqueKeyAttempts = 5

// CreateWithUniqueKey calls create until it stops failing with
// ErrAlreadyExists. create is expected to mint a fresh key on every call.
// Any other error aborts immediately.
func CreateWithUniqueKey[T any](ctx context.Context, attempts uint, create func(ctx context.Context) (T, error)) (T, error) {
	if attempts == 0 {
		attempts = DefaultUniqueKeyAttempts
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Millisecond
	b.MaxInterval = 20 * time.Millisecond

	return backoff.Retry(ctx, func() (T, error) {
		v, err := create(ctx)
		if err != nil && !errors.Is(err, ErrAlreadyExists) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(attempts))
}
