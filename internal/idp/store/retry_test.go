package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/store"
	"github.com/stretchr/testify/require"
)

func TestCreateWithUniqueKey(t *testing.T) {
	t.Parallel()

	t.Run("retries collisions", func(t *testing.T) {
		t.Parallel()

		calls := 0
		v, err := store.CreateWithUniqueKey(context.Background(), 5, func(context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", store.ErrAlreadyExists
			}
			return "key-3", nil
		})
		require.NoError(t, err)
		require.Equal(t, "key-3", v)
		require.Equal(t, 3, calls)
	})

	t.Run("gives up after attempts", func(t *testing.T) {
		t.Parallel()

		calls := 0
		_, err := store.CreateWithUniqueKey(context.Background(), 2, func(context.Context) (string, error) {
			calls++
			return "", store.ErrAlreadyExists
		})
		require.ErrorIs(t, err, store.ErrAlreadyExists)
		require.Equal(t, 2, calls)
	})

	t.Run("other errors are permanent", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		calls := 0
		_, err := store.CreateWithUniqueKey(context.Background(), 5, func(context.Context) (int, error) {
			calls++
			return 0, boom
		})
		require.ErrorIs(t, err, boom)
		require.Equal(t, 1, calls)
	})
}
