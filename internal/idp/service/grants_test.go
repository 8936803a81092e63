package service

import (
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/domain"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/store"
	"github.com/aussiebroadwan/bartab-idp/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestGrantService(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seedClient(t, "test_client", true)
	userID := env.seedUser(t, "TestClient", "test_password")

	t.Run("issue stores only the fingerprint", func(t *testing.T) {
		key := env.issueGrant(t, "test_client", userID, domain.GrantRefreshToken)
		require.Len(t, key, 43)

		_, err := env.store.PersistentGrants().GetGrant(env.ctx, key)
		require.ErrorIs(t, err, store.ErrNotFound)

		g, err := env.store.PersistentGrants().GetGrant(env.ctx, cryptox.FingerprintToken(key))
		require.NoError(t, err)
		require.Equal(t, "test_client", g.ClientID)

		found, err := env.grants.FindByKey(env.ctx, key)
		require.NoError(t, err)
		require.Equal(t, g.Key, found.Key)
	})

	t.Run("redeem is single use", func(t *testing.T) {
		key := env.issueGrant(t, "test_client", userID, domain.GrantAuthorizationCode)

		_, err := env.grants.Redeem(env.ctx, key, domain.GrantRefreshToken)
		require.ErrorIs(t, err, ErrPersistentGrantNotFound)

		g, err := env.grants.Redeem(env.ctx, key, domain.GrantAuthorizationCode)
		require.NoError(t, err)
		require.Equal(t, userID, g.SubjectID)

		_, err = env.grants.Redeem(env.ctx, key, domain.GrantAuthorizationCode)
		require.ErrorIs(t, err, ErrPersistentGrantNotFound)
	})

	t.Run("concurrent redeem hands the grant out once", func(t *testing.T) {
		key := env.issueGrant(t, "test_client", userID, domain.GrantAuthorizationCode)

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := env.grants.Redeem(env.ctx, key, domain.GrantAuthorizationCode); err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		require.Equal(t, 1, wins)
	})

	t.Run("expired grants are not found", func(t *testing.T) {
		key := env.issueGrant(t, "test_client", userID, domain.GrantAuthorizationCode)

		later := env.grants
		later.Clock = func() time.Time { return env.now.Add(2 * time.Hour) }

		_, err := later.FindByKey(env.ctx, key)
		require.ErrorIs(t, err, ErrPersistentGrantNotFound)

		exists, err := later.Exists(env.ctx, "{}", domain.GrantAuthorizationCode)
		require.NoError(t, err)
		require.False(t, exists)

		_, err = later.Redeem(env.ctx, key, domain.GrantAuthorizationCode)
		require.ErrorIs(t, err, ErrPersistentGrantNotFound)

		// Redeem removed the row even though it had expired.
		_, err = env.grants.FindByKey(env.ctx, key)
		require.ErrorIs(t, err, ErrPersistentGrantNotFound)
	})

	t.Run("redeem by data", func(t *testing.T) {
		_, err := env.grants.IssueGrant(env.ctx, env.store.PersistentGrants(), domain.PersistentGrant{
			ClientID:   "test_client",
			SubjectID:  userID,
			GrantType:  domain.PersistentGrantDeviceCode,
			Data:       "device-fingerprint",
			Expiration: 600,
		})
		require.NoError(t, err)

		exists, err := env.grants.Exists(env.ctx, "device-fingerprint", domain.PersistentGrantDeviceCode)
		require.NoError(t, err)
		require.True(t, exists)

		g, err := env.grants.RedeemByData(env.ctx, "device-fingerprint", domain.PersistentGrantDeviceCode)
		require.NoError(t, err)
		require.Equal(t, domain.PersistentGrantDeviceCode, g.GrantType)

		_, err = env.grants.RedeemByData(env.ctx, "device-fingerprint", domain.PersistentGrantDeviceCode)
		require.ErrorIs(t, err, ErrPersistentGrantNotFound)
	})

	t.Run("delete by client and subject", func(t *testing.T) {
		env.issueGrant(t, "test_client", userID, domain.GrantRefreshToken)

		n, err := env.grants.DeleteByClientAndSubject(env.ctx, "test_client", userID)
		require.NoError(t, err)
		require.NotZero(t, n)
		require.Zero(t, env.countGrants(t, userID))
	})
}
