package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/domain"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/store"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/store/drivers/sqlite"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedClient(t *testing.T, s store.Store, id string) domain.Client {
	t.Helper()

	c := domain.Client{
		ID:                     id,
		Name:                   "Test Client",
		RedirectURIs:           []string{"https://www.google.com/", "https://www.bing.com/"},
		PostLogoutRedirectURIs: []string{"https://www.cole.com/"},
		Scopes:                 []string{"openid", "profile", "api1"},
		GrantTypes:             []string{"authorization_code", "refresh_token"},
		ResponseTypes:          []string{"code", "code id_token"},
		AccessTokenTTL:         15 * time.Minute,
		RequirePKCE:            true,
		Secrets:                []domain.ClientSecret{{ID: id + "-secret", Hash: "hash"}},
	}
	require.NoError(t, s.Clients().CreateClient(context.Background(), c))
	return c
}

func seedUser(t *testing.T, s store.Store, username string) int64 {
	t.Helper()

	id, err := s.Users().CreateUser(context.Background(), domain.User{
		Username:     username,
		PasswordHash: "hash",
		Roles:        []string{"admin", "user"},
		Claims: map[domain.ClaimType]string{
			domain.ClaimEmail: username + "@example.com",
			domain.ClaimName:  "Test User",
		},
	})
	require.NoError(t, err)
	return id
}

func TestClients(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	empty, err := s.Clients().IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	seedClient(t, s, "test_client")

	got, err := s.Clients().GetClientByID(ctx, "test_client")
	require.NoError(t, err)
	require.Equal(t, []string{"https://www.google.com/", "https://www.bing.com/"}, got.RedirectURIs)
	require.Equal(t, []string{"code", "code id_token"}, got.ResponseTypes)
	require.Equal(t, 15*time.Minute, got.AccessTokenTTL)
	require.Equal(t, domain.RefreshTokenOneTimeOnly, got.RefreshTokenUsage)
	require.True(t, got.RequirePKCE)
	require.Len(t, got.Secrets, 1)
	require.Equal(t, domain.SecretTypeShared, got.Secrets[0].Type)

	err = s.Clients().CreateClient(ctx, domain.Client{ID: "test_client", Name: "dup"})
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	got.Scopes = []string{"openid"}
	require.NoError(t, s.Clients().UpdateClient(ctx, got))
	got, err = s.Clients().GetClientByID(ctx, "test_client")
	require.NoError(t, err)
	require.Equal(t, []string{"openid"}, got.Scopes)

	require.NoError(t, s.Clients().DeleteClientSecret(ctx, "test_client", "test_client-secret"))
	require.ErrorIs(t, s.Clients().DeleteClientSecret(ctx, "test_client", "test_client-secret"), store.ErrNotFound)

	require.NoError(t, s.Clients().DeleteClient(ctx, "test_client"))
	_, err = s.Clients().GetClientByID(ctx, "test_client")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUsers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	id := seedUser(t, s, "alice")
	require.NotZero(t, id)

	u, err := s.Users().GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, id, u.ID)
	require.Equal(t, []string{"admin", "user"}, u.Roles)
	require.Equal(t, "alice@example.com", u.Claims[domain.ClaimEmail])
	require.False(t, u.MFAEnabled())

	_, err = s.Users().CreateUser(ctx, domain.User{Username: "alice", PasswordHash: "x"})
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	secret := "JBSWY3DPEHPK3PXP"
	require.NoError(t, s.Users().UpdateMFASecret(ctx, id, &secret))
	require.NoError(t, s.Users().SetClaims(ctx, id, map[domain.ClaimType]string{domain.ClaimLocale: "en-AU"}))

	u, err = s.Users().GetUserByID(ctx, id)
	require.NoError(t, err)
	require.True(t, u.MFAEnabled())
	require.Equal(t, map[domain.ClaimType]string{domain.ClaimLocale: "en-AU"}, u.Claims)

	require.ErrorIs(t, s.Users().UpdatePasswordHash(ctx, 9999, "x"), store.ErrNotFound)
	require.NoError(t, s.Users().DeleteUser(ctx, id))
	_, err = s.Users().GetUserByID(ctx, id)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestPersistentGrants(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)
	seedClient(t, s, "test_client")
	uid := seedUser(t, s, "alice")
	now := time.Now()

	grant := domain.PersistentGrant{
		Key:        "fp-code",
		ClientID:   "test_client",
		SubjectID:  uid,
		GrantType:  domain.GrantAuthorizationCode,
		Data:       `{"redirect_uri":"https://www.google.com/"}`,
		Scopes:     []string{"openid", "profile"},
		SessionID:  "sid",
		CreatedAt:  now,
		Expiration: 300,
	}
	require.NoError(t, s.PersistentGrants().CreateGrant(ctx, grant))
	require.ErrorIs(t, s.PersistentGrants().CreateGrant(ctx, grant), store.ErrAlreadyExists)

	t.Run("redeem is single use", func(t *testing.T) {
		got, err := s.PersistentGrants().Redeem(ctx, "fp-code", domain.GrantAuthorizationCode)
		require.NoError(t, err)
		require.Equal(t, uid, got.SubjectID)
		require.Equal(t, []string{"openid", "profile"}, got.Scopes)
		require.Equal(t, now.Unix(), got.CreatedAt.Unix())

		_, err = s.PersistentGrants().Redeem(ctx, "fp-code", domain.GrantAuthorizationCode)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("redeem checks type", func(t *testing.T) {
		require.NoError(t, s.PersistentGrants().CreateGrant(ctx, domain.PersistentGrant{
			Key: "fp-refresh", ClientID: "test_client", SubjectID: uid,
			GrantType: domain.GrantRefreshToken, CreatedAt: now, Expiration: 60,
		}))
		_, err := s.PersistentGrants().Redeem(ctx, "fp-refresh", domain.GrantAuthorizationCode)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("exists and redeem by data", func(t *testing.T) {
		require.NoError(t, s.PersistentGrants().CreateGrant(ctx, domain.PersistentGrant{
			Key: "fp-device-grant", ClientID: "test_client", SubjectID: uid,
			GrantType: domain.PersistentGrantDeviceCode, Data: "fp-device", CreatedAt: now, Expiration: 600,
		}))

		ok, err := s.PersistentGrants().Exists(ctx, "fp-device", domain.PersistentGrantDeviceCode, now)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = s.PersistentGrants().Exists(ctx, "fp-device", domain.PersistentGrantDeviceCode, now.Add(601*time.Second))
		require.NoError(t, err)
		require.False(t, ok)

		got, err := s.PersistentGrants().RedeemByData(ctx, "fp-device", domain.PersistentGrantDeviceCode)
		require.NoError(t, err)
		require.Equal(t, "fp-device-grant", got.Key)

		ok, err = s.PersistentGrants().Exists(ctx, "fp-device", domain.PersistentGrantDeviceCode, now)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("subjectless grant", func(t *testing.T) {
		require.NoError(t, s.PersistentGrants().CreateGrant(ctx, domain.PersistentGrant{
			Key: "fp-cc", ClientID: "test_client", GrantType: domain.GrantRefreshToken, CreatedAt: now, Expiration: 60,
		}))
		got, err := s.PersistentGrants().GetGrant(ctx, "fp-cc")
		require.NoError(t, err)
		require.Zero(t, got.SubjectID)
	})

	t.Run("delete by client and subject", func(t *testing.T) {
		n, err := s.PersistentGrants().DeleteByClientAndSubject(ctx, "test_client", uid)
		require.NoError(t, err)
		require.EqualValues(t, 1, n)

		n, err = s.PersistentGrants().DeleteByClientAndSubject(ctx, "test_client", uid)
		require.NoError(t, err)
		require.Zero(t, n)
	})

	t.Run("sweep", func(t *testing.T) {
		n, err := s.PersistentGrants().SweepExpired(ctx, now.Add(time.Hour))
		require.NoError(t, err)
		require.EqualValues(t, 1, n)
	})
}

func TestDevices(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)
	seedClient(t, s, "test_client")
	now := time.Now()

	d := domain.Device{
		DeviceCode:              "fp-device",
		UserCode:                "BCDFGHJK",
		ClientID:                "test_client",
		Scopes:                  []string{"openid"},
		VerificationURI:         "https://idp.example.com/device",
		VerificationURIComplete: "https://idp.example.com/device?user_code=BCDFGHJK",
		CreatedAt:               now,
		ExpiresIn:               600,
		Interval:                5,
	}
	require.NoError(t, s.Devices().CreateDevice(ctx, d))

	dup := d
	dup.DeviceCode = "fp-other"
	require.ErrorIs(t, s.Devices().CreateDevice(ctx, dup), store.ErrAlreadyExists)

	got, err := s.Devices().GetByUserCode(ctx, "BCDFGHJK")
	require.NoError(t, err)
	require.Nil(t, got.LastPolledAt)

	require.NoError(t, s.Devices().TouchPolled(ctx, "fp-device", now))
	got, err = s.Devices().GetByDeviceCode(ctx, "fp-device")
	require.NoError(t, err)
	require.NotNil(t, got.LastPolledAt)
	require.Equal(t, now.Unix(), got.LastPolledAt.Unix())

	n, err := s.Devices().SweepExpired(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	require.Zero(t, n)

	require.NoError(t, s.Devices().DeleteByUserCode(ctx, "BCDFGHJK"))
	_, err = s.Devices().GetByDeviceCode(ctx, "fp-device")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestBlacklistedTokens(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now()

	tok := domain.BlacklistedToken{Fingerprint: "fp", ExpiresAt: now.Add(time.Minute)}
	require.NoError(t, s.BlacklistedTokens().Add(ctx, tok))
	require.NoError(t, s.BlacklistedTokens().Add(ctx, tok), "adding twice is fine")

	ok, err := s.BlacklistedTokens().Contains(ctx, "fp", now)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.BlacklistedTokens().Contains(ctx, "fp", now.Add(2*time.Minute))
	require.NoError(t, err)
	require.False(t, ok)

	n, err := s.BlacklistedTokens().SweepExpired(ctx, now.Add(2*time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestAPIResources(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.APIResources().CreateResource(ctx, domain.APIResource{
		Name: "api1",
		Scopes: []domain.APIScope{
			{Name: "api1.read", ClaimTypes: []domain.ClaimType{domain.ClaimEmail}},
			{Name: "api1.write"},
		},
	}))
	require.NoError(t, s.APIResources().CreateResource(ctx, domain.APIResource{
		Name:   "api2",
		Scopes: []domain.APIScope{{Name: "api2"}},
	}))

	found, err := s.APIResources().FindByScopes(ctx, []string{"openid", "api1.write"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "api1", found[0].Name)
	require.Len(t, found[0].Scopes, 2)
	require.Equal(t, []domain.ClaimType{domain.ClaimEmail}, found[0].Scopes[0].ClaimTypes)

	require.NoError(t, s.APIResources().DeleteResource(ctx, "api1"))
	all, err := s.APIResources().ListResources(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestFederatedIdentities(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)
	uid := seedUser(t, s, "alice")

	fi := domain.FederatedIdentity{Provider: "upstream", Subject: "abc", UserID: uid, Email: "alice@example.com"}
	require.NoError(t, s.FederatedIdentities().Link(ctx, fi))
	require.ErrorIs(t, s.FederatedIdentities().Link(ctx, fi), store.ErrAlreadyExists)

	got, err := s.FederatedIdentities().GetByProviderSubject(ctx, "upstream", "abc")
	require.NoError(t, err)
	require.Equal(t, uid, got.UserID)

	list, err := s.FederatedIdentities().ListByUser(ctx, uid)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestSigningKeys(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now()

	for _, kid := range []string{"k1", "k2"} {
		require.NoError(t, s.SigningKeys().CreateSigningKey(ctx, domain.SigningKey{
			ID: "id-" + kid, Kid: kid, Algorithm: "RS256", PrivateKeyEncrypted: []byte("sealed"),
			CreatedAt: now, ExpiresAt: now.Add(time.Hour),
		}))
	}

	require.NoError(t, s.SigningKeys().RetireSigningKey(ctx, "k1", now.Add(-2*time.Hour), now.Add(-time.Hour)))
	require.ErrorIs(t, s.SigningKeys().RetireSigningKey(ctx, "k1", now, now), store.ErrNotFound)

	active, err := s.SigningKeys().ListActiveSigningKeys(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "k2", active[0].Kid)

	all, err := s.SigningKeys().ListAllSigningKeys(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1, "k1 is past its grace period")

	n, err := s.SigningKeys().DeleteExpiredSigningKeys(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = s.SigningKeys().GetSigningKeyByKid(ctx, "k1")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestWithTx_RollsBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	err := s.WithTx(ctx, func(tx store.Tx) error {
		seedClient(t, tx, "rolled_back")
		return store.ErrNotFound
	})
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Clients().GetClientByID(ctx, "rolled_back")
	require.ErrorIs(t, err, store.ErrNotFound)
}
