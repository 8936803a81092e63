package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/store"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/store/drivers/sqlite"
	"github.com/aussiebroadwan/bartab-idp/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signWith(t *testing.T, km *jwtx.KeyManager) string {
	t.Helper()

	claims := jwtx.NewRegisteredClaims(testIssuer, "1", []string{"test_client"}, time.Hour, time.Now())
	token, err := km.Encode(claims)
	require.NoError(t, err)
	return token
}

func TestKeyRotationEphemeral(t *testing.T) {
	t.Parallel()

	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{RSABits: 2048, NumKeys: 1})
	require.NoError(t, err)
	original := km.GetSigner().KID()
	before := signWith(t, km)

	svc := &KeyRotationService{KeyManager: km, RSABits: 2048}
	ctx := context.Background()

	res, err := svc.RotateKey(ctx, RotateKeyRequest{})
	require.NoError(t, err)
	require.NotEqual(t, original, res.NewKid)
	require.Empty(t, res.RetiredKids)
	require.Equal(t, 2, res.ActiveKeys)

	keys, err := svc.ListSigningKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 2)

	require.NoError(t, svc.RetireKey(ctx, original))
	require.Equal(t, 1, km.NumSigners())
	require.Equal(t, res.NewKid, km.GetSigner().KID())

	// Retired keys keep verifying.
	var claims jwt.RegisteredClaims
	require.NoError(t, km.Decode(before, &claims))
	require.Len(t, km.KeySet.PublicJWKS().Keys, 2)

	require.Error(t, svc.RetireKey(ctx, res.NewKid))

	t.Run("retire existing", func(t *testing.T) {
		res2, err := svc.RotateKey(ctx, RotateKeyRequest{RetireExisting: true})
		require.NoError(t, err)
		require.Equal(t, []string{res.NewKid}, res2.RetiredKids)
		require.Equal(t, 1, res2.ActiveKeys)
		require.Equal(t, res2.NewKid, km.GetSigner().KID())
	})
}

func TestKeyRotationPersistent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	km, err := jwtx.NewPersistentKeyManager(ctx, jwtx.PersistentKeyManagerOptions{
		Store:   store.NewKeyStoreAdapter(st),
		RSABits: 2048,
		NumKeys: 1,
	})
	require.NoError(t, err)
	original := km.GetSigner().KID()
	before := signWith(t, km)

	now := time.Now().UTC()
	svc := &KeyRotationService{
		Store:       st,
		KeyManager:  km,
		RSABits:     2048,
		GracePeriod: time.Hour,
		Clock:       func() time.Time { return now },
	}

	err = svc.RetireKey(ctx, original)
	require.ErrorIs(t, err, ErrLastSigningKey)

	res, err := svc.RotateKey(ctx, RotateKeyRequest{RetireExisting: true})
	require.NoError(t, err)
	require.Equal(t, []string{original}, res.RetiredKids)
	require.Equal(t, 1, res.ActiveKeys)

	keys, err := svc.ListSigningKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 2)

	active, err := st.SigningKeys().ListActiveSigningKeys(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, res.NewKid, active[0].Kid)

	var claims jwt.RegisteredClaims
	require.NoError(t, km.Decode(before, &claims))

	t.Run("reload from the store", func(t *testing.T) {
		reloaded, err := jwtx.NewPersistentKeyManager(ctx, jwtx.PersistentKeyManagerOptions{
			Store:   store.NewKeyStoreAdapter(st),
			RSABits: 2048,
			NumKeys: 1,
		})
		require.NoError(t, err)
		require.Equal(t, res.NewKid, reloaded.GetSigner().KID())

		// The retired key is still inside its grace period.
		var claims jwt.RegisteredClaims
		require.NoError(t, reloaded.Decode(before, &claims))
	})

	t.Run("seeded record", func(t *testing.T) {
		rec, _, err := jwtx.NewSigningKeyRecord(2048, time.Hour, now)
		require.NoError(t, err)
		require.NoError(t, st.SigningKeys().CreateSigningKey(ctx, store.SigningKeyFromRecord(rec)))

		require.NoError(t, svc.RetireKey(ctx, rec.Kid))

		active, err := st.SigningKeys().ListActiveSigningKeys(ctx)
		require.NoError(t, err)
		require.Len(t, active, 1)
	})
}
