package cryptox_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aussiebroadwan/bartab-idp/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func withMasterKey(t *testing.T, value string) {
	t.Setenv(cryptox.MasterKeyEnv, value)
	cryptox.ResetMasterKeyForTesting()
	t.Cleanup(cryptox.ResetMasterKeyForTesting)
}

func TestEncryptDecryptPrivateKey(t *testing.T) {
	withMasterKey(t, "test-master-key-for-encryption")

	pemBytes, err := cryptox.GenerateRSAKey(2048)
	require.NoError(t, err)

	sealed, err := cryptox.EncryptPrivateKey(pemBytes)
	require.NoError(t, err)
	require.NotEqual(t, pemBytes, sealed)

	opened, err := cryptox.DecryptPrivateKey(sealed)
	require.NoError(t, err)
	require.Equal(t, pemBytes, opened)
}

func TestEncryptPrivateKey_RandomNonce(t *testing.T) {
	withMasterKey(t, "test-master-key-nonce")

	data := []byte("sensitive-private-key-data")
	a, err := cryptox.EncryptPrivateKey(data)
	require.NoError(t, err)
	b, err := cryptox.EncryptPrivateKey(data)
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	for _, sealed := range [][]byte{a, b} {
		opened, err := cryptox.DecryptPrivateKey(sealed)
		require.NoError(t, err)
		require.Equal(t, data, opened)
	}
}

func TestDecryptPrivateKey_Rejects(t *testing.T) {
	withMasterKey(t, "test-master-key-rejects")

	sealed, err := cryptox.EncryptPrivateKey([]byte("original-data"))
	require.NoError(t, err)

	tampered := append([]byte(nil), sealed...)
	tampered[len(tampered)-1] ^= 0xFF

	t.Run("tampered", func(t *testing.T) {
		_, err := cryptox.DecryptPrivateKey(tampered)
		require.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := cryptox.DecryptPrivateKey([]byte("invalid-encrypted-data"))
		require.Error(t, err)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := cryptox.DecryptPrivateKey([]byte("short"))
		require.ErrorContains(t, err, "too short")
	})
}

func TestMasterKeyFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "master.key")
	require.NoError(t, os.WriteFile(path, []byte("file-based-master-key"), 0600))

	cryptox.ResetMasterKeyForTesting()
	cryptox.SetMasterKeyPath(path)
	t.Cleanup(func() {
		cryptox.SetMasterKeyPath("")
		cryptox.ResetMasterKeyForTesting()
	})

	data := []byte("test-data-with-file-key")
	sealed, err := cryptox.EncryptPrivateKey(data)
	require.NoError(t, err)

	// A fresh load from the same file must open it.
	cryptox.ResetMasterKeyForTesting()
	opened, err := cryptox.DecryptPrivateKey(sealed)
	require.NoError(t, err)
	require.Equal(t, data, opened)
}
