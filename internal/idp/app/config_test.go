package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("IDP_ISSUER", "https://id.example.com/")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "https://id.example.com", cfg.Issuer)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, KeyStorageEphemeral, cfg.KeyStorageMode)
	require.Equal(t, 30*24*time.Hour, cfg.KeyGracePeriod)
	require.True(t, cfg.VerifyIDTokenHint)
	require.Equal(t, "https://id.example.com/v1/oauth2/device", cfg.DeviceVerificationURI)
	require.Equal(t, "https://id.example.com/v1/oauth2/device/success", cfg.DeviceSuccessURL)
	require.Equal(t, 10*time.Second, cfg.ShutdownGracePeriod)
	require.False(t, cfg.Upstream.Enabled())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("IDP_KEY_STORAGE_MODE", "persistent")
	t.Setenv("IDP_NUM_KEYS", "2")
	t.Setenv("IDP_VERIFY_ID_TOKEN_HINT", "false")
	t.Setenv("HOUSEKEEPING_INTERVAL", "15m")
	t.Setenv("IDP_UPSTREAM_NAME", "google")
	t.Setenv("IDP_UPSTREAM_ISSUER", "https://accounts.google.com")
	t.Setenv("IDP_UPSTREAM_CLIENT_ID", "abc")
	t.Setenv("IDP_UPSTREAM_SCOPES", "openid,email")
	t.Setenv("IDP_SESSION_KEY", "0123456789abcdef0123456789abcdef")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, KeyStoragePersistent, cfg.KeyStorageMode)
	require.Equal(t, 2, cfg.NumKeys)
	require.False(t, cfg.VerifyIDTokenHint)
	require.Equal(t, 15*time.Minute, cfg.HousekeepingInterval)
	require.True(t, cfg.Upstream.Enabled())
	require.Equal(t, []string{"openid", "email"}, cfg.Upstream.Scopes)
	require.Equal(t, "http://localhost:8080/v1/federation/google/callback", cfg.UpstreamRedirectURL())
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "unknown key storage mode",
			env:  map[string]string{"IDP_KEY_STORAGE_MODE": "vault"},
			want: "IDP_KEY_STORAGE_MODE",
		},
		{
			name: "bad duration",
			env:  map[string]string{"SHUTDOWN_GRACE_PERIOD": "soon"},
			want: "parse env",
		},
		{
			name: "upstream without issuer",
			env: map[string]string{
				"IDP_UPSTREAM_NAME": "google",
				"IDP_SESSION_KEY":   "0123456789abcdef0123456789abcdef",
			},
			want: "IDP_UPSTREAM_ISSUER",
		},
		{
			name: "upstream with short session key",
			env: map[string]string{
				"IDP_UPSTREAM_NAME":      "google",
				"IDP_UPSTREAM_ISSUER":    "https://accounts.google.com",
				"IDP_UPSTREAM_CLIENT_ID": "abc",
				"IDP_SESSION_KEY":        "short",
			},
			want: "IDP_SESSION_KEY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadConfig()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}
