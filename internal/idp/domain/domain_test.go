package domain_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/domain"
	"github.com/stretchr/testify/require"
)

func TestClient_Predicates(t *testing.T) {
	t.Parallel()

	past := time.Now().Add(-time.Hour)
	c := domain.Client{
		ID:                     "test_client",
		RedirectURIs:           []string{"https://www.google.com/"},
		PostLogoutRedirectURIs: []string{"https://www.cole.com/"},
		Scopes:                 []string{"openid", "profile"},
		GrantTypes:             []string{string(domain.GrantAuthorizationCode)},
		Secrets: []domain.ClientSecret{
			{ID: "old", ExpiresAt: &past},
			{ID: "current"},
		},
	}

	require.True(t, c.AllowsRedirectURI("https://www.google.com/"))
	require.False(t, c.AllowsRedirectURI("https://www.google.com"), "exact match only")
	require.False(t, c.AllowsRedirectURI(""))
	require.True(t, c.AllowsPostLogoutRedirectURI("https://www.cole.com/"))
	require.False(t, c.AllowsPostLogoutRedirectURI("https://www.google.com/"))
	require.True(t, c.AllowsScope("openid"))
	require.False(t, c.AllowsScope("email"))
	require.True(t, c.AllowsGrantType("authorization_code"))
	require.True(t, c.AllowsResponseType("token"), "empty list allows all")
	require.False(t, c.IsPublic())

	active := c.ActiveSecrets(time.Now())
	require.Len(t, active, 1)
	require.Equal(t, "current", active[0].ID)

	require.Equal(t, domain.DefaultAccessTokenTTL, c.AccessTTL())
	c.AccessTokenTTL = time.Minute
	require.Equal(t, time.Minute, c.AccessTTL())
}

func TestPersistentGrant_Expiry(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	g := domain.PersistentGrant{CreatedAt: created, Expiration: 300}

	require.Equal(t, created.Add(5*time.Minute), g.ExpiresAt())
	require.False(t, g.IsExpired(created.Add(299*time.Second)))
	require.True(t, g.IsExpired(created.Add(300*time.Second)), "expired at exactly created+expiration")
}

func TestDevice_Expiry(t *testing.T) {
	t.Parallel()

	created := time.Now()
	d := domain.Device{CreatedAt: created, ExpiresIn: int64(domain.DeviceCodeLifetime / time.Second)}
	require.False(t, d.IsExpired(created.Add(time.Minute)))
	require.True(t, d.IsExpired(created.Add(10*time.Minute)))
}
