package service

import (
	"crypto/sha256"
	"encoding/base64"
	"net/url"
	"testing"
	"time"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/domain"
	"github.com/aussiebroadwan/bartab-idp/pkg/jwtx"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

// authorizeCode runs the authorization endpoint for TestClient and returns
// the issued code.
func (e *testEnv) authorizeCode(t *testing.T, req AuthorizationRequest) string {
	t.Helper()

	req.ResponseType = "code"
	req.RedirectURI = "https://www.google.com/"
	req.Username, req.Password = "TestClient", "test_password"

	redirect, err := e.authz.GetRedirectURL(e.ctx, req)
	require.NoError(t, err)
	u, err := url.Parse(redirect)
	require.NoError(t, err)
	return u.Query().Get("code")
}

func TestExchangeAuthorizationCode(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	secret := env.seedClient(t, "test_client", true)
	userID := env.seedUser(t, "TestClient", "test_password")

	code := env.authorizeCode(t, AuthorizationRequest{ClientID: "test_client", Scope: "openid email offline_access", Nonce: "n1"})

	req := TokenRequest{
		GrantType:    string(domain.GrantAuthorizationCode),
		ClientID:     "test_client",
		ClientSecret: secret,
		Code:         code,
		RedirectURI:  "https://www.google.com/",
	}

	set, err := env.tokens.Exchange(env.ctx, req)
	require.NoError(t, err)
	require.Equal(t, "Bearer", set.TokenType)
	require.Equal(t, int64(3600), set.ExpiresIn)
	require.Equal(t, "openid email offline_access", set.Scope)
	require.NotEmpty(t, set.RefreshToken)

	var id jwtx.IDClaims
	require.NoError(t, env.keys.Decode(set.IDToken, &id, jwtx.WithAudience("test_client"), jwtx.WithIssuer(testIssuer)))
	require.Equal(t, subjectOf(userID), id.Subject)
	require.Equal(t, "n1", id.Nonce)
	require.Equal(t, jwtx.AtHash(set.AccessToken), id.AtHash)
	require.NotZero(t, id.AuthTime)

	var access jwtx.AccessClaims
	require.NoError(t, env.keys.Decode(set.AccessToken, &access, jwtx.WithAudience(AudienceUserInfo)))
	require.Equal(t, id.SID, access.SID)

	t.Run("code is single use", func(t *testing.T) {
		_, err := env.tokens.Exchange(env.ctx, req)
		require.ErrorIs(t, err, ErrInvalidGrant)
		require.ErrorIs(t, err, ErrPersistentGrantNotFound)
	})

	t.Run("redirect uri must match", func(t *testing.T) {
		code := env.authorizeCode(t, AuthorizationRequest{ClientID: "test_client", Scope: "openid"})
		req := req
		req.Code = code
		req.RedirectURI = "https://www.bing.com/"

		_, err := env.tokens.Exchange(env.ctx, req)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("wrong client secret", func(t *testing.T) {
		req := req
		req.ClientSecret = "not-the-secret"

		_, err := env.tokens.Exchange(env.ctx, req)
		require.ErrorIs(t, err, ErrInvalidClient)
	})
}

func TestExchangeAuthorizationCodePKCE(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seedClient(t, "spa", false, func(c *domain.Client) {
		c.GrantTypes = []string{string(domain.GrantAuthorizationCode)}
	})
	env.seedUser(t, "TestClient", "test_password")

	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	sum := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])

	req := TokenRequest{
		GrantType:   string(domain.GrantAuthorizationCode),
		ClientID:    "spa",
		RedirectURI: "https://www.google.com/",
	}

	t.Run("wrong verifier", func(t *testing.T) {
		req := req
		req.Code = env.authorizeCode(t, AuthorizationRequest{ClientID: "spa", Scope: "openid", CodeChallenge: challenge, CodeChallengeMethod: "S256"})
		req.CodeVerifier = "wrong-verifier"

		_, err := env.tokens.Exchange(env.ctx, req)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("matching verifier", func(t *testing.T) {
		req := req
		req.Code = env.authorizeCode(t, AuthorizationRequest{ClientID: "spa", Scope: "openid", CodeChallenge: challenge, CodeChallengeMethod: "S256"})
		req.CodeVerifier = verifier

		set, err := env.tokens.Exchange(env.ctx, req)
		require.NoError(t, err)
		require.NotEmpty(t, set.IDToken)
		require.Empty(t, set.RefreshToken)
	})

	t.Run("grant type not registered", func(t *testing.T) {
		_, err := env.tokens.Exchange(env.ctx, TokenRequest{
			GrantType: string(domain.GrantPassword),
			ClientID:  "spa",
			Username:  "TestClient",
			Password:  "test_password",
		})
		require.ErrorIs(t, err, ErrUnauthorizedClient)
	})
}

func TestExchangeCodeOfAnotherClient(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seedClient(t, "test_client", true)
	other := env.seedClient(t, "other_client", true)
	env.seedUser(t, "TestClient", "test_password")

	code := env.authorizeCode(t, AuthorizationRequest{ClientID: "test_client", Scope: "openid"})

	_, err := env.tokens.Exchange(env.ctx, TokenRequest{
		GrantType:    string(domain.GrantAuthorizationCode),
		ClientID:     "other_client",
		ClientSecret: other,
		Code:         code,
		RedirectURI:  "https://www.google.com/",
	})
	require.ErrorIs(t, err, ErrInvalidGrant)
}

func TestExchangeUnsupportedGrantType(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	_, err := env.tokens.Exchange(env.ctx, TokenRequest{GrantType: "implicit", ClientID: "x"})
	require.ErrorIs(t, err, ErrUnsupportedGrantType)

	_, err = env.tokens.Exchange(env.ctx, TokenRequest{GrantType: string(domain.GrantPassword), ClientID: "missing"})
	require.ErrorIs(t, err, ErrInvalidClient)
}

func TestExchangeRefreshTokenRotation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	secret := env.seedClient(t, "test_client", true)
	env.seedUser(t, "TestClient", "test_password")

	set, err := env.tokens.Exchange(env.ctx, TokenRequest{
		GrantType:    string(domain.GrantPassword),
		ClientID:     "test_client",
		ClientSecret: secret,
		Username:     "TestClient",
		Password:     "test_password",
		Scope:        "openid profile",
	})
	require.NoError(t, err)
	first := set.RefreshToken
	require.NotEmpty(t, first)

	refresh := TokenRequest{
		GrantType:    string(domain.GrantRefreshToken),
		ClientID:     "test_client",
		ClientSecret: secret,
		RefreshToken: first,
	}

	rotated, err := env.tokens.Exchange(env.ctx, refresh)
	require.NoError(t, err)
	require.NotEqual(t, first, rotated.RefreshToken)
	require.Equal(t, "openid profile", rotated.Scope)

	_, err = env.tokens.Exchange(env.ctx, refresh)
	require.ErrorIs(t, err, ErrInvalidGrant)

	t.Run("narrower scope", func(t *testing.T) {
		refresh := refresh
		refresh.RefreshToken = rotated.RefreshToken
		refresh.Scope = "openid"

		narrowed, err := env.tokens.Exchange(env.ctx, refresh)
		require.NoError(t, err)
		require.Equal(t, "openid", narrowed.Scope)

		// The successor keeps the scopes of the original grant.
		g, err := env.grants.FindByKey(env.ctx, narrowed.RefreshToken)
		require.NoError(t, err)
		require.Equal(t, []string{"openid", "profile"}, g.Scopes)
	})

	t.Run("wider scope", func(t *testing.T) {
		g, err := env.tokens.Exchange(env.ctx, TokenRequest{
			GrantType:    string(domain.GrantPassword),
			ClientID:     "test_client",
			ClientSecret: secret,
			Username:     "TestClient",
			Password:     "test_password",
			Scope:        "openid",
		})
		require.NoError(t, err)

		refresh := refresh
		refresh.RefreshToken = g.RefreshToken
		refresh.Scope = "openid email"
		_, err = env.tokens.Exchange(env.ctx, refresh)
		require.ErrorIs(t, err, ErrInvalidScope)
	})
}

func TestExchangeRefreshTokenReuse(t *testing.T) {
	t.Parallel()

	newClient := func(t *testing.T, expiration domain.RefreshTokenExpiration) (*testEnv, TokenRequest) {
		env := newTestEnv(t)
		secret := env.seedClient(t, "test_client", true, func(c *domain.Client) {
			c.RefreshTokenUsage = domain.RefreshTokenReuse
			c.RefreshTokenExpiration = expiration
			c.RefreshTokenTTL = time.Hour
		})
		env.seedUser(t, "TestClient", "test_password")

		set, err := env.tokens.Exchange(env.ctx, TokenRequest{
			GrantType:    string(domain.GrantPassword),
			ClientID:     "test_client",
			ClientSecret: secret,
			Username:     "TestClient",
			Password:     "test_password",
		})
		require.NoError(t, err)

		return env, TokenRequest{
			GrantType:    string(domain.GrantRefreshToken),
			ClientID:     "test_client",
			ClientSecret: secret,
			RefreshToken: set.RefreshToken,
		}
	}

	t.Run("absolute", func(t *testing.T) {
		env, refresh := newClient(t, domain.RefreshTokenAbsolute)
		before, err := env.grants.FindByKey(env.ctx, refresh.RefreshToken)
		require.NoError(t, err)

		env.now = env.now.Add(30 * time.Minute)
		set, err := env.tokens.Exchange(env.ctx, refresh)
		require.NoError(t, err)
		require.Equal(t, refresh.RefreshToken, set.RefreshToken)

		after, err := env.grants.FindByKey(env.ctx, refresh.RefreshToken)
		require.NoError(t, err)
		require.Equal(t, before.ExpiresAt(), after.ExpiresAt())

		env.now = env.now.Add(31 * time.Minute)
		_, err = env.tokens.Exchange(env.ctx, refresh)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("sliding", func(t *testing.T) {
		env, refresh := newClient(t, domain.RefreshTokenSliding)

		for range 3 {
			env.now = env.now.Add(45 * time.Minute)
			set, err := env.tokens.Exchange(env.ctx, refresh)
			require.NoError(t, err)
			require.Equal(t, refresh.RefreshToken, set.RefreshToken)

			g, err := env.grants.FindByKey(env.ctx, refresh.RefreshToken)
			require.NoError(t, err)
			require.WithinDuration(t, env.now.Add(time.Hour), g.ExpiresAt(), time.Second)
		}

		env.now = env.now.Add(61 * time.Minute)
		_, err := env.tokens.Exchange(env.ctx, refresh)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})
}

func TestRefreshLifetime(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sliding := domain.Client{RefreshTokenTTL: time.Hour, RefreshTokenExpiration: domain.RefreshTokenSliding}
	absolute := domain.Client{RefreshTokenTTL: time.Hour}

	require.Equal(t, time.Hour, refreshLifetime(sliding, now, now.Add(90*24*time.Hour)))
	require.Equal(t, 10*time.Minute, refreshLifetime(sliding, now, now.Add(10*time.Minute)))
	require.Equal(t, 48*time.Hour, refreshLifetime(absolute, now, now.Add(48*time.Hour)))
	require.Equal(t, domain.MaxSlidingRefreshTokenLifetime, sliding.RefreshAbsoluteLifetime())
	require.Equal(t, time.Hour, absolute.RefreshAbsoluteLifetime())
}

func TestExchangePassword(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	secret := env.seedClient(t, "test_client", true)
	userID := env.seedUser(t, "TestClient", "test_password")

	req := TokenRequest{
		GrantType:    string(domain.GrantPassword),
		ClientID:     "test_client",
		ClientSecret: secret,
		Username:     "TestClient",
		Password:     "test_password",
		Scope:        "openid",
	}

	t.Run("wrong password", func(t *testing.T) {
		req := req
		req.Password = "nope"
		_, err := env.tokens.Exchange(env.ctx, req)
		require.ErrorIs(t, err, ErrInvalidGrant)
		require.ErrorIs(t, err, ErrWrongPassword)
	})

	t.Run("scope outside client", func(t *testing.T) {
		req := req
		req.Scope = "openid admin"
		_, err := env.tokens.Exchange(env.ctx, req)
		require.ErrorIs(t, err, ErrInvalidScope)
	})

	t.Run("totp", func(t *testing.T) {
		key, err := env.users.EnableTOTP(env.ctx, userID)
		require.NoError(t, err)

		_, err = env.tokens.Exchange(env.ctx, req)
		require.ErrorIs(t, err, ErrMFARequired)

		req := req
		req.OTP, err = totp.GenerateCode(key.Secret(), env.now)
		require.NoError(t, err)

		set, err := env.tokens.Exchange(env.ctx, req)
		require.NoError(t, err)

		var claims jwtx.AccessClaims
		require.NoError(t, env.keys.Decode(set.AccessToken, &claims))
		require.Equal(t, []string{jwtx.AMRPassword, jwtx.AMROTP}, claims.AMR)

		require.NoError(t, env.users.DisableTOTP(env.ctx, userID))
	})
}

func TestExchangeClientCredentials(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	secret := env.seedClient(t, "machine", true, func(c *domain.Client) {
		c.Scopes = []string{"orders.read", "orders.write"}
	})
	env.seedClient(t, "public_client", false)

	set, err := env.tokens.Exchange(env.ctx, TokenRequest{
		GrantType:    string(domain.GrantClientCredentials),
		ClientID:     "machine",
		ClientSecret: secret,
		Scope:        "orders.read",
	})
	require.NoError(t, err)
	require.Empty(t, set.RefreshToken)
	require.Empty(t, set.IDToken)

	var claims jwtx.AccessClaims
	require.NoError(t, env.keys.Decode(set.AccessToken, &claims))
	require.Equal(t, "machine", claims.Subject)
	require.Equal(t, []string{jwtx.AMRClient}, claims.AMR)

	_, err = env.tokens.Exchange(env.ctx, TokenRequest{
		GrantType: string(domain.GrantClientCredentials),
		ClientID:  "public_client",
	})
	require.ErrorIs(t, err, ErrUnauthorizedClient)
}

func TestExchangeWithRotatedClientSecret(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	first := env.seedClient(t, "machine", true)

	expired := env.now.Add(-time.Minute)
	stale, err := env.clients.AddSecret(env.ctx, "machine", &expired)
	require.NoError(t, err)
	second, err := env.clients.AddSecret(env.ctx, "machine", nil)
	require.NoError(t, err)

	for _, s := range []string{first, second} {
		_, err := env.tokens.Exchange(env.ctx, TokenRequest{
			GrantType:    string(domain.GrantClientCredentials),
			ClientID:     "machine",
			ClientSecret: s,
		})
		require.NoError(t, err)
	}

	_, err = env.tokens.Exchange(env.ctx, TokenRequest{
		GrantType:    string(domain.GrantClientCredentials),
		ClientID:     "machine",
		ClientSecret: stale,
	})
	require.ErrorIs(t, err, ErrInvalidClient)
}
