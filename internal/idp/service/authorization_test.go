package service

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/domain"
	"github.com/aussiebroadwan/bartab-idp/pkg/cryptox"
	"github.com/aussiebroadwan/bartab-idp/pkg/jwtx"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func TestGetRedirectURLCode(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seedClient(t, "test_client", true)
	userID := env.seedUser(t, "TestClient", "test_password")

	redirect, err := env.authz.GetRedirectURL(env.ctx, AuthorizationRequest{
		ResponseType: "code",
		ClientID:     "test_client",
		RedirectURI:  "https://www.google.com/",
		Scope:        "openid profile",
		State:        "xyz",
		Username:     "TestClient",
		Password:     "test_password",
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(redirect, "https://www.google.com/?code="))

	u, err := url.Parse(redirect)
	require.NoError(t, err)
	code := u.Query().Get("code")
	require.GreaterOrEqual(t, len(code), 43)
	require.NotContains(t, code, "+")
	require.NotContains(t, code, "/")
	require.Equal(t, "xyz", u.Query().Get("state"))

	grants, err := env.store.PersistentGrants().ListBySubject(env.ctx, userID)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	require.Equal(t, domain.GrantAuthorizationCode, grants[0].GrantType)
	require.Equal(t, cryptox.FingerprintToken(code), grants[0].Key)
	require.Equal(t, []string{"openid", "profile"}, grants[0].Scopes)
	require.NotEmpty(t, grants[0].SessionID)
}

func TestGetRedirectURLToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seedClient(t, "test_client", true)
	env.seedUser(t, "TestClient", "test_password")

	redirect, err := env.authz.GetRedirectURL(env.ctx, AuthorizationRequest{
		ResponseType: "token",
		ClientID:     "test_client",
		RedirectURI:  "https://www.google.com/",
		Scope:        "openid",
		Username:     "TestClient",
		Password:     "test_password",
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(redirect, "https://www.google.com/?access_token="))
	require.Contains(t, redirect, "token_type=Bearer")
	require.NotContains(t, redirect, "id_token")

	u, err := url.Parse(redirect)
	require.NoError(t, err)
	require.Equal(t, "3600", u.Query().Get("expires_in"))

	var claims jwtx.AccessClaims
	require.NoError(t, env.keys.Decode(u.Query().Get("access_token"), &claims, jwtx.WithIssuer(testIssuer)))
	require.Equal(t, "test_client", claims.ClientID)
	require.Equal(t, "openid", claims.Scope)
	require.Equal(t, []string{jwtx.AMRPassword}, claims.AMR)
	require.Equal(t, []string{"member"}, claims.Roles)
	require.ElementsMatch(t, []string{AudienceUserInfo, AudienceIntrospection, AudienceRevoke}, []string(claims.Audience))
}

func TestGetRedirectURLIDToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seedClient(t, "test_client", true)
	userID := env.seedUser(t, "TestClient", "test_password")

	req := AuthorizationRequest{
		ClientID:    "test_client",
		RedirectURI: "https://www.google.com/",
		Scope:       "openid email",
		Nonce:       "n-0S6_WzA2Mj",
		Username:    "TestClient",
		Password:    "test_password",
	}

	t.Run("id_token only", func(t *testing.T) {
		req := req
		req.ResponseType = "id_token"

		redirect, err := env.authz.GetRedirectURL(env.ctx, req)
		require.NoError(t, err)

		u, err := url.Parse(redirect)
		require.NoError(t, err)
		require.Empty(t, u.Query().Get("access_token"))

		var claims jwtx.IDClaims
		require.NoError(t, env.keys.Decode(u.Query().Get("id_token"), &claims, jwtx.WithAudience("test_client")))
		require.Equal(t, subjectOf(userID), claims.Subject)
		require.Equal(t, "n-0S6_WzA2Mj", claims.Nonce)
		require.Equal(t, "TestClient@example.com", claims.UserClaims["email"])
		require.NotContains(t, claims.UserClaims, "name")
		require.Empty(t, claims.AtHash)
	})

	t.Run("token order is normalised", func(t *testing.T) {
		req := req
		req.ResponseType = "token id_token"

		redirect, err := env.authz.GetRedirectURL(env.ctx, req)
		require.NoError(t, err)

		u, err := url.Parse(redirect)
		require.NoError(t, err)
		at := u.Query().Get("access_token")
		require.NotEmpty(t, at)

		var claims jwtx.IDClaims
		require.NoError(t, env.keys.Decode(u.Query().Get("id_token"), &claims))
		require.Equal(t, jwtx.AtHash(at), claims.AtHash)
	})

	t.Run("requires openid", func(t *testing.T) {
		req := req
		req.ResponseType = "id_token"
		req.Scope = "email"

		_, err := env.authz.GetRedirectURL(env.ctx, req)
		require.ErrorIs(t, err, ErrInvalidScope)
	})
}

func TestGetRedirectURLErrors(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seedClient(t, "test_client", true)
	env.seedClient(t, "public_client", false)
	env.seedClient(t, "code_only", true, func(c *domain.Client) {
		c.ResponseTypes = []string{"code"}
	})
	env.seedClient(t, "machine", true, func(c *domain.Client) {
		c.GrantTypes = []string{string(domain.GrantClientCredentials)}
	})
	userID := env.seedUser(t, "TestClient", "test_password")

	valid := AuthorizationRequest{
		ResponseType: "code",
		ClientID:     "test_client",
		RedirectURI:  "https://www.google.com/",
		Scope:        "openid",
		Username:     "TestClient",
		Password:     "test_password",
	}

	tests := []struct {
		name   string
		mutate func(*AuthorizationRequest)
		want   error
	}{
		{"unregistered response type", func(r *AuthorizationRequest) { r.ResponseType = "code token foo" }, ErrWrongResponseType},
		{"empty response type", func(r *AuthorizationRequest) { r.ResponseType = "" }, ErrWrongResponseType},
		{"missing client id", func(r *AuthorizationRequest) { r.ClientID = "" }, ErrInvalidRequest},
		{"missing redirect uri", func(r *AuthorizationRequest) { r.RedirectURI = " " }, ErrInvalidRequest},
		{"unknown client", func(r *AuthorizationRequest) { r.ClientID = "nope" }, ErrClientNotFound},
		{"unregistered redirect uri", func(r *AuthorizationRequest) { r.RedirectURI = "https://evil.example/" }, ErrClientRedirectURI},
		{"response type not allowed", func(r *AuthorizationRequest) { r.ClientID = "code_only"; r.ResponseType = "token" }, ErrUnauthorizedClient},
		{"code grant not allowed", func(r *AuthorizationRequest) { r.ClientID = "machine" }, ErrUnauthorizedClient},
		{"scope outside client", func(r *AuthorizationRequest) { r.Scope = "openid admin" }, ErrClientScopes},
		{"user code on code request", func(r *AuthorizationRequest) { r.Scope = "openid user_code=BCDFGHJK" }, ErrClientScopes},
		{"user code on token request", func(r *AuthorizationRequest) { r.ResponseType = "token"; r.Scope = "user_code=BCDFGHJK" }, ErrClientScopes},
		{"public client without pkce", func(r *AuthorizationRequest) { r.ClientID = "public_client" }, ErrInvalidRequest},
		{"unknown pkce method", func(r *AuthorizationRequest) { r.CodeChallenge = "abc"; r.CodeChallengeMethod = "S512" }, ErrInvalidRequest},
		{"unknown user", func(r *AuthorizationRequest) { r.Username = "ghost" }, ErrUserNotFound},
		{"wrong password", func(r *AuthorizationRequest) { r.Password = "nope" }, ErrWrongPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)

			_, err := env.authz.GetRedirectURL(env.ctx, req)
			require.ErrorIs(t, err, tt.want)
		})
	}

	require.Zero(t, env.countGrants(t, userID))
}

func TestGetRedirectURLWrongPasswordLeavesNoGrant(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seedClient(t, "test_client", true)
	userID := env.seedUser(t, "TestClient", "test_password")

	req := AuthorizationRequest{
		ResponseType: "code",
		ClientID:     "test_client",
		RedirectURI:  "https://www.google.com/",
		Scope:        "openid",
		Username:     "TestClient",
		Password:     "test_password",
	}
	_, err := env.authz.GetRedirectURL(env.ctx, req)
	require.NoError(t, err)
	before := env.countGrants(t, userID)

	req.Password = "wrong_password"
	_, err = env.authz.GetRedirectURL(env.ctx, req)
	require.ErrorIs(t, err, ErrWrongPassword)
	require.Equal(t, before, env.countGrants(t, userID))
}

func TestGetRedirectURLPKCE(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seedClient(t, "public_client", false)
	userID := env.seedUser(t, "TestClient", "test_password")

	redirect, err := env.authz.GetRedirectURL(env.ctx, AuthorizationRequest{
		ResponseType:  "code",
		ClientID:      "public_client",
		RedirectURI:   "https://www.google.com/",
		Scope:         "openid",
		CodeChallenge: "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
		Username:      "TestClient",
		Password:      "test_password",
	})
	require.NoError(t, err)
	require.Contains(t, redirect, "code=")

	grants, err := env.store.PersistentGrants().ListBySubject(env.ctx, userID)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	require.Contains(t, grants[0].Data, `"code_challenge_method":"S256"`)
}

func TestGetRedirectURLTOTP(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seedClient(t, "test_client", true)
	userID := env.seedUser(t, "TestClient", "test_password")

	key, err := env.users.EnableTOTP(env.ctx, userID)
	require.NoError(t, err)

	req := AuthorizationRequest{
		ResponseType: "token",
		ClientID:     "test_client",
		RedirectURI:  "https://www.google.com/",
		Scope:        "openid",
		Username:     "TestClient",
		Password:     "test_password",
	}

	_, err = env.authz.GetRedirectURL(env.ctx, req)
	require.ErrorIs(t, err, ErrMFARequired)

	req.OTP = "000000"
	if ok, _ := totp.ValidateCustom(req.OTP, key.Secret(), env.now, totpOpts); ok {
		req.OTP = "999999"
	}
	_, err = env.authz.GetRedirectURL(env.ctx, req)
	require.ErrorIs(t, err, ErrInvalidOTP)

	req.OTP, err = totp.GenerateCode(key.Secret(), env.now)
	require.NoError(t, err)
	redirect, err := env.authz.GetRedirectURL(env.ctx, req)
	require.NoError(t, err)

	u, err := url.Parse(redirect)
	require.NoError(t, err)
	var claims jwtx.AccessClaims
	require.NoError(t, env.keys.Decode(u.Query().Get("access_token"), &claims))
	require.Equal(t, []string{jwtx.AMRPassword, jwtx.AMROTP}, claims.AMR)
}

func TestAuthorizeSubject(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seedClient(t, "test_client", true)
	userID := env.seedUser(t, "fed-user", "unused-password")

	req := AuthorizationRequest{
		ResponseType: "token",
		ClientID:     "test_client",
		RedirectURI:  "https://www.google.com/",
		Scope:        "openid",
		State:        "abc",
	}

	redirect, err := env.authz.AuthorizeSubject(env.ctx, req, userID)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(redirect, "&state=abc"))

	u, err := url.Parse(redirect)
	require.NoError(t, err)
	var claims jwtx.AccessClaims
	require.NoError(t, env.keys.Decode(u.Query().Get("access_token"), &claims))
	require.Equal(t, subjectOf(userID), claims.Subject)
	require.Equal(t, []string{jwtx.AMRFederated}, claims.AMR)

	_, err = env.authz.AuthorizeSubject(env.ctx, req, userID+100)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetRedirectURLResourceAudience(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seedClient(t, "test_client", true, func(c *domain.Client) {
		c.Scopes = append(c.Scopes, "orders.read")
	})
	env.seedUser(t, "TestClient", "test_password")
	require.NoError(t, env.store.APIResources().CreateResource(env.ctx, domain.APIResource{
		Name:        "orders",
		DisplayName: "Orders API",
		Scopes:      []domain.APIScope{{Name: "orders.read"}},
	}))

	redirect, err := env.authz.GetRedirectURL(env.ctx, AuthorizationRequest{
		ResponseType: "token",
		ClientID:     "test_client",
		RedirectURI:  "https://www.google.com/",
		Scope:        "openid orders.read",
		Username:     "TestClient",
		Password:     "test_password",
	})
	require.NoError(t, err)

	u, err := url.Parse(redirect)
	require.NoError(t, err)
	var claims jwtx.AccessClaims
	require.NoError(t, env.keys.Decode(u.Query().Get("access_token"), &claims, jwtx.WithAudience("orders")))
	require.WithinDuration(t, env.now.Add(time.Hour), claims.ExpiresAt.Time, time.Second)
}
