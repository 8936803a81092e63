package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/domain"
	"github.com/aussiebroadwan/bartab-idp/pkg/authsdk"
	"github.com/aussiebroadwan/bartab-idp/pkg/jwtx"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func TestTokenPasswordGrant(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	secret := s.seedClient(t, "web", true)
	s.seedUser(t, "alice", "correct-horse")

	rec := s.postForm(authsdk.PathToken, url.Values{
		"grant_type": {"password"},
		"username":   {"alice"},
		"password":   {"correct-horse"},
		"scope":      {"openid profile"},
	}, basicAuth("web", secret))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var tr authsdk.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tr))
	require.Equal(t, "Bearer", tr.TokenType)
	require.Equal(t, "openid profile", tr.Scope)
	require.Positive(t, tr.ExpiresIn)
	require.NotEmpty(t, tr.AccessToken)
	require.NotEmpty(t, tr.RefreshToken)
	require.NotEmpty(t, tr.IDToken)

	var claims jwtx.AccessClaims
	require.NoError(t, s.keys.Decode(tr.AccessToken, &claims, jwtx.WithIssuer(testIssuer)))
	require.Equal(t, "web", claims.ClientID)
}

func TestTokenClientSecretPost(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	secret := s.seedClient(t, "service", true)

	rec := s.postForm(authsdk.PathToken, url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {"service"},
		"client_secret": {secret},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var tr authsdk.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tr))
	require.NotEmpty(t, tr.AccessToken)
	require.Empty(t, tr.RefreshToken)
	require.Empty(t, tr.IDToken)
}

func TestTokenRefreshGrant(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	secret := s.seedClient(t, "web", true)
	s.seedUser(t, "alice", "correct-horse")
	first := s.passwordLogin(t, "web", secret, "alice", "correct-horse", "openid offline_access")

	rec := s.postForm(authsdk.PathToken, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {first.RefreshToken},
	}, basicAuth("web", secret))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var second authsdk.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	require.NotEmpty(t, second.AccessToken)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// the old refresh token was consumed
	rec = s.postForm(authsdk.PathToken, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {first.RefreshToken},
	}, basicAuth("web", secret))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, authsdk.ErrorCodeInvalidGrant, decodeError(t, rec).Error)
}

func TestTokenErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		form       url.Values
		auth       bool
		secret     string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing grant type",
			form:       url.Values{"client_id": {"web"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   authsdk.ErrorCodeInvalidRequest,
		},
		{
			name:       "missing client",
			form:       url.Values{"grant_type": {"password"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   authsdk.ErrorCodeInvalidRequest,
		},
		{
			name:       "unsupported grant type",
			form:       url.Values{"grant_type": {"urn:example:magic"}},
			auth:       true,
			wantStatus: http.StatusBadRequest,
			wantCode:   authsdk.ErrorCodeUnsupportedGrantType,
		},
		{
			name:       "wrong client secret",
			form:       url.Values{"grant_type": {"client_credentials"}},
			auth:       true,
			secret:     "not-the-secret",
			wantStatus: http.StatusUnauthorized,
			wantCode:   authsdk.ErrorCodeInvalidClient,
		},
		{
			name:       "unknown client",
			form:       url.Values{"grant_type": {"client_credentials"}, "client_id": {"ghost"}},
			wantStatus: http.StatusUnauthorized,
			wantCode:   authsdk.ErrorCodeInvalidClient,
		},
		{
			name: "wrong password",
			form: url.Values{
				"grant_type": {"password"},
				"username":   {"alice"},
				"password":   {"wrong"},
			},
			auth:       true,
			wantStatus: http.StatusBadRequest,
			wantCode:   authsdk.ErrorCodeInvalidGrant,
		},
		{
			name: "scope outside the client",
			form: url.Values{
				"grant_type": {"password"},
				"username":   {"alice"},
				"password":   {"correct-horse"},
				"scope":      {"openid admin"},
			},
			auth:       true,
			wantStatus: http.StatusBadRequest,
			wantCode:   authsdk.ErrorCodeInvalidScope,
		},
		{
			name:       "bad authorization code",
			form:       url.Values{"grant_type": {"authorization_code"}, "code": {"nope"}},
			auth:       true,
			wantStatus: http.StatusBadRequest,
			wantCode:   authsdk.ErrorCodeInvalidGrant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newTestServer(t)
			secret := s.seedClient(t, "web", true)
			s.seedUser(t, "alice", "correct-horse")
			if tt.secret != "" {
				secret = tt.secret
			}

			var mutate []func(*http.Request)
			if tt.auth {
				mutate = append(mutate, basicAuth("web", secret))
			}

			rec := s.postForm(authsdk.PathToken, tt.form, mutate...)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			require.Equal(t, tt.wantCode, decodeError(t, rec).Error)
		})
	}

	t.Run("rejects JSON bodies", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)
		req := httptest.NewRequest(http.MethodPost, authsdk.PathToken, strings.NewReader(`{"grant_type":"password"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := s.do(req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, authsdk.ErrorCodeInvalidRequest, decodeError(t, rec).Error)
	})
}

func TestTokenMFARequired(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	secret := s.seedClient(t, "web", true)
	userID := s.seedUser(t, "alice", "correct-horse")
	key, err := s.users.EnableTOTP(s.ctx, userID)
	require.NoError(t, err)

	form := url.Values{
		"grant_type": {"password"},
		"username":   {"alice"},
		"password":   {"correct-horse"},
	}
	rec := s.postForm(authsdk.PathToken, form, basicAuth("web", secret))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, authsdk.ErrorCodeMFARequired, decodeError(t, rec).Error)

	code, err := totp.GenerateCode(key.Secret(), time.Now())
	require.NoError(t, err)
	form.Set("otp", code)
	rec = s.postForm(authsdk.PathToken, form, basicAuth("web", secret))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestAuthorizeGet(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	rec := s.get(authsdk.PathAuthorize + "?response_type=code&client_id=web&redirect_uri=https%3A%2F%2Fapp.example.com%2Fcallback&state=abc")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, authsdk.ErrorCodeLoginRequired, payload["error"])
	require.Equal(t, "web", payload["client_id"])
	require.Equal(t, "abc", payload["state"])
	require.NotContains(t, payload, "providers")
}

func TestAuthorizeCodeFlow(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	secret := s.seedClient(t, "web", true)
	s.seedUser(t, "alice", "correct-horse")
	pkce := authsdk.GeneratePKCEChallenge()

	rec := s.postForm(authsdk.PathAuthorize, url.Values{
		"response_type":         {"code"},
		"client_id":             {"web"},
		"redirect_uri":          {"https://app.example.com/callback"},
		"scope":                 {"openid email"},
		"state":                 {"xyz"},
		"nonce":                 {"n-0S6"},
		"code_challenge":        {pkce.Challenge},
		"code_challenge_method": {pkce.Method},
		"username":              {"alice"},
		"password":              {"correct-horse"},
	})
	q := redirectQuery(t, rec)
	require.Equal(t, "xyz", q.Get("state"))
	require.NotEmpty(t, q.Get("code"))
	require.True(t, strings.HasPrefix(rec.Header().Get("Location"), "https://app.example.com/callback?"))

	rec = s.postForm(authsdk.PathToken, url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {q.Get("code")},
		"redirect_uri":  {"https://app.example.com/callback"},
		"code_verifier": {pkce.Verifier},
	}, basicAuth("web", secret))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var tr authsdk.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tr))

	var idClaims jwtx.IDClaims
	require.NoError(t, s.keys.Decode(tr.IDToken, &idClaims, jwtx.WithIssuer(testIssuer)))
	require.Equal(t, "n-0S6", idClaims.Nonce)
}

func TestAuthorizeErrors(t *testing.T) {
	t.Parallel()

	base := url.Values{
		"response_type": {"code"},
		"client_id":     {"web"},
		"redirect_uri":  {"https://app.example.com/callback"},
		"state":         {"xyz"},
		"username":      {"alice"},
		"password":      {"correct-horse"},
	}
	with := func(key, value string) url.Values {
		v := url.Values{}
		for k, vs := range base {
			v[k] = vs
		}
		v.Set(key, value)
		return v
	}

	t.Run("unknown client is not redirected", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)
		rec := s.postForm(authsdk.PathAuthorize, with("client_id", "ghost"))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, authsdk.ErrorCodeInvalidClient, decodeError(t, rec).Error)
	})

	t.Run("unregistered redirect uri is not redirected", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)
		s.seedClient(t, "web", true)
		rec := s.postForm(authsdk.PathAuthorize, with("redirect_uri", "https://evil.example.com/"))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Empty(t, rec.Header().Get("Location"))
		require.Equal(t, authsdk.ErrorCodeInvalidRequest, decodeError(t, rec).Error)
	})

	t.Run("unknown response type", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)
		s.seedClient(t, "web", true)
		rec := s.postForm(authsdk.PathAuthorize, with("response_type", "magic"))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, authsdk.ErrorCodeUnsupportedResponseType, decodeError(t, rec).Error)
	})

	t.Run("wrong password redirects access_denied", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)
		s.seedClient(t, "web", true)
		s.seedUser(t, "alice", "correct-horse")

		q := redirectQuery(t, s.postForm(authsdk.PathAuthorize, with("password", "wrong")))
		require.Equal(t, authsdk.ErrorCodeAccessDenied, q.Get("error"))
		require.Equal(t, "xyz", q.Get("state"))
	})

	t.Run("scope outside the client redirects invalid_scope", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)
		s.seedClient(t, "web", true)
		s.seedUser(t, "alice", "correct-horse")

		q := redirectQuery(t, s.postForm(authsdk.PathAuthorize, with("scope", "openid admin")))
		require.Equal(t, authsdk.ErrorCodeInvalidScope, q.Get("error"))
	})

	t.Run("id_token without openid redirects invalid_scope", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)
		s.seedClient(t, "web", true)
		s.seedUser(t, "alice", "correct-horse")

		form := with("response_type", "id_token")
		form.Set("scope", "profile")
		q := redirectQuery(t, s.postForm(authsdk.PathAuthorize, form))
		require.Equal(t, authsdk.ErrorCodeInvalidScope, q.Get("error"))
	})

	t.Run("grant not allowed redirects unauthorized_client", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)
		s.seedClient(t, "web", true, func(c *domain.Client) {
			c.GrantTypes = []string{string(domain.GrantPassword)}
		})
		s.seedUser(t, "alice", "correct-horse")

		q := redirectQuery(t, s.postForm(authsdk.PathAuthorize, base))
		require.Equal(t, authsdk.ErrorCodeUnauthorizedClient, q.Get("error"))
	})
}

func TestRevokeHandler(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	secret := s.seedClient(t, "web", true)
	s.seedUser(t, "alice", "correct-horse")
	tr := s.passwordLogin(t, "web", secret, "alice", "correct-horse", "openid")

	t.Run("token is required", func(t *testing.T) {
		rec := s.postForm(authsdk.PathRevoke, url.Values{}, basicAuth("web", secret))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("client must authenticate", func(t *testing.T) {
		rec := s.postForm(authsdk.PathRevoke, url.Values{"token": {tr.RefreshToken}}, basicAuth("web", "bad"))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, authsdk.ErrorCodeInvalidClient, decodeError(t, rec).Error)
	})

	t.Run("revoked refresh token stops working", func(t *testing.T) {
		rec := s.postForm(authsdk.PathRevoke, url.Values{
			"token":           {tr.RefreshToken},
			"token_type_hint": {"refresh_token"},
		}, basicAuth("web", secret))
		require.Equal(t, http.StatusOK, rec.Code)

		rec = s.postForm(authsdk.PathToken, url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {tr.RefreshToken},
		}, basicAuth("web", secret))
		require.Equal(t, authsdk.ErrorCodeInvalidGrant, decodeError(t, rec).Error)
	})

	t.Run("unknown tokens are accepted", func(t *testing.T) {
		rec := s.postForm(authsdk.PathRevoke, url.Values{"token": {"never-issued"}}, basicAuth("web", secret))
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestIntrospectHandler(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	secret := s.seedClient(t, "web", true)
	userID := s.seedUser(t, "alice", "correct-horse")
	tr := s.passwordLogin(t, "web", secret, "alice", "correct-horse", "openid profile")

	introspect := func(t *testing.T, token string) authsdk.IntrospectionResponse {
		t.Helper()

		rec := s.postForm(authsdk.PathIntrospect, url.Values{"token": {token}}, basicAuth("web", secret))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var ir authsdk.IntrospectionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ir))
		return ir
	}

	ir := introspect(t, tr.AccessToken)
	require.True(t, ir.Active)
	require.Equal(t, "web", ir.ClientID)
	require.Equal(t, "openid profile", ir.Scope)
	require.Equal(t, testIssuer, ir.Iss)
	require.Equal(t, strconv.FormatInt(userID, 10), ir.Sub)

	require.False(t, introspect(t, "garbage").Active)

	rec := s.postForm(authsdk.PathIntrospect, url.Values{"token": {tr.AccessToken}}, basicAuth("web", "bad"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// a revoked access token is inactive
	rec = s.postForm(authsdk.PathRevoke, url.Values{"token": {tr.AccessToken}}, basicAuth("web", secret))
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, introspect(t, tr.AccessToken).Active)
}

func TestEndSessionHandler(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	secret := s.seedClient(t, "web", true)
	userID := s.seedUser(t, "alice", "correct-horse")

	t.Run("without redirect", func(t *testing.T) {
		tr := s.passwordLogin(t, "web", secret, "alice", "correct-horse", "openid")

		rec := s.get(authsdk.PathEndSession + "?id_token_hint=" + url.QueryEscape(tr.IDToken))
		require.Equal(t, http.StatusNoContent, rec.Code)

		grants, err := s.store.PersistentGrants().ListBySubject(s.ctx, userID)
		require.NoError(t, err)
		require.Empty(t, grants)
	})

	t.Run("with registered redirect", func(t *testing.T) {
		tr := s.passwordLogin(t, "web", secret, "alice", "correct-horse", "openid")

		rec := s.postForm(authsdk.PathEndSession, url.Values{
			"id_token_hint":            {tr.IDToken},
			"post_logout_redirect_uri": {"https://app.example.com/bye"},
			"state":                    {"s1"},
		})
		require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
		require.Equal(t, "https://app.example.com/bye&state=s1", rec.Header().Get("Location"))
	})

	t.Run("unregistered redirect", func(t *testing.T) {
		tr := s.passwordLogin(t, "web", secret, "alice", "correct-horse", "openid")

		rec := s.postForm(authsdk.PathEndSession, url.Values{
			"id_token_hint":            {tr.IDToken},
			"post_logout_redirect_uri": {"https://evil.example.com/"},
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, authsdk.ErrorCodeInvalidRequest, decodeError(t, rec).Error)
	})

	t.Run("hint required", func(t *testing.T) {
		rec := s.get(authsdk.PathEndSession)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("forged hint", func(t *testing.T) {
		rec := s.get(authsdk.PathEndSession + "?id_token_hint=a.b.c")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "invalid id_token_hint", decodeError(t, rec).ErrorDescription)
	})
}
