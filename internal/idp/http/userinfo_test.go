package http

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"testing"

	"github.com/aussiebroadwan/bartab-idp/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func TestUserInfoHandler(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	secret := s.seedClient(t, "web", true)
	userID := s.seedUser(t, "alice", "correct-horse")

	t.Run("missing token", func(t *testing.T) {
		rec := s.get(authsdk.PathUserInfo)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := s.do(withBearer(authsdk.PathUserInfo, "not-a-jwt"))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("openid scope required", func(t *testing.T) {
		tr := s.passwordLogin(t, "web", secret, "alice", "correct-horse", "profile")

		rec := s.do(withBearer(authsdk.PathUserInfo, tr.AccessToken))
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "insufficient_scope")
	})

	t.Run("releases claims by scope", func(t *testing.T) {
		tr := s.passwordLogin(t, "web", secret, "alice", "correct-horse", "openid email")

		rec := s.do(withBearer(authsdk.PathUserInfo, tr.AccessToken))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var info authsdk.UserInfoResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
		require.Equal(t, strconv.FormatInt(userID, 10), info.Subject())
		require.Equal(t, "alice@example.com", info["email"])
		require.NotContains(t, info, "name")
	})

	t.Run("revoked token", func(t *testing.T) {
		tr := s.passwordLogin(t, "web", secret, "alice", "correct-horse", "openid")

		rec := s.postForm(authsdk.PathRevoke, url.Values{"token": {tr.AccessToken}}, basicAuth("web", secret))
		require.Equal(t, http.StatusOK, rec.Code)

		rec = s.do(withBearer(authsdk.PathUserInfo, tr.AccessToken))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestUserInfoClientCredentials(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	secret := s.seedClient(t, "service", true)

	rec := s.postForm(authsdk.PathToken, url.Values{
		"grant_type": {"client_credentials"},
		"scope":      {"openid"},
	}, basicAuth("service", secret))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var tr authsdk.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tr))

	// no user behind the token
	req := withBearer(authsdk.PathUserInfo, tr.AccessToken)
	req.Method = http.MethodPost
	rec = s.do(req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, authsdk.ErrorCodeInvalidToken, decodeError(t, rec).Error)
}
