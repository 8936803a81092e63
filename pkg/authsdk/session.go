package authsdk

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Session holds the tokens of one authentication and refreshes the access
// token when it expires.
type Session struct {
	client *SDKClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	idToken      string
	expiresAt    time.Time
	scopes       map[string]bool
}

// Refresh 30 seconds early.
const expiryBuffer = 30 * time.Second

func newSession(client *SDKClient, tokenResp *TokenResponse) *Session {
	s := &Session{client: client}
	s.apply(tokenResp)
	return s
}

// apply stores a token response. Callers hold mu or own s exclusively.
func (s *Session) apply(tr *TokenResponse) {
	s.accessToken = tr.AccessToken
	if tr.RefreshToken != "" {
		s.refreshToken = tr.RefreshToken
	}
	if tr.IDToken != "" {
		s.idToken = tr.IDToken
	}
	s.expiresAt = time.Now().Add(time.Duration(tr.ExpiresIn)*time.Second - expiryBuffer)
	s.scopes = parseScopes(tr.Scope)
}

func parseScopes(scopeStr string) map[string]bool {
	parts := strings.Fields(scopeStr)
	scopes := make(map[string]bool, len(parts))
	for _, scope := range parts {
		scopes[scope] = true
	}
	return scopes
}

// getValidToken returns a valid access token, refreshing it if expired.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if time.Now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have refreshed meanwhile.
	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}

	if s.refreshToken == "" {
		return "", fmt.Errorf("access token expired and no refresh token available")
	}

	tokenResp, err := s.client.RefreshGrant(ctx, s.refreshToken, nil)
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}
	s.apply(tokenResp)

	return s.accessToken, nil
}

// Refresh forces a refresh_token grant, optionally narrowing the scopes.
func (s *Session) Refresh(ctx context.Context, scopes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refreshToken == "" {
		return fmt.Errorf("no refresh token")
	}
	tokenResp, err := s.client.RefreshGrant(ctx, s.refreshToken, scopes)
	if err != nil {
		return err
	}
	s.apply(tokenResp)
	return nil
}

// UserInfo calls the userinfo endpoint. The session needs the openid scope.
func (s *Session) UserInfo(ctx context.Context) (UserInfoResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, PathUserInfo, nil, nil)
	if err != nil {
		return nil, err
	}

	var out UserInfoResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out, nil
}

// Revoke revokes the refresh token, or the access token when the session
// has none.
func (s *Session) Revoke(ctx context.Context) error {
	s.mu.RLock()
	token, hint := s.refreshToken, "refresh_token"
	if token == "" {
		token, hint = s.accessToken, "access_token"
	}
	s.mu.RUnlock()

	return s.client.RevokeToken(ctx, token, hint)
}

// Logout ends the session at the provider using the ID token as hint.
func (s *Session) Logout(ctx context.Context, postLogoutRedirectURI, state string) (string, error) {
	s.mu.RLock()
	hint := s.idToken
	s.mu.RUnlock()

	if hint == "" {
		return "", fmt.Errorf("session has no id token")
	}
	return s.client.EndSession(ctx, hint, postLogoutRedirectURI, state)
}

// AccessToken returns the current access token without checking expiry.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

func (s *Session) IDToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idToken
}

// HasScope reports whether the last token response granted scope.
func (s *Session) HasScope(scope string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scopes[scope]
}

// Scopes returns the granted scopes in no particular order.
func (s *Session) Scopes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scopes := make([]string, 0, len(s.scopes))
	for scope := range s.scopes {
		scopes = append(scopes, scope)
	}
	return scopes
}
