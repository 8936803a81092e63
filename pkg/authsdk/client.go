package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient talks to the BarTab identity provider on behalf of one OAuth2
// client. It covers the public endpoints and creates Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	ClientID     string
	ClientSecret string // empty for public clients
}

// NewSDKClient creates a client for clientID. Pass an empty secret for a
// public client.
func NewSDKClient(baseURL, clientID, clientSecret string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		ClientID:     clientID,
		ClientSecret: clientSecret,
	}
}

// AuthenticateWithClientCredentials creates a session for the client itself
// (machine-to-machine). Such sessions cannot refresh; they re-authenticate.
func (c *SDKClient) AuthenticateWithClientCredentials(ctx context.Context, scopes []string) (*Session, error) {
	tokenResp, err := c.ClientCredentialsGrant(ctx, scopes)
	if err != nil {
		return nil, err
	}
	return newSession(c, tokenResp), nil
}

// AuthenticateWithPassword creates a session with the resource owner
// password grant. otp is only needed for users with a second factor.
func (c *SDKClient) AuthenticateWithPassword(ctx context.Context, username, password, otp string, scopes []string) (*Session, error) {
	tokenResp, err := c.PasswordGrant(ctx, username, password, otp, scopes)
	if err != nil {
		return nil, err
	}
	return newSession(c, tokenResp), nil
}

// AuthenticateWithRefreshToken creates a session from an existing refresh token.
func (c *SDKClient) AuthenticateWithRefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	tokenResp, err := c.RefreshGrant(ctx, refreshToken, nil)
	if err != nil {
		return nil, err
	}
	return newSession(c, tokenResp), nil
}

// NewSessionFromTokens wraps tokens obtained elsewhere. The session still
// refreshes when the access token expires.
func (c *SDKClient) NewSessionFromTokens(tokenResp *TokenResponse) *Session {
	return newSession(c, tokenResp)
}
