package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// RefreshGrant exchanges a refresh token. A nil scopes keeps the scopes of
// the original grant.
func (c *SDKClient) RefreshGrant(ctx context.Context, refreshToken string, scopes []string) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	if len(scopes) > 0 {
		data.Set("scope", strings.Join(scopes, " "))
	}

	return c.requestToken(ctx, data)
}

// ClientCredentialsGrant requests an access token for the client itself.
// The client must be confidential. No refresh token is returned.
func (c *SDKClient) ClientCredentialsGrant(ctx context.Context, scopes []string) (*TokenResponse, error) {
	data := url.Values{
		"grant_type": {"client_credentials"},
	}
	if len(scopes) > 0 {
		data.Set("scope", strings.Join(scopes, " "))
	}

	return c.requestToken(ctx, data)
}

// PasswordGrant uses the resource owner password credentials grant. otp is
// sent when not empty; users with TOTP fail with ErrMFARequired without it.
func (c *SDKClient) PasswordGrant(ctx context.Context, username, password, otp string, scopes []string) (*TokenResponse, error) {
	data := url.Values{
		"grant_type": {"password"},
		"username":   {username},
		"password":   {password},
	}
	if otp != "" {
		data.Set("otp", otp)
	}
	if len(scopes) > 0 {
		data.Set("scope", strings.Join(scopes, " "))
	}

	return c.requestToken(ctx, data)
}

// ExchangeAuthorizationCode redeems an authorization code. codeVerifier is
// required when the authorization request carried a PKCE challenge.
func (c *SDKClient) ExchangeAuthorizationCode(ctx context.Context, code, redirectURI, codeVerifier string) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {redirectURI},
	}
	if codeVerifier != "" {
		data.Set("code_verifier", codeVerifier)
	}

	return c.requestToken(ctx, data)
}

// RevokeToken revokes an access or refresh token (RFC 7009). hint may be empty.
func (c *SDKClient) RevokeToken(ctx context.Context, token, hint string) error {
	data := url.Values{"token": {token}}
	if hint != "" {
		data.Set("token_type_hint", hint)
	}

	resp, err := c.postForm(ctx, PathRevoke, c.withClientAuth(data))
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusOK)
}

// Introspect asks the provider about token (RFC 7662).
func (c *SDKClient) Introspect(ctx context.Context, token, hint string) (*IntrospectionResponse, error) {
	data := url.Values{"token": {token}}
	if hint != "" {
		data.Set("token_type_hint", hint)
	}

	resp, err := c.postForm(ctx, PathIntrospect, c.withClientAuth(data))
	if err != nil {
		return nil, err
	}

	var out IntrospectionResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *SDKClient) requestToken(ctx context.Context, data url.Values) (*TokenResponse, error) {
	resp, err := c.postForm(ctx, PathToken, c.withClientAuth(data))
	if err != nil {
		return nil, err
	}

	var tokenResp TokenResponse
	if err := decodeJSON(resp, &tokenResp, http.StatusOK); err != nil {
		return nil, err
	}
	return &tokenResp, nil
}
