package authsdk

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
)

// PKCEChallenge holds the PKCE verifier and challenge pair. The verifier
// stays with the client; the challenge goes to the authorization endpoint.
type PKCEChallenge struct {
	Verifier  string
	Challenge string

	// Method is always "S256"
	Method string
}

// GeneratePKCEChallenge creates a verifier with 256 bits of entropy and its
// S256 challenge (RFC 7636).
func GeneratePKCEChallenge() *PKCEChallenge {
	verifier := oauth2.GenerateVerifier()
	return &PKCEChallenge{
		Verifier:  verifier,
		Challenge: oauth2.S256ChallengeFromVerifier(verifier),
		Method:    "S256",
	}
}

// AuthorizeParams are the authorization request parameters. ResponseType
// defaults to "code".
type AuthorizeParams struct {
	ResponseType string
	RedirectURI  string
	Scopes       []string
	State        string
	Nonce        string
	PKCE         *PKCEChallenge
}

func (c *SDKClient) authorizeValues(p AuthorizeParams) url.Values {
	rt := p.ResponseType
	if rt == "" {
		rt = "code"
	}

	v := url.Values{
		"response_type": {rt},
		"client_id":     {c.ClientID},
		"redirect_uri":  {p.RedirectURI},
	}
	if len(p.Scopes) > 0 {
		v.Set("scope", strings.Join(p.Scopes, " "))
	}
	if p.State != "" {
		v.Set("state", p.State)
	}
	if p.Nonce != "" {
		v.Set("nonce", p.Nonce)
	}
	if p.PKCE != nil {
		v.Set("code_challenge", p.PKCE.Challenge)
		v.Set("code_challenge_method", p.PKCE.Method)
	}
	return v
}

// BuildAuthorizeURL returns the URL to send a browser to.
func (c *SDKClient) BuildAuthorizeURL(p AuthorizeParams) string {
	return c.url(PathAuthorize) + "?" + c.authorizeValues(p).Encode()
}

// OAuth2Config returns a golang.org/x/oauth2 configuration for this client,
// for callers that drive the flow with that package.
func (c *SDKClient) OAuth2Config(redirectURI string, scopes []string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:       c.url(PathAuthorize),
			TokenURL:      c.url(PathToken),
			DeviceAuthURL: c.url(PathDeviceAuthorization),
			AuthStyle:     oauth2.AuthStyleInParams,
		},
	}
}

// AuthorizeWithPassword posts the authorization request with the user's
// credentials and returns the redirect the provider answered with. Errors
// the provider redirects back are returned as *OAuth2Error.
func (c *SDKClient) AuthorizeWithPassword(ctx context.Context, p AuthorizeParams, username, password, otp string) (*url.URL, error) {
	data := c.authorizeValues(p)
	data.Set("username", username)
	data.Set("password", password)
	if otp != "" {
		data.Set("otp", otp)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(PathAuthorize), strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.noRedirect().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusFound {
		return nil, parseErrorResponse(resp, bodyBytes)
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return nil, fmt.Errorf("redirect response missing Location header")
	}
	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redirect URL: %w", err)
	}
	if code := u.Query().Get("error"); code != "" {
		return nil, &OAuth2Error{
			StatusCode:  http.StatusFound,
			Code:        code,
			Description: u.Query().Get("error_description"),
		}
	}
	return u, nil
}

// AuthorizeAndExchange runs the whole authorization code flow with PKCE
// for a user whose credentials the caller holds.
func (c *SDKClient) AuthorizeAndExchange(ctx context.Context, redirectURI, username, password, otp string, scopes []string) (*Session, error) {
	pkce := GeneratePKCEChallenge()

	u, err := c.AuthorizeWithPassword(ctx, AuthorizeParams{
		RedirectURI: redirectURI,
		Scopes:      scopes,
		PKCE:        pkce,
	}, username, password, otp)
	if err != nil {
		return nil, err
	}

	code, _, err := ParseAuthorizationCallback(u.String())
	if err != nil {
		return nil, err
	}

	tokenResp, err := c.ExchangeAuthorizationCode(ctx, code, redirectURI, pkce.Verifier)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	return newSession(c, tokenResp), nil
}

// ParseAuthorizationCallback extracts the code and state from an
// authorization code redirect.
func ParseAuthorizationCallback(callbackURL string) (code, state string, err error) {
	u, err := url.Parse(callbackURL)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse callback URL: %w", err)
	}

	query := u.Query()

	if errorCode := query.Get("error"); errorCode != "" {
		errorDesc := query.Get("error_description")
		return "", "", fmt.Errorf("authorization error: %s - %s", errorCode, errorDesc)
	}

	code = query.Get("code")
	if code == "" {
		return "", "", fmt.Errorf("callback missing authorization code")
	}

	return code, query.Get("state"), nil
}

// ParseTokenCallback reads the tokens of a token or id_token redirect. The
// provider returns them in the query string.
func ParseTokenCallback(callbackURL string) (*TokenResponse, string, error) {
	u, err := url.Parse(callbackURL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse callback URL: %w", err)
	}

	q := u.Query()
	if errorCode := q.Get("error"); errorCode != "" {
		return nil, "", fmt.Errorf("authorization error: %s - %s", errorCode, q.Get("error_description"))
	}

	tr := &TokenResponse{
		AccessToken: q.Get("access_token"),
		IDToken:     q.Get("id_token"),
		TokenType:   q.Get("token_type"),
		Scope:       q.Get("scope"),
	}
	if tr.AccessToken == "" && tr.IDToken == "" {
		return nil, "", fmt.Errorf("callback carries no token")
	}
	if exp := q.Get("expires_in"); exp != "" {
		if tr.ExpiresIn, err = strconv.ParseInt(exp, 10, 64); err != nil {
			return nil, "", fmt.Errorf("invalid expires_in: %w", err)
		}
	}
	return tr, q.Get("state"), nil
}
