package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/service"
	"github.com/aussiebroadwan/bartab-idp/pkg/authsdk"
	"github.com/aussiebroadwan/bartab-idp/pkg/httpx"
	"github.com/aussiebroadwan/bartab-idp/pkg/slogx"
)

// TokenHandler serves POST /v1/oauth2/token
// Accepts application/x-www-form-urlencoded per the RFC 6749 framework.
type TokenHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Endpoint
//	@Description	Issues tokens for the authorization_code, refresh_token, password, client_credentials and device_code grants.
//	@Description	Clients authenticate with HTTP Basic or client_id/client_secret in the body.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			grant_type		formData	string					true	"Grant type"	Enums(authorization_code, refresh_token, password, client_credentials, urn:ietf:params:oauth:grant-type:device_code)
//	@Param			client_id		formData	string					false	"Client identifier (unless HTTP Basic is used)"
//	@Param			client_secret	formData	string					false	"Client secret (confidential clients)"
//	@Param			code			formData	string					false	"Authorization code (authorization_code)"
//	@Param			redirect_uri	formData	string					false	"Redirect URI used in the authorization request (authorization_code)"
//	@Param			code_verifier	formData	string					false	"PKCE code_verifier (authorization_code)"
//	@Param			refresh_token	formData	string					false	"Refresh token (refresh_token)"
//	@Param			username		formData	string					false	"Username (password)"
//	@Param			password		formData	string					false	"Password (password)"
//	@Param			otp				formData	string					false	"TOTP code for users with a second factor (password)"
//	@Param			device_code		formData	string					false	"Device code (device_code)"
//	@Param			scope			formData	string					false	"Space-delimited list of scopes"
//	@Success		200				{object}	authsdk.TokenResponse	"access_token, refresh_token, id_token, token_type, expires_in, scope"
//	@Failure		400				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		401				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		500				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Header			200				{string}	Cache-Control			"no-store"
//	@Header			200				{string}	Pragma					"no-cache"
//	@Router			/v1/oauth2/token [post].
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if !parseForm(w, r) {
		return
	}

	form := r.Form
	grantType := strings.TrimSpace(form.Get("grant_type"))
	clientID, clientSecret := clientCredentials(r)
	if grantType == "" || clientID == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	set, err := h.TokenService.Exchange(ctx, service.TokenRequest{
		GrantType:    grantType,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Code:         strings.TrimSpace(form.Get("code")),
		RedirectURI:  strings.TrimSpace(form.Get("redirect_uri")),
		CodeVerifier: strings.TrimSpace(form.Get("code_verifier")),
		RefreshToken: form.Get("refresh_token"),
		Username:     strings.TrimSpace(form.Get("username")),
		Password:     form.Get("password"),
		OTP:          strings.TrimSpace(form.Get("otp")),
		DeviceCode:   strings.TrimSpace(form.Get("device_code")),
		Scope:        strings.TrimSpace(form.Get("scope")),
	})
	if err != nil {
		if oerr := tokenError(err); oerr != nil {
			oerr.WriteError(w)
			return
		}
		log.Error("token request failed", "grant_type", grantType, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	response := authsdk.TokenResponse{
		AccessToken:  set.AccessToken,
		RefreshToken: set.RefreshToken,
		IDToken:      set.IDToken,
		TokenType:    set.TokenType,
		ExpiresIn:    set.ExpiresIn,
		Scope:        strings.TrimSpace(set.Scope),
	}

	httpx.WriteJSON(w, http.StatusOK, response)
}

// tokenError maps a token service error to its wire error, or nil when the
// error is internal.
func tokenError(err error) *authsdk.OAuth2Error {
	switch {
	case errors.Is(err, service.ErrUnsupportedGrantType):
		return authsdk.ErrUnsupportedGrantType
	case errors.Is(err, service.ErrInvalidClient), errors.Is(err, service.ErrClientNotFound):
		return authsdk.ErrInvalidClient
	case errors.Is(err, service.ErrUnauthorizedClient):
		return authsdk.ErrUnauthorizedClient
	case errors.Is(err, service.ErrInvalidScope), errors.Is(err, service.ErrClientScopes):
		return authsdk.ErrInvalidScope
	case errors.Is(err, service.ErrAuthorizationPending):
		return authsdk.ErrAuthorizationPending
	case errors.Is(err, service.ErrSlowDown):
		return authsdk.ErrSlowDown
	case errors.Is(err, service.ErrExpiredToken):
		return authsdk.ErrExpiredToken
	case errors.Is(err, service.ErrMFARequired):
		return authsdk.ErrMFARequired
	case errors.Is(err, service.ErrInvalidGrant),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrWrongPassword),
		errors.Is(err, service.ErrInvalidOTP):
		return authsdk.ErrInvalidGrant
	case errors.Is(err, service.ErrInvalidRequest):
		return authsdk.ErrInvalidRequest
	}
	return nil
}
