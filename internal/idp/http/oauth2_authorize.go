package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/service"
	"github.com/aussiebroadwan/bartab-idp/pkg/authsdk"
	"github.com/aussiebroadwan/bartab-idp/pkg/httpx"
	"github.com/aussiebroadwan/bartab-idp/pkg/slogx"
)

// AuthorizeHandler serves the authorization endpoint for every registered
// response type.
type AuthorizeHandler struct {
	AuthorizationService *service.AuthorizationService

	// Optional: listed in login_required responses.
	FederationService *service.FederationService
}

// HandleGet processes GET requests to the authorization endpoint.
// There is no browser session, so the user always has to log in.
//
//	@Summary		OAuth2 authorization endpoint (GET)
//	@Description	Browser entry point of the authorization flows. The provider keeps no login session,
//	@Description	so this always answers 401 login_required and echoes the request, together with the
//	@Description	upstream providers the user may log in with instead.
//	@Tags			OAuth2
//	@Produce		json
//	@Param			response_type			query		string					true	"code, token, id_token, 'id_token token' or the device code grant type"
//	@Param			client_id				query		string					true	"OAuth2 client identifier"
//	@Param			redirect_uri			query		string					true	"Callback URI (must match registered redirect URI)"
//	@Param			scope					query		string					false	"Space-delimited list of scopes"	example("openid profile")
//	@Param			state					query		string					false	"Opaque value for CSRF protection (recommended)"
//	@Param			nonce					query		string					false	"Copied into the ID token"
//	@Param			code_challenge			query		string					false	"PKCE code challenge (required for clients that require PKCE)"
//	@Param			code_challenge_method	query		string					false	"PKCE method (defaults to S256)"	Enums(S256, plain)
//	@Failure		401						{object}	map[string]interface{}	"login_required"
//	@Router			/v1/oauth2/authorize [get]
func (h *AuthorizeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	authReq := buildAuthorizationRequest(r.URL.Query())

	payload := map[string]any{
		"error":             authsdk.ErrorCodeLoginRequired,
		"error_description": "user authentication required",
		"response_type":     authReq.ResponseType,
		"client_id":         authReq.ClientID,
		"redirect_uri":      authReq.RedirectURI, // not validated yet
	}
	if authReq.Scope != "" {
		payload["scope"] = authReq.Scope
	}
	if authReq.State != "" {
		payload["state"] = authReq.State
	}
	if h.FederationService != nil {
		payload["providers"] = h.FederationService.Providers()
	}
	httpx.WriteJSON(w, http.StatusUnauthorized, payload)
}

// HandlePost processes POST requests to the authorization endpoint.
// The form carries the authorization request and the user's credentials.
//
//	@Summary		OAuth2 authorization endpoint (POST)
//	@Description	Authenticates the user with username, password and (when enrolled) a TOTP code, then
//	@Description	answers with a 302 built by the response type: a code, tokens in the query, or the
//	@Description	device success page when approving a device user code (scope user_code=XXXXXXXX).
//	@Description
//	@Description	Errors are redirected to redirect_uri once it is known to be registered for the client;
//	@Description	otherwise they are returned as JSON.
//	@Tags			OAuth2
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			response_type			formData	string					true	"Response type"
//	@Param			client_id				formData	string					true	"OAuth2 client identifier"
//	@Param			redirect_uri			formData	string					true	"Callback URI"
//	@Param			scope					formData	string					false	"Space-delimited list of scopes"
//	@Param			state					formData	string					false	"Opaque value for CSRF protection"
//	@Param			nonce					formData	string					false	"Copied into the ID token"
//	@Param			code_challenge			formData	string					false	"PKCE code challenge"
//	@Param			code_challenge_method	formData	string					false	"PKCE method"	Enums(S256, plain)
//	@Param			username				formData	string					true	"Username"
//	@Param			password				formData	string					true	"Password"
//	@Param			otp						formData	string					false	"TOTP code"
//	@Success		302						{string}	string					"Redirect built by the response type"
//	@Failure		400						{object}	authsdk.ErrorResponse	"Invalid request"
//	@Failure		401						{object}	authsdk.ErrorResponse	"Unknown client or mfa_required"
//	@Router			/v1/oauth2/authorize [post]
func (h *AuthorizeHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}

	authReq := buildAuthorizationRequest(r.Form)
	authReq.Username = strings.TrimSpace(r.Form.Get("username"))
	authReq.Password = r.Form.Get("password")
	authReq.OTP = strings.TrimSpace(r.Form.Get("otp"))

	redirect, err := h.AuthorizationService.GetRedirectURL(r.Context(), authReq)
	if err != nil {
		writeAuthorizeError(w, r, authReq, err)
		return
	}

	httpx.Found(w, redirect)
}

func buildAuthorizationRequest(v url.Values) service.AuthorizationRequest {
	get := func(key string) string { return strings.TrimSpace(v.Get(key)) }

	return service.AuthorizationRequest{
		ResponseType:        get("response_type"),
		ClientID:            get("client_id"),
		RedirectURI:         get("redirect_uri"),
		Scope:               get("scope"),
		State:               get("state"),
		Nonce:               get("nonce"),
		CodeChallenge:       get("code_challenge"),
		CodeChallengeMethod: get("code_challenge_method"),
	}
}

// writeAuthorizeError answers a failed authorization. Only errors raised
// after the redirect URI was matched against the client are redirected
// (RFC 6749 section 4.1.2.1); everything else is JSON.
func writeAuthorizeError(w http.ResponseWriter, r *http.Request, req service.AuthorizationRequest, err error) {
	log := slogx.FromContext(r.Context())

	var (
		oauthError *authsdk.OAuth2Error
		redirect   bool
	)

	switch {
	case errors.Is(err, service.ErrClientNotFound):
		oauthError = authsdk.ErrInvalidClient.WithDescription("unknown client_id")
	case errors.Is(err, service.ErrClientRedirectURI):
		oauthError = authsdk.ErrInvalidRequest.WithDescription(
			"The 'redirect_uri' parameter is invalid or does not match a registered URI for the client.")
	case errors.Is(err, service.ErrWrongResponseType):
		oauthError = authsdk.ErrUnsupportedResponseType
	case errors.Is(err, service.ErrMFARequired):
		oauthError = authsdk.ErrMFARequired
	case errors.Is(err, service.ErrUserCodeNotFound):
		oauthError = authsdk.ErrInvalidRequest.WithDescription("unknown or expired user code")
	case errors.Is(err, service.ErrInvalidRequest):
		oauthError = authsdk.ErrInvalidRequest
	case errors.Is(err, service.ErrUnauthorizedClient):
		oauthError, redirect = authsdk.ErrUnauthorizedClient, true
	case errors.Is(err, service.ErrClientScopes), errors.Is(err, service.ErrInvalidScope):
		oauthError, redirect = authsdk.ErrInvalidScope, true
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrWrongPassword),
		errors.Is(err, service.ErrInvalidOTP):
		oauthError, redirect = authsdk.ErrAccessDenied, true
	default:
		log.Error("authorize request failed", "client_id", req.ClientID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	if redirect {
		if u := buildErrorRedirect(req.RedirectURI, req.State, oauthError); u != "" {
			httpx.Found(w, u)
			return
		}
	}

	log.Debug("authorize request returned error response", "error_code", oauthError.Code)
	oauthError.WriteError(w)
}

// buildErrorRedirect constructs a redirect URL for an OAuth2 error.
// It returns an empty string if the baseURI is invalid.
func buildErrorRedirect(baseURI, state string, oauthError *authsdk.OAuth2Error) string {
	u, err := url.Parse(baseURI)
	if err != nil {
		return ""
	}

	q := u.Query()
	q.Set("error", oauthError.Code)
	if oauthError.Description != "" {
		q.Set("error_description", oauthError.Description)
	}
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()

	return u.String()
}
