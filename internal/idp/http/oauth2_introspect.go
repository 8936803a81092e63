package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/service"
	"github.com/aussiebroadwan/bartab-idp/pkg/authsdk"
	"github.com/aussiebroadwan/bartab-idp/pkg/httpx"
	"github.com/aussiebroadwan/bartab-idp/pkg/slogx"
)

// IntrospectHandler serves POST /v1/oauth2/introspect following RFC 7662.
// Callers authenticate as a client.
type IntrospectHandler struct {
	RevocationService *service.RevocationService
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Introspection Endpoint
//	@Description	Introspects an access or refresh token and returns metadata about it (RFC 7662)
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			token			formData	string							true	"The token to introspect"
//	@Param			token_type_hint	formData	string							false	"Hint about the token type"	Enums(access_token, refresh_token)
//	@Param			client_id		formData	string							false	"Client identifier (unless HTTP Basic is used)"
//	@Param			client_secret	formData	string							false	"Client secret"
//	@Success		200				{object}	authsdk.IntrospectionResponse	"Token introspection result"
//	@Failure		400				{object}	authsdk.ErrorResponse			"error, error_description"
//	@Failure		401				{object}	authsdk.ErrorResponse			"error, error_description"
//	@Header			200				{string}	Cache-Control					"no-store"
//	@Header			200				{string}	Pragma							"no-cache"
//	@Router			/v1/oauth2/introspect [post].
func (h *IntrospectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if !parseForm(w, r) {
		return
	}

	token := r.Form.Get("token")
	if token == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	clientID, clientSecret := clientCredentials(r)
	in, err := h.RevocationService.Introspect(ctx, service.RevocationRequest{
		Token:         token,
		TokenTypeHint: r.Form.Get("token_type_hint"),
		ClientID:      clientID,
		ClientSecret:  clientSecret,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidClient) {
			authsdk.ErrInvalidClient.WriteError(w)
			return
		}
		log.Error("introspection failed", "client_id", clientID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	// Inactive tokens reveal nothing else.
	if !in.Active {
		httpx.WriteJSON(w, http.StatusOK, authsdk.IntrospectionResponse{Active: false})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.IntrospectionResponse{
		Active:    true,
		Scope:     in.Scope,
		ClientID:  in.ClientID,
		TokenType: in.TokenType,
		Exp:       in.ExpiresAt,
		Iat:       in.IssuedAt,
		Sub:       in.Subject,
		Aud:       in.Audience,
		Iss:       in.Issuer,
		Jti:       in.JTI,
	})
}
