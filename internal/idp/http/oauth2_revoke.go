package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/service"
	"github.com/aussiebroadwan/bartab-idp/pkg/authsdk"
	"github.com/aussiebroadwan/bartab-idp/pkg/httpx"
	"github.com/aussiebroadwan/bartab-idp/pkg/slogx"
)

// RevokeHandler serves POST /v1/oauth2/revoke (RFC 7009).
type RevokeHandler struct {
	RevocationService *service.RevocationService
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Revocation Endpoint
//	@Description	Revokes an access token (blacklisted until it expires) or a refresh token (its grant is deleted).
//	@Description	Unknown tokens and tokens of other clients are accepted and ignored.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			token			formData	string					true	"The token to revoke"
//	@Param			token_type_hint	formData	string					false	"Hint about the token type"	Enums(access_token, refresh_token)
//	@Param			client_id		formData	string					false	"Client identifier (unless HTTP Basic is used)"
//	@Param			client_secret	formData	string					false	"Client secret"
//	@Success		200				"Token revoked (or unknown)"
//	@Failure		400				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		401				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/oauth2/revoke [post].
func (h *RevokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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
	err := h.RevocationService.Revoke(ctx, service.RevocationRequest{
		Token:         token,
		TokenTypeHint: r.Form.Get("token_type_hint"),
		ClientID:      clientID,
		ClientSecret:  clientSecret,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidClient):
			authsdk.ErrInvalidClient.WriteError(w)
		case errors.Is(err, service.ErrInvalidRequest):
			authsdk.ErrInvalidRequest.WriteError(w)
		default:
			log.Error("revocation failed", "client_id", clientID, "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusOK)
}
