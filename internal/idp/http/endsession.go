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

// EndSessionHandler serves RP-initiated logout on GET and POST.
type EndSessionHandler struct {
	EndSessionService *service.EndSessionService
}

// ServeHTTP godoc
//
//	@Summary		End Session Endpoint
//	@Description	Drops every grant the user of id_token_hint holds at its client. Redirects to
//	@Description	post_logout_redirect_uri (with state) when given, otherwise answers 204.
//	@Tags			OAuth2
//	@Produce		json
//	@Param			id_token_hint				query		string					true	"An ID token issued to the client"
//	@Param			post_logout_redirect_uri	query		string					false	"Registered post logout redirect URI"
//	@Param			state						query		string					false	"Appended to the post logout redirect"
//	@Success		204							"Logged out"
//	@Success		302							{string}	string					"Redirect to post_logout_redirect_uri"
//	@Failure		400							{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/oauth2/endsession [get]
//	@Router			/v1/oauth2/endsession [post]
func (h *EndSessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if r.Method == http.MethodPost {
		if !parseForm(w, r) {
			return
		}
	} else if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	hint := strings.TrimSpace(r.Form.Get("id_token_hint"))
	if hint == "" {
		authsdk.ErrInvalidRequest.WithDescription("id_token_hint is required").WriteError(w)
		return
	}

	redirect, err := h.EndSessionService.EndSession(ctx, service.EndSessionRequest{
		IDTokenHint:           hint,
		PostLogoutRedirectURI: strings.TrimSpace(r.Form.Get("post_logout_redirect_uri")),
		State:                 r.Form.Get("state"),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTokenDecode), errors.Is(err, service.ErrMissingClaim):
			authsdk.ErrInvalidRequest.WithDescription("invalid id_token_hint").WriteError(w)
		case errors.Is(err, service.ErrClientNotFound), errors.Is(err, service.ErrClientPostLogoutRedirectURI):
			authsdk.ErrInvalidRequest.WithDescription("post_logout_redirect_uri is not registered for the client").WriteError(w)
		default:
			log.Error("end session failed", "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	if redirect == "" {
		httpx.NoCache(w)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	httpx.Found(w, redirect)
}
