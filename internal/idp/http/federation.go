package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/service"
	"github.com/aussiebroadwan/bartab-idp/pkg/authsdk"
	"github.com/aussiebroadwan/bartab-idp/pkg/httpx"
	"github.com/aussiebroadwan/bartab-idp/pkg/slogx"
	"github.com/gorilla/sessions"
)

const federationSessionName = "bartab_federation"

// The login in flight lives for ten minutes.
const federationSessionMaxAge = 600

// FederationHandler logs users in through upstream OpenID Connect providers
// and then finishes the authorization request they started here.
type FederationHandler struct {
	FederationService    *service.FederationService
	AuthorizationService *service.AuthorizationService
	Sessions             sessions.Store
}

// HandleProviders lists the upstream providers.
//
//	@Summary		List upstream identity providers
//	@Tags			Federation
//	@Produce		json
//	@Success		200	{object}	map[string][]string	"providers"
//	@Router			/v1/federation/ [get]
func (h *FederationHandler) HandleProviders(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string][]string{
		"providers": h.FederationService.Providers(),
	})
}

// HandleLogin starts an upstream login. The query carries the authorization
// request to finish once the user is back.
//
//	@Summary		Start upstream login
//	@Description	Stores the authorization request in a short lived cookie and redirects to the upstream provider.
//	@Tags			Federation
//	@Param			provider		path		string					true	"Upstream provider name"
//	@Param			response_type	query		string					true	"Response type of the pending authorization request"
//	@Param			client_id		query		string					true	"Client of the pending authorization request"
//	@Param			redirect_uri	query		string					true	"Redirect URI of the pending authorization request"
//	@Param			scope			query		string					false	"Scopes of the pending authorization request"
//	@Param			state			query		string					false	"State of the pending authorization request"
//	@Success		302				{string}	string					"Redirect to the upstream provider"
//	@Failure		404				{object}	authsdk.ErrorResponse	"Unknown provider"
//	@Router			/v1/federation/{provider}/login [get]
func (h *FederationHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	provider := r.PathValue("provider")

	authReq := buildAuthorizationRequest(r.URL.Query())
	if authReq.ClientID == "" || authReq.RedirectURI == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	start, err := h.FederationService.Begin(provider)
	if err != nil {
		if errors.Is(err, service.ErrUnknownProvider) {
			authsdk.ErrNotFound.WithDescription("unknown identity provider").WriteError(w)
			return
		}
		log.Error("federation begin failed", "provider", provider, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	// A broken cookie just starts a fresh session.
	sess, _ := h.Sessions.Get(r, federationSessionName)
	sess.Options = &sessions.Options{
		Path:     authsdk.PathFederation,
		MaxAge:   federationSessionMaxAge,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	}

	// make sure the session is empty
	sess.Values = map[any]any{
		"provider":              provider,
		"state":                 start.State,
		"nonce":                 start.Nonce,
		"verifier":              start.Verifier,
		"response_type":         authReq.ResponseType,
		"client_id":             authReq.ClientID,
		"redirect_uri":          authReq.RedirectURI,
		"scope":                 authReq.Scope,
		"client_state":          authReq.State,
		"client_nonce":          authReq.Nonce,
		"code_challenge":        authReq.CodeChallenge,
		"code_challenge_method": authReq.CodeChallengeMethod,
	}
	if err := sess.Save(r, w); err != nil {
		log.Error("failed to save federation session", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.Found(w, start.URL)
}

// HandleCallback completes an upstream login.
//
//	@Summary		Upstream login callback
//	@Description	Verifies the upstream response, links or creates the local user and finishes the
//	@Description	pending authorization request with a redirect to the client.
//	@Tags			Federation
//	@Param			provider	path		string					true	"Upstream provider name"
//	@Param			code		query		string					true	"Upstream authorization code"
//	@Param			state		query		string					true	"Upstream state"
//	@Success		302			{string}	string					"Redirect built by the pending response type"
//	@Failure		400			{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/federation/{provider}/callback [get]
func (h *FederationHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	provider := r.PathValue("provider")
	query := r.URL.Query()

	sess, err := h.Sessions.Get(r, federationSessionName)
	if err != nil || sess.IsNew {
		authsdk.ErrInvalidRequest.WithDescription("no login in progress").WriteError(w)
		return
	}

	pending := sess.Values
	value := func(key string) string {
		s, _ := pending[key].(string)
		return s
	}

	// The session is single use whatever happens next. The cookie is
	// expired and emptied so a replayed copy carries no state.
	sess.Values = map[any]any{}
	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		log.Warn("failed to clear federation session", "err", err)
	}

	if value("provider") != provider || value("state") == "" || query.Get("state") != value("state") {
		authsdk.ErrInvalidRequest.WithDescription("state mismatch").WriteError(w)
		return
	}

	authReq := service.AuthorizationRequest{
		ResponseType:        value("response_type"),
		ClientID:            value("client_id"),
		RedirectURI:         value("redirect_uri"),
		Scope:               value("scope"),
		State:               value("client_state"),
		Nonce:               value("client_nonce"),
		CodeChallenge:       value("code_challenge"),
		CodeChallengeMethod: value("code_challenge_method"),
	}

	if upstreamErr := query.Get("error"); upstreamErr != "" {
		log.Info("upstream login refused", "provider", provider, "error", upstreamErr)
		authsdk.ErrAccessDenied.WithDescription("upstream login refused").WriteError(w)
		return
	}

	userID, err := h.FederationService.Complete(ctx, provider, query.Get("code"), service.FederationStart{
		State:    value("state"),
		Nonce:    value("nonce"),
		Verifier: value("verifier"),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownProvider):
			authsdk.ErrNotFound.WithDescription("unknown identity provider").WriteError(w)
		case errors.Is(err, service.ErrInvalidGrant):
			authsdk.ErrAccessDenied.WithDescription("upstream login could not be verified").WriteError(w)
		default:
			log.Error("federation callback failed", "provider", provider, "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	redirect, err := h.AuthorizationService.AuthorizeSubject(ctx, authReq, userID)
	if err != nil {
		writeAuthorizeError(w, r, authReq, err)
		return
	}

	httpx.Found(w, redirect)
}
