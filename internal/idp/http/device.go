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

// DeviceHandler serves the device authorization grant endpoints (RFC 8628)
// other than polling, which goes through the token endpoint.
type DeviceHandler struct {
	DeviceService *service.DeviceService
}

// HandleAuthorization handles POST /v1/oauth2/device_authorization
//
//	@Summary		Device Authorization Endpoint
//	@Description	Starts the device flow: returns a device code for polling and a user code to enter at verification_uri.
//	@Tags			Device
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			client_id	formData	string								true	"Client identifier"
//	@Param			scope		formData	string								false	"Space-delimited list of scopes"
//	@Success		200			{object}	authsdk.DeviceAuthorizationResponse	"device_code, user_code, verification_uri, expires_in, interval"
//	@Failure		400			{object}	authsdk.ErrorResponse				"error, error_description"
//	@Failure		401			{object}	authsdk.ErrorResponse				"error, error_description"
//	@Router			/v1/oauth2/device_authorization [post]
func (h *DeviceHandler) HandleAuthorization(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if !parseForm(w, r) {
		return
	}

	clientID, _ := clientCredentials(r)
	if clientID == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	da, err := h.DeviceService.StartDeviceFlow(ctx, clientID, strings.TrimSpace(r.Form.Get("scope")))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrClientNotFound):
			authsdk.ErrInvalidClient.WriteError(w)
		case errors.Is(err, service.ErrUnauthorizedClient):
			authsdk.ErrUnauthorizedClient.WriteError(w)
		case errors.Is(err, service.ErrClientScopes), errors.Is(err, service.ErrInvalidScope):
			authsdk.ErrInvalidScope.WriteError(w)
		case errors.Is(err, service.ErrInvalidRequest):
			authsdk.ErrInvalidRequest.WriteError(w)
		default:
			log.Error("device authorization failed", "client_id", clientID, "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.DeviceAuthorizationResponse{
		DeviceCode:              da.DeviceCode,
		UserCode:                da.UserCode,
		VerificationURI:         da.VerificationURI,
		VerificationURIComplete: da.VerificationURIComplete,
		ExpiresIn:               da.ExpiresIn,
		Interval:                da.Interval,
	})
}

// HandleVerify handles GET /v1/oauth2/device?user_code=...
//
//	@Summary		Device Verification
//	@Description	Resolves a user code and redirects to the authorization endpoint where the user approves the device.
//	@Tags			Device
//	@Produce		json
//	@Param			user_code	query		string					true	"User code shown on the device"
//	@Success		302			{string}	string					"Redirect to the authorization endpoint"
//	@Failure		400			{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		404			{object}	authsdk.ErrorResponse	"Unknown or expired user code"
//	@Router			/v1/oauth2/device [get]
func (h *DeviceHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	code := strings.TrimSpace(r.URL.Query().Get("user_code"))
	if code == "" {
		authsdk.ErrInvalidRequest.WithDescription("user_code is required").WriteError(w)
		return
	}

	redirect, err := h.DeviceService.ResolveUserCode(ctx, code)
	if err != nil {
		if errors.Is(err, service.ErrUserCodeNotFound) {
			authsdk.ErrNotFound.WithDescription("unknown or expired user code").WriteError(w)
			return
		}
		log.Error("user code lookup failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.Found(w, redirect)
}

// HandleCancel handles POST /v1/oauth2/device/cancel
//
//	@Summary		Cancel Device Authorization
//	@Description	Drops a pending user code of the calling client. Unknown codes are ignored.
//	@Tags			Device
//	@Accept			application/x-www-form-urlencoded
//	@Param			client_id	formData	string	true	"Client identifier"
//	@Param			user_code	formData	string	true	"User code to cancel"
//	@Success		204			"Cancelled"
//	@Failure		400			{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		401			{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/oauth2/device/cancel [post]
func (h *DeviceHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if !parseForm(w, r) {
		return
	}

	clientID, _ := clientCredentials(r)
	code := strings.TrimSpace(r.Form.Get("user_code"))
	if clientID == "" || code == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.DeviceService.Cancel(ctx, clientID, code); err != nil {
		switch {
		case errors.Is(err, service.ErrClientNotFound):
			authsdk.ErrInvalidClient.WriteError(w)
		case errors.Is(err, service.ErrUserCodeNotFound):
			authsdk.ErrInvalidRequest.WithDescription("user code belongs to another client").WriteError(w)
		default:
			log.Error("device cancel failed", "client_id", clientID, "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleSuccess handles GET /v1/oauth2/device/success, where the user lands
// after approving a device.
//
//	@Summary		Device Approved
//	@Tags			Device
//	@Produce		json
//	@Success		200	{object}	map[string]string	"status"
//	@Router			/v1/oauth2/device/success [get]
func (h *DeviceHandler) HandleSuccess(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "approved",
		"message": "The device is now signed in. You can close this window.",
	})
}
