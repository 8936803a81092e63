package authsdk

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// StartDeviceAuthorization begins the device authorization grant
// (RFC 8628 section 3.1).
func (c *SDKClient) StartDeviceAuthorization(ctx context.Context, scopes []string) (*DeviceAuthorizationResponse, error) {
	data := url.Values{}
	if len(scopes) > 0 {
		data.Set("scope", strings.Join(scopes, " "))
	}

	resp, err := c.postForm(ctx, PathDeviceAuthorization, c.withClientAuth(data))
	if err != nil {
		return nil, err
	}

	var out DeviceAuthorizationResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// PollDeviceToken makes one token request for deviceCode. While the user
// has not approved it fails with ErrAuthorizationPending or ErrSlowDown
// (check with errors.Is).
func (c *SDKClient) PollDeviceToken(ctx context.Context, deviceCode string) (*TokenResponse, error) {
	return c.requestToken(ctx, url.Values{
		"grant_type":  {GrantTypeDeviceCode},
		"device_code": {deviceCode},
	})
}

// WaitForDeviceToken polls until the device is approved, the code expires
// or ctx ends. slow_down adds five seconds to the interval.
func (c *SDKClient) WaitForDeviceToken(ctx context.Context, da *DeviceAuthorizationResponse) (*TokenResponse, error) {
	interval := time.Duration(da.Interval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}

		tr, err := c.PollDeviceToken(ctx, da.DeviceCode)
		switch {
		case err == nil:
			return tr, nil
		case errors.Is(err, ErrAuthorizationPending):
		case errors.Is(err, ErrSlowDown):
			interval += 5 * time.Second
		default:
			return nil, err
		}
	}
}

// CancelDeviceAuthorization drops a pending user code.
func (c *SDKClient) CancelDeviceAuthorization(ctx context.Context, userCode string) error {
	resp, err := c.postForm(ctx, PathDeviceCancel, c.withClientAuth(url.Values{"user_code": {userCode}}))
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusNoContent)
}

// ApproveDevice approves userCode as the given user, the way the
// verification page does. It returns the page the user is sent to.
func (c *SDKClient) ApproveDevice(ctx context.Context, redirectURI, userCode, username, password, otp string) (*url.URL, error) {
	return c.AuthorizeWithPassword(ctx, AuthorizeParams{
		ResponseType: GrantTypeDeviceCode,
		RedirectURI:  redirectURI,
		Scopes:       []string{"user_code=" + userCode},
	}, username, password, otp)
}
