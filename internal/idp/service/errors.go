package service

import (
	"errors"

	"github.com/aussiebroadwan/bartab-idp/pkg/jwtx"
)

var (
	ErrClientNotFound              = errors.New("client_not_found")
	ErrClientRedirectURI           = errors.New("client_redirect_uri")
	ErrClientScopes                = errors.New("client_scopes")
	ErrClientPostLogoutRedirectURI = errors.New("client_post_logout_redirect_uri")
	ErrUserNotFound                = errors.New("user_not_found")
	ErrWrongPassword               = errors.New("wrong_password")
	ErrUserCodeNotFound            = errors.New("user_code_not_found")
	ErrWrongResponseType           = errors.New("wrong_response_type")
	ErrPersistentGrantNotFound     = errors.New("persistent_grant_not_found")

	// Token codec failures are the jwtx sentinels so errors.Is works across
	// both packages.
	ErrTokenDecode  = jwtx.ErrTokenDecode
	ErrTokenExpired = jwtx.ErrTokenExpired

	ErrInvalidRequest       = errors.New("invalid_request")
	ErrMissingClaim         = errors.New("missing_claim")
	ErrUnauthorizedClient   = errors.New("unauthorized_client")
	ErrInvalidClient        = errors.New("invalid_client")
	ErrInvalidGrant         = errors.New("invalid_grant")
	ErrInvalidScope         = errors.New("invalid_scope")
	ErrUnsupportedGrantType = errors.New("unsupported_grant_type")
	ErrAuthorizationPending = errors.New("authorization_pending")
	ErrSlowDown             = errors.New("slow_down")
	ErrExpiredToken         = errors.New("expired_token")
	ErrMFARequired          = errors.New("mfa_required")
	ErrInvalidOTP           = errors.New("invalid_otp")
	ErrUnknownProvider      = errors.New("unknown_provider")
	ErrTokenRevoked         = errors.New("token_revoked")
	ErrUserExists           = errors.New("user_exists")
	ErrClientExists         = errors.New("client_exists")
)

// Order matters: wrapped errors report the first sentinel they match, so the
// most specific causes come before the OAuth2 umbrella codes.
var reasons = []error{
	ErrClientNotFound, ErrClientRedirectURI, ErrClientScopes, ErrClientPostLogoutRedirectURI,
	ErrUserNotFound, ErrWrongPassword, ErrUserCodeNotFound, ErrWrongResponseType,
	ErrPersistentGrantNotFound, ErrTokenExpired, ErrTokenDecode, ErrMissingClaim,
	ErrMFARequired, ErrInvalidOTP, ErrUnknownProvider, ErrTokenRevoked, ErrUserExists, ErrClientExists,
	ErrAuthorizationPending, ErrSlowDown, ErrExpiredToken,
	ErrInvalidRequest, ErrUnauthorizedClient, ErrInvalidClient, ErrInvalidGrant,
	ErrInvalidScope, ErrUnsupportedGrantType,
}

// Reason returns a short label for err, used for metrics and logs. Errors
// outside the taxonomy are "internal".
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r) {
			switch r {
			case ErrTokenDecode:
				return "token_decode"
			case ErrTokenExpired:
				return "token_expired"
			}
			return r.Error()
		}
	}
	return "internal"
}
