package authsdk

import (
	"github.com/aussiebroadwan/bartab-idp/pkg/jwtx"
)

// ============================================================================
// Endpoint Paths
// ============================================================================

// Paths served by the identity provider, relative to the issuer.
const (
	PathDiscovery           = "/.well-known/openid-configuration"
	PathJWKS                = "/.well-known/jwks.json"
	PathAuthorize           = "/v1/oauth2/authorize"
	PathToken               = "/v1/oauth2/token"
	PathRevoke              = "/v1/oauth2/revoke"
	PathIntrospect          = "/v1/oauth2/introspect"
	PathDeviceAuthorization = "/v1/oauth2/device_authorization"
	PathDevice              = "/v1/oauth2/device"
	PathDeviceCancel        = "/v1/oauth2/device/cancel"
	PathDeviceSuccess       = "/v1/oauth2/device/success"
	PathEndSession          = "/v1/oauth2/endsession"
	PathUserInfo            = "/v1/userinfo"
	PathFederation          = "/v1/federation/"
	PathLivez               = "/livez"
	PathReadyz              = "/readyz"
)

// GrantTypeDeviceCode is the RFC 8628 grant type, which is also the
// response_type used when a user approves a device.
const GrantTypeDeviceCode = "urn:ietf:params:oauth:grant-type:device_code"

// ============================================================================
// Internal Response Types (used for JSON unmarshaling)
// ============================================================================

// ErrorResponse is the JSON body of an OAuth2 error. Client code should use
// OAuth2Error instead.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ============================================================================
// Token Types
// ============================================================================

// TokenResponse is the token endpoint response (RFC 6749 section 5.1, OIDC
// Core section 3.1.3.3).
type TokenResponse struct {
	// AccessToken is the JWT access token used to authenticate API requests
	AccessToken string `json:"access_token"`

	// RefreshToken is the opaque refresh token. Only present when the client
	// may use the refresh_token grant.
	RefreshToken string `json:"refresh_token,omitempty"`

	// IDToken is present when the openid scope was granted to a user
	IDToken string `json:"id_token,omitempty"`

	// TokenType is always "Bearer"
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token
	ExpiresIn int64 `json:"expires_in"`

	Scope string `json:"scope,omitempty"`
}

// IntrospectionResponse is the RFC 7662 token introspection response.
// Inactive tokens carry only Active=false.
type IntrospectionResponse struct {
	Active bool `json:"active"`

	Scope     string   `json:"scope,omitempty"`
	ClientID  string   `json:"client_id,omitempty"`
	TokenType string   `json:"token_type,omitempty"`
	Exp       int64    `json:"exp,omitempty"`
	Iat       int64    `json:"iat,omitempty"`
	Sub       string   `json:"sub,omitempty"`
	Aud       []string `json:"aud,omitempty"`
	Iss       string   `json:"iss,omitempty"`
	Jti       string   `json:"jti,omitempty"`
}

// DeviceAuthorizationResponse is the RFC 8628 section 3.2 response.
type DeviceAuthorizationResponse struct {
	DeviceCode              string `json:"device_code"`
	UserCode                string `json:"user_code"`
	VerificationURI         string `json:"verification_uri"`
	VerificationURIComplete string `json:"verification_uri_complete,omitempty"`
	ExpiresIn               int64  `json:"expires_in"`
	Interval                int64  `json:"interval,omitempty"`
}

// UserInfoResponse holds sub plus the claims released by the token scopes.
type UserInfoResponse map[string]any

// Subject returns the sub claim.
func (u UserInfoResponse) Subject() string {
	s, _ := u["sub"].(string)
	return s
}

// ============================================================================
// Discovery Types
// ============================================================================

// DiscoveryDocument is the subset of OpenID Provider Metadata this provider
// publishes.
type DiscoveryDocument struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	UserInfoEndpoint                  string   `json:"userinfo_endpoint"`
	JWKSURI                           string   `json:"jwks_uri"`
	RevocationEndpoint                string   `json:"revocation_endpoint"`
	IntrospectionEndpoint             string   `json:"introspection_endpoint"`
	DeviceAuthorizationEndpoint       string   `json:"device_authorization_endpoint"`
	EndSessionEndpoint                string   `json:"end_session_endpoint"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	SubjectTypesSupported             []string `json:"subject_types_supported"`
	IDTokenSigningAlgValuesSupported  []string `json:"id_token_signing_alg_values_supported"`
	ScopesSupported                   []string `json:"scopes_supported"`
	ClaimsSupported                   []string `json:"claims_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse is returned by /livez and /readyz (readyz adds Checks).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	Version string `json:"version,omitempty"`

	// Checks contains readiness check results for critical dependencies (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports each dependency checked by /readyz.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`

	// Blacklist is only reported when a Redis blacklist is configured.
	Blacklist string `json:"blacklist,omitempty"`
}

// ============================================================================
// JWKS Types
// ============================================================================

// JWKSResponse is the JSON Web Key Set served at /.well-known/jwks.json.
type JWKSResponse jwtx.JWKS
