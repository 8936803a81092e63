package domain

import "time"

// GrantType names both persistent grant kinds and token endpoint grants.
type GrantType string

const (
	GrantAuthorizationCode GrantType = "authorization_code"
	GrantRefreshToken      GrantType = "refresh_token"
	GrantPassword          GrantType = "password"
	GrantClientCredentials GrantType = "client_credentials"
	GrantDeviceCode        GrantType = "urn:ietf:params:oauth:grant-type:device_code"
)

// PersistentGrantDeviceCode is how a device grant is stored. The URN is the
// token endpoint spelling of the same grant.
const PersistentGrantDeviceCode GrantType = "device_code"

// PersistentGrant binds an opaque secret to a client and subject until it is
// redeemed, revoked or expires. Key holds the secret's fingerprint.
type PersistentGrant struct {
	Key        string
	ClientID   string
	SubjectID  int64 // 0 when there is no subject
	GrantType  GrantType
	Data       string
	Scopes     []string
	SessionID  string
	CreatedAt  time.Time
	Expiration int64 // seconds from CreatedAt
}

func (g *PersistentGrant) ExpiresAt() time.Time {
	return g.CreatedAt.Add(time.Duration(g.Expiration) * time.Second)
}

func (g *PersistentGrant) IsExpired(now time.Time) bool {
	return !now.Before(g.ExpiresAt())
}

// AuthorizationCodeData is the Data payload of an authorization_code grant.
type AuthorizationCodeData struct {
	RedirectURI         string   `json:"redirect_uri"`
	CodeChallenge       string   `json:"code_challenge,omitempty"`
	CodeChallengeMethod string   `json:"code_challenge_method,omitempty"`
	Nonce               string   `json:"nonce,omitempty"`
	AuthTime            int64    `json:"auth_time"`
	AMR                 []string `json:"amr,omitempty"`
}

// RefreshTokenData is the Data payload of a refresh_token grant.
type RefreshTokenData struct {
	AuthTime          int64    `json:"auth_time"`
	AbsoluteExpiresAt int64    `json:"absolute_expires_at"`
	AMR               []string `json:"amr,omitempty"`
}
