package domain

import "time"

// TokenSet is what the token endpoint hands back.
type TokenSet struct {
	AccessToken  string
	TokenType    string
	ExpiresIn    int64 // seconds
	RefreshToken string
	IDToken      string
	Scope        string
}

// BlacklistedToken is a revoked JWT, remembered until it would have expired.
type BlacklistedToken struct {
	Fingerprint string
	ExpiresAt   time.Time
}

// Introspection is the RFC 7662 view of a token.
type Introspection struct {
	Active    bool
	Scope     string
	ClientID  string
	Subject   string
	TokenType string
	ExpiresAt int64
	IssuedAt  int64
	Issuer    string
	Audience  []string
	JTI       string
}
