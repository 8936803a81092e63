package jwtx

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Authentication method references for the amr claim.
const (
	AMRPassword  = "pwd"
	AMROTP       = "otp"
	AMRFederated = "fed"
	AMRClient    = "client"
)

// AccessClaims are the claims of an access token. Audience is always the
// fixed endpoint trio plus the names of any API resources the scopes touch.
type AccessClaims struct {
	jwt.RegisteredClaims

	ClientID string `json:"client_id"`

	// Space delimited, as in the token response.
	Scope string `json:"scope,omitempty"`

	SID string `json:"sid,omitempty"`

	// Authentication Methods Reference ["pwd","otp","fed"].
	AMR []string `json:"amr,omitempty"`

	Roles []string `json:"roles,omitempty"`
}

// IDClaims are the claims of an OpenID Connect ID token. UserClaims are
// merged into the top-level JSON object; they never override a registered
// or protocol claim.
type IDClaims struct {
	jwt.RegisteredClaims

	ClientID string `json:"client_id"`
	Nonce    string `json:"nonce,omitempty"`
	AuthTime int64  `json:"auth_time,omitempty"`
	AtHash   string `json:"at_hash,omitempty"`
	SID      string `json:"sid,omitempty"`

	UserClaims map[string]any `json:"-"`
}

type idClaimsJSON IDClaims

var idProtocolClaims = []string{
	"iss", "sub", "aud", "exp", "nbf", "iat", "jti",
	"client_id", "nonce", "auth_time", "at_hash", "sid",
}

func (c IDClaims) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(idClaimsJSON(c))
	if err != nil {
		return nil, err
	}
	if len(c.UserClaims) == 0 {
		return base, nil
	}

	var out map[string]any
	if err := json.Unmarshal(base, &out); err != nil {
		return nil, err
	}
	for k, v := range c.UserClaims {
		if _, taken := out[k]; taken || slices.Contains(idProtocolClaims, k) {
			continue
		}
		out[k] = v
	}
	return json.Marshal(out)
}

func (c *IDClaims) UnmarshalJSON(b []byte) error {
	var base idClaimsJSON
	if err := json.Unmarshal(b, &base); err != nil {
		return err
	}

	var rest map[string]any
	if err := json.Unmarshal(b, &rest); err != nil {
		return err
	}
	for _, k := range idProtocolClaims {
		delete(rest, k)
	}

	*c = IDClaims(base)
	if len(rest) > 0 {
		c.UserClaims = rest
	}
	return nil
}

// HintClaims are the claims read from an id_token_hint. Relying parties
// send sub as either a JSON string or a JSON number; both land in Subject.
type HintClaims struct {
	jwt.RegisteredClaims

	ClientID string `json:"client_id"`
}

func (c *HintClaims) UnmarshalJSON(b []byte) error {
	var raw struct {
		jwt.RegisteredClaims
		Sub      json.RawMessage `json:"sub"`
		ClientID string          `json:"client_id"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	switch sub := bytes.TrimSpace(raw.Sub); {
	case len(sub) == 0 || string(sub) == "null":
	case sub[0] == '"':
		if err := json.Unmarshal(sub, &raw.Subject); err != nil {
			return err
		}
	default:
		var n json.Number
		if err := json.Unmarshal(sub, &n); err != nil {
			return err
		}
		raw.Subject = n.String()
	}

	*c = HintClaims{RegisteredClaims: raw.RegisteredClaims, ClientID: raw.ClientID}
	return nil
}

// NewRegisteredClaims fills the standard claims for a token issued now.
func NewRegisteredClaims(issuer, subject string, audience []string, ttl time.Duration, now time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings(audience),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        NewJTI(),
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// AtHash computes the OIDC at_hash for an RS256 access token: the left half
// of its SHA-256, base64url encoded.
func AtHash(accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return base64.RawURLEncoding.EncodeToString(sum[:len(sum)/2])
}
