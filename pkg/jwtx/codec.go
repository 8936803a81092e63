package jwtx

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AlgorithmRS256 is the only signing algorithm issued or accepted.
const AlgorithmRS256 = "RS256"

var (
	// ErrTokenDecode covers malformed tokens, bad signatures and claim
	// mismatches. The precise cause is wrapped alongside it.
	ErrTokenDecode = errors.New("jwtx: token decode failed")

	// ErrTokenExpired is returned for an otherwise valid token past its exp.
	ErrTokenExpired = errors.New("jwtx: token expired")

	ErrUnknownKID  = errors.New("jwtx: unknown kid")
	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrAudience    = errors.New("jwtx: audience mismatch")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
)

type decodeOptions struct {
	audience   string
	issuer     string
	unverified bool
	skipExpiry bool
	leeway     time.Duration
}

// DecodeOption tunes Decode.
type DecodeOption func(*decodeOptions)

// WithAudience requires the aud claim to contain aud.
func WithAudience(aud string) DecodeOption {
	return func(o *decodeOptions) { o.audience = aud }
}

// WithIssuer requires the iss claim to equal iss.
func WithIssuer(iss string) DecodeOption {
	return func(o *decodeOptions) { o.issuer = iss }
}

// WithoutSignature parses the token without checking its signature. Only for
// hints whose authenticity does not matter to the caller.
func WithoutSignature() DecodeOption {
	return func(o *decodeOptions) { o.unverified = true }
}

// WithoutExpiry skips exp and nbf checks.
func WithoutExpiry() DecodeOption {
	return func(o *decodeOptions) { o.skipExpiry = true }
}

// WithLeeway allows for clock skew on exp and nbf.
func WithLeeway(d time.Duration) DecodeOption {
	return func(o *decodeOptions) { o.leeway = d }
}

// Encode signs claims with RS256 and sets the kid header when non-empty.
func Encode(claims jwt.Claims, key *rsa.PrivateKey, kid string) (string, error) {
	if key == nil {
		return "", errors.New("jwtx: nil signing key")
	}
	t := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		t.Header["kid"] = kid
	}
	return t.SignedString(key)
}

// Decode parses token into claims, which must be a pointer. A leading
// "Bearer " is stripped.
func Decode(token string, key *rsa.PublicKey, claims jwt.Claims, opts ...DecodeOption) error {
	return decode(token, func(*jwt.Token) (any, error) {
		if key == nil {
			return nil, errors.New("jwtx: nil verification key")
		}
		return key, nil
	}, claims, opts...)
}

func decode(token string, keyfunc jwt.Keyfunc, claims jwt.Claims, opts ...DecodeOption) error {
	var o decodeOptions
	for _, opt := range opts {
		opt(&o)
	}

	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return fmt.Errorf("%w: empty token", ErrTokenDecode)
	}

	// Claims are validated below so exp can be told apart from the rest.
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{AlgorithmRS256}),
		jwt.WithoutClaimsValidation(),
	)

	var err error
	if o.unverified {
		_, _, err = parser.ParseUnverified(token, claims)
	} else {
		_, err = parser.ParseWithClaims(token, claims, keyfunc)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTokenDecode, err)
	}

	return validateClaims(claims, o)
}

func validateClaims(claims jwt.Claims, o decodeOptions) error {
	if !o.skipExpiry {
		now := time.Now()
		exp, err := claims.GetExpirationTime()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrTokenDecode, err)
		}
		if exp != nil && !now.Before(exp.Add(o.leeway)) {
			return ErrTokenExpired
		}
		nbf, err := claims.GetNotBefore()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrTokenDecode, err)
		}
		if nbf != nil && now.Before(nbf.Add(-o.leeway)) {
			return fmt.Errorf("%w: %w", ErrTokenDecode, ErrNotYetValid)
		}
	}

	if o.audience != "" {
		aud, err := claims.GetAudience()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrTokenDecode, err)
		}
		if !slices.Contains(aud, o.audience) {
			return fmt.Errorf("%w: %w", ErrTokenDecode, ErrAudience)
		}
	}

	if o.issuer != "" {
		iss, err := claims.GetIssuer()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrTokenDecode, err)
		}
		if iss != o.issuer {
			return fmt.Errorf("%w: %w", ErrTokenDecode, ErrIssuer)
		}
	}

	return nil
}
