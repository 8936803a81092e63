package jwtx

import (
	"crypto/rsa"
	"errors"

	"github.com/aussiebroadwan/bartab-idp/pkg/cryptox"
	"github.com/golang-jwt/jwt/v5"
)

// Signer signs tokens with one private key identified by its kid.
type Signer interface {
	KID() string
	Sign(claims jwt.Claims) (string, error)
	PublicKey() *rsa.PublicKey
	PublicJWK() JWK
}

// RS256Signer is a Signer over an RSA private key.
type RS256Signer struct {
	kid string
	key *rsa.PrivateKey
}

// NewSignerRS256 loads a PKCS1 or PKCS8 PEM RSA key.
func NewSignerRS256(kid string, pemKey []byte) (*RS256Signer, error) {
	key, err := cryptox.ParseRSAPrivateKey(pemKey)
	if err != nil {
		return nil, err
	}
	return NewSignerFromKey(kid, key)
}

// NewSignerFromKey wraps an already parsed key.
func NewSignerFromKey(kid string, key *rsa.PrivateKey) (*RS256Signer, error) {
	if kid == "" {
		return nil, errors.New("jwtx: kid is required")
	}
	if key == nil {
		return nil, errors.New("jwtx: nil RSA key")
	}
	return &RS256Signer{kid: kid, key: key}, nil
}

func (s *RS256Signer) KID() string               { return s.kid }
func (s *RS256Signer) PublicKey() *rsa.PublicKey { return &s.key.PublicKey }

func (s *RS256Signer) Sign(claims jwt.Claims) (string, error) {
	return Encode(claims, s.key, s.kid)
}

// PublicJWK is the key as published in the JWKS.
func (s *RS256Signer) PublicJWK() JWK {
	return NewRSAJWK(s.kid, "sig", AlgorithmRS256, &s.key.PublicKey)
}
