package jwtx

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/aussiebroadwan/bartab-idp/pkg/cryptox"
	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultRSABits = 4096
	defaultNumKeys = 3
	maxNumKeys     = 10
)

// KeyManager owns the RS256 signing keys of the provider. Every active
// signer is also in KeySet; retired signers stay in KeySet only, so tokens
// they issued keep verifying.
type KeyManager struct {
	KeySet *KeySet

	mu      sync.RWMutex
	signers []Signer
}

// KeyManagerOptions configures NewEphemeralKeyManager.
type KeyManagerOptions struct {
	// RSABits defaults to 4096 and must be at least 2048.
	RSABits int

	// NumKeys is clamped to [1, 10]; zero means 3.
	NumKeys int
}

// NewEphemeralKeyManager generates keys that only live in memory. Every token
// becomes unverifiable when the process restarts.
func NewEphemeralKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	km := &KeyManager{KeySet: NewKeySet()}

	for i := range clampNumKeys(opts.NumKeys) {
		_, signer, err := generateSigner(opts.RSABits)
		if err != nil {
			return nil, fmt.Errorf("jwtx: generate signer %d: %w", i+1, err)
		}
		if err := km.AddSigner(signer); err != nil {
			return nil, err
		}
	}
	return km, nil
}

// NewStaticKeyManager wraps signers built elsewhere, mostly for tests.
func NewStaticKeyManager(signers ...Signer) (*KeyManager, error) {
	km := &KeyManager{KeySet: NewKeySet()}
	for _, s := range signers {
		if err := km.AddSigner(s); err != nil {
			return nil, err
		}
	}
	return km, nil
}

// Algorithm is always RS256.
func (km *KeyManager) Algorithm() string { return AlgorithmRS256 }

// IsReady reports whether there is something to sign with.
func (km *KeyManager) IsReady() bool {
	return km.NumSigners() > 0 && km.KeySet.IsReady()
}

// GetSigner picks one active signer at random.
func (km *KeyManager) GetSigner() Signer {
	km.mu.RLock()
	defer km.mu.RUnlock()

	switch len(km.signers) {
	case 0:
		return nil
	case 1:
		return km.signers[0]
	}
	return km.signers[rand.IntN(len(km.signers))] // #nosec G404 - key choice is not a secret
}

// Encode signs claims with one of the active keys.
func (km *KeyManager) Encode(claims jwt.Claims) (string, error) {
	s := km.GetSigner()
	if s == nil {
		return "", errors.New("jwtx: no active signing key")
	}
	return s.Sign(claims)
}

// Decode verifies token against every known key, retired ones included.
func (km *KeyManager) Decode(token string, claims jwt.Claims, opts ...DecodeOption) error {
	return km.KeySet.Decode(token, claims, opts...)
}

func (km *KeyManager) NumSigners() int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return len(km.signers)
}

// AddSigner makes signer active and publishes its public key.
func (km *KeyManager) AddSigner(signer Signer) error {
	if signer == nil {
		return errors.New("jwtx: signer cannot be nil")
	}

	km.mu.Lock()
	defer km.mu.Unlock()

	if err := km.KeySet.AddSigner(signer); err != nil {
		return fmt.Errorf("jwtx: add signer to keyset: %w", err)
	}
	km.signers = append(km.signers, signer)
	return nil
}

// RetireSignerByKid stops signing with kid. The public key stays published.
// The last active key cannot be retired.
func (km *KeyManager) RetireSignerByKid(kid string) error {
	km.mu.Lock()
	defer km.mu.Unlock()

	idx := -1
	for i, s := range km.signers {
		if s.KID() == kid {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("jwtx: signer with kid %q not found", kid)
	}
	if len(km.signers) <= 1 {
		return errors.New("jwtx: cannot retire the last signing key")
	}

	km.signers = append(km.signers[:idx:idx], km.signers[idx+1:]...)
	return nil
}

// GetSigners returns a copy of the active signers.
func (km *KeyManager) GetSigners() []Signer {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return append([]Signer(nil), km.signers...)
}

func clampNumKeys(n int) int {
	switch {
	case n <= 0:
		return defaultNumKeys
	case n > maxNumKeys:
		return maxNumKeys
	}
	return n
}

// generateSigner returns a fresh key both as PEM (for storage) and as a signer.
func generateSigner(bits int) ([]byte, Signer, error) {
	if bits == 0 {
		bits = defaultRSABits
	}
	kid, err := NewKeyID()
	if err != nil {
		return nil, nil, err
	}
	pemData, err := cryptox.GenerateRSAKey(bits)
	if err != nil {
		return nil, nil, err
	}
	signer, err := NewSignerRS256(kid, pemData)
	if err != nil {
		return nil, nil, err
	}
	return pemData, signer, nil
}

// NewKeyID returns "idp-<128 bit token>".
func NewKeyID() (string, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return "", fmt.Errorf("jwtx: generate key id: %w", err)
	}
	return "idp-" + token, nil
}
