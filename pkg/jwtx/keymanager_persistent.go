package jwtx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/bartab-idp/pkg/cryptox"
	"github.com/aussiebroadwan/bartab-idp/pkg/idx"
)

// DefaultKeyGracePeriod is how long a retired key keeps verifying tokens.
const DefaultKeyGracePeriod = 30 * 24 * time.Hour

// SigningKeyRecord is a signing key as persisted. PrivateKeyEncrypted holds
// the PEM sealed with cryptox.EncryptPrivateKey.
type SigningKeyRecord struct {
	ID                  string
	Kid                 string
	Algorithm           string
	PrivateKeyEncrypted []byte
	CreatedAt           time.Time
	RetiredAt           *time.Time
	ExpiresAt           time.Time
}

// KeyStore is the persistence the key manager needs. The store package
// adapts its signing key repository to it.
type KeyStore interface {
	// ListAllSigningKeys includes retired keys still inside their grace period.
	ListAllSigningKeys(ctx context.Context) ([]SigningKeyRecord, error)

	// ListActiveSigningKeys returns keys that may sign.
	ListActiveSigningKeys(ctx context.Context) ([]SigningKeyRecord, error)

	CreateSigningKey(ctx context.Context, key SigningKeyRecord) error
}

// PersistentKeyManagerOptions configures NewPersistentKeyManager.
type PersistentKeyManagerOptions struct {
	Store       KeyStore
	RSABits     int
	NumKeys     int
	GracePeriod time.Duration
}

// NewPersistentKeyManager loads every stored key into the key set, activates
// the non-retired ones and tops the active set up to NumKeys with new keys.
func NewPersistentKeyManager(ctx context.Context, opts PersistentKeyManagerOptions) (*KeyManager, error) {
	if opts.Store == nil {
		return nil, errors.New("jwtx: Store is required for persistent key manager")
	}
	numKeys := clampNumKeys(opts.NumKeys)
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = DefaultKeyGracePeriod
	}

	all, err := opts.Store.ListAllSigningKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("jwtx: load signing keys: %w", err)
	}
	active, err := opts.Store.ListActiveSigningKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("jwtx: load active signing keys: %w", err)
	}

	km := &KeyManager{KeySet: NewKeySet()}

	loaded := make(map[string]Signer, len(all))
	for _, rec := range all {
		signer, err := OpenSigningKeyRecord(rec)
		if err != nil {
			return nil, err
		}
		if err := km.KeySet.AddSigner(signer); err != nil {
			return nil, fmt.Errorf("jwtx: add key %s to keyset: %w", rec.Kid, err)
		}
		loaded[rec.Kid] = signer
	}

	for _, rec := range active {
		signer, ok := loaded[rec.Kid]
		if !ok {
			if signer, err = OpenSigningKeyRecord(rec); err != nil {
				return nil, err
			}
		}
		if err := km.AddSigner(signer); err != nil {
			return nil, err
		}
	}

	for km.NumSigners() < numKeys {
		rec, signer, err := NewSigningKeyRecord(opts.RSABits, opts.GracePeriod, time.Now().UTC())
		if err != nil {
			return nil, err
		}
		if err := opts.Store.CreateSigningKey(ctx, rec); err != nil {
			return nil, fmt.Errorf("jwtx: store new key: %w", err)
		}
		if err := km.AddSigner(signer); err != nil {
			return nil, err
		}
	}

	return km, nil
}

// NewSigningKeyRecord generates a key and seals it for storage. ExpiresAt is
// provisional; retiring the key moves it to retired_at + grace.
func NewSigningKeyRecord(rsaBits int, grace time.Duration, now time.Time) (SigningKeyRecord, Signer, error) {
	pemData, signer, err := generateSigner(rsaBits)
	if err != nil {
		return SigningKeyRecord{}, nil, fmt.Errorf("jwtx: generate key: %w", err)
	}
	sealed, err := cryptox.EncryptPrivateKey(pemData)
	if err != nil {
		return SigningKeyRecord{}, nil, fmt.Errorf("jwtx: encrypt key: %w", err)
	}

	return SigningKeyRecord{
		ID:                  idx.New().String(),
		Kid:                 signer.KID(),
		Algorithm:           AlgorithmRS256,
		PrivateKeyEncrypted: sealed,
		CreatedAt:           now,
		ExpiresAt:           now.Add(grace),
	}, signer, nil
}

// OpenSigningKeyRecord decrypts a stored key into a signer.
func OpenSigningKeyRecord(rec SigningKeyRecord) (Signer, error) {
	if rec.Algorithm != AlgorithmRS256 {
		return nil, fmt.Errorf("jwtx: key %s: unsupported algorithm %q", rec.Kid, rec.Algorithm)
	}
	pemData, err := cryptox.DecryptPrivateKey(rec.PrivateKeyEncrypted)
	if err != nil {
		return nil, fmt.Errorf("jwtx: decrypt key %s: %w", rec.Kid, err)
	}
	signer, err := NewSignerRS256(rec.Kid, pemData)
	if err != nil {
		return nil, fmt.Errorf("jwtx: load key %s: %w", rec.Kid, err)
	}
	return signer, nil
}
