package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/domain"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/store"
	"github.com/aussiebroadwan/bartab-idp/pkg/cryptox"
	"github.com/aussiebroadwan/bartab-idp/pkg/jwtx"
)

var ErrLastSigningKey = errors.New("cannot retire the last active signing key")

// KeyRotationService rotates and retires JWT signing keys at runtime.
//
// In ephemeral mode (Store == nil) keys live in the KeyManager only and
// retired keys keep verifying until restart. In persistent mode keys are
// sealed into the store and retired keys verify for GracePeriod.
type KeyRotationService struct {
	Store       store.Store // nil for ephemeral mode
	KeyManager  *jwtx.KeyManager
	RSABits     int
	GracePeriod time.Duration
	Clock       func() time.Time
}

type RotateKeyRequest struct {
	// RetireExisting retires every active key once the new one is in place.
	RetireExisting bool
}

type RotateKeyResponse struct {
	NewKid      string   `json:"new_kid"`
	RetiredKids []string `json:"retired_kids,omitempty"`
	ActiveKeys  int      `json:"active_keys"`
}

// RotateKey adds a new signing key and optionally retires the others.
func (s *KeyRotationService) RotateKey(ctx context.Context, req RotateKeyRequest) (*RotateKeyResponse, error) {
	if s.KeyManager == nil {
		return nil, errors.New("KeyManager is required")
	}

	now := nowUTC(s.Clock)
	grace := s.gracePeriod()

	var (
		signer  jwtx.Signer
		retired []string
	)
	if s.Store == nil {
		kid, err := jwtx.NewKeyID()
		if err != nil {
			return nil, fmt.Errorf("generate key id: %w", err)
		}
		pemData, err := cryptox.GenerateRSAKey(s.rsaBits())
		if err != nil {
			return nil, fmt.Errorf("generate key pair: %w", err)
		}
		if signer, err = jwtx.NewSignerRS256(kid, pemData); err != nil {
			return nil, fmt.Errorf("create signer: %w", err)
		}
		if req.RetireExisting {
			for _, old := range s.KeyManager.GetSigners() {
				retired = append(retired, old.KID())
			}
		}
	} else {
		rec, sig, err := jwtx.NewSigningKeyRecord(s.rsaBits(), grace, now)
		if err != nil {
			return nil, err
		}
		signer = sig

		err = s.Store.WithTx(ctx, func(tx store.Tx) error {
			if err := tx.SigningKeys().CreateSigningKey(ctx, store.SigningKeyFromRecord(rec)); err != nil {
				return fmt.Errorf("create signing key: %w", err)
			}
			if !req.RetireExisting {
				return nil
			}
			active, err := tx.SigningKeys().ListActiveSigningKeys(ctx)
			if err != nil {
				return err
			}
			for _, k := range active {
				if k.Kid == rec.Kid {
					continue
				}
				if err := tx.SigningKeys().RetireSigningKey(ctx, k.Kid, now, now.Add(grace)); err != nil {
					return fmt.Errorf("retire signing key %s: %w", k.Kid, err)
				}
				retired = append(retired, k.Kid)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if err := s.KeyManager.AddSigner(signer); err != nil {
		return nil, err
	}
	for _, kid := range retired {
		// A key retired in the store may not be loaded in this process.
		_ = s.KeyManager.RetireSignerByKid(kid)
	}

	return &RotateKeyResponse{
		NewKid:      signer.KID(),
		RetiredKids: retired,
		ActiveKeys:  s.KeyManager.NumSigners(),
	}, nil
}

// RetireKey stops kid from signing. It keeps verifying for the grace period.
func (s *KeyRotationService) RetireKey(ctx context.Context, kid string) error {
	if s.Store == nil {
		return s.KeyManager.RetireSignerByKid(kid)
	}

	now := nowUTC(s.Clock)
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		active, err := tx.SigningKeys().ListActiveSigningKeys(ctx)
		if err != nil {
			return err
		}
		if len(active) <= 1 {
			return ErrLastSigningKey
		}
		return tx.SigningKeys().RetireSigningKey(ctx, kid, now, now.Add(s.gracePeriod()))
	})
	if err != nil {
		return err
	}

	if s.KeyManager != nil {
		_ = s.KeyManager.RetireSignerByKid(kid)
	}
	return nil
}

// ListSigningKeys returns the stored keys that still verify, newest first.
// In ephemeral mode it describes the loaded signers.
func (s *KeyRotationService) ListSigningKeys(ctx context.Context) ([]domain.SigningKey, error) {
	if s.Store != nil {
		return s.Store.SigningKeys().ListAllSigningKeys(ctx)
	}

	signers := s.KeyManager.GetSigners()
	out := make([]domain.SigningKey, len(signers))
	for i, sig := range signers {
		out[i] = domain.SigningKey{Kid: sig.KID(), Algorithm: jwtx.AlgorithmRS256}
	}
	return out, nil
}

func (s *KeyRotationService) rsaBits() int {
	if s.RSABits == 0 {
		return 4096
	}
	return s.RSABits
}

func (s *KeyRotationService) gracePeriod() time.Duration {
	if s.GracePeriod <= 0 {
		return jwtx.DefaultKeyGracePeriod
	}
	return s.GracePeriod
}
