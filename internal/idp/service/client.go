package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/domain"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/store"
	"github.com/aussiebroadwan/bartab-idp/pkg/cryptox"
	"github.com/aussiebroadwan/bartab-idp/pkg/idx"
	"github.com/aussiebroadwan/bartab-idp/pkg/slogx"
)

type ClientService struct {
	Store store.Store
	Clock func() time.Time
}

// CreateClientRequest describes a client to register. Client.ID is
// generated when empty.
type CreateClientRequest struct {
	Client       domain.Client
	Confidential bool

	// Secret is used as the first shared secret of a confidential client.
	// A random one is generated when empty.
	Secret string
}

// CreateClient registers a client. For confidential clients it returns the
// plaintext secret, which is not recoverable afterwards.
func (s *ClientService) CreateClient(ctx context.Context, req CreateClientRequest) (domain.Client, string, error) {
	l := slogx.FromContext(ctx)
	now := nowUTC(s.Clock)

	c := req.Client
	if c.ID == "" {
		c.ID = idx.New().String()
	}
	c.CreatedAt, c.UpdatedAt = now, now
	c.Secrets = nil

	var secret string
	if req.Confidential {
		secret = req.Secret
		if secret == "" {
			var err error
			if secret, err = cryptox.GenerateToken(cryptox.TokenSize256); err != nil {
				return domain.Client{}, "", fmt.Errorf("generate client secret: %w", err)
			}
		}
		hash, err := cryptox.HashPassword(secret)
		if err != nil {
			return domain.Client{}, "", fmt.Errorf("hash client secret: %w", err)
		}
		c.Secrets = []domain.ClientSecret{{
			ID:        idx.New().String(),
			ClientID:  c.ID,
			Hash:      hash,
			Type:      domain.SecretTypeShared,
			CreatedAt: now,
		}}
	}

	if err := s.Store.Clients().CreateClient(ctx, c); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Client{}, "", ErrClientExists
		}
		l.Error("failed to create client", "error", err)
		return domain.Client{}, "", err
	}

	l.Info("client created", "client_id", c.ID, "name", c.Name, "has_secret", req.Confidential)
	return c, secret, nil
}

func (s *ClientService) GetClient(ctx context.Context, clientID string) (domain.Client, error) {
	c, err := s.Store.Clients().GetClientByID(ctx, clientID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Client{}, ErrClientNotFound
	}
	return c, err
}

func (s *ClientService) ListClients(ctx context.Context) ([]domain.Client, error) {
	return s.Store.Clients().ListClients(ctx)
}

func (s *ClientService) DeleteClient(ctx context.Context, clientID string) error {
	err := s.Store.Clients().DeleteClient(ctx, clientID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrClientNotFound
	}
	if err == nil {
		slogx.FromContext(ctx).Info("client deleted", "client_id", clientID)
	}
	return err
}

// AddSecret generates an additional secret for clientID, for rotation.
// expiresAt may be nil for a secret that never expires.
func (s *ClientService) AddSecret(ctx context.Context, clientID string, expiresAt *time.Time) (string, error) {
	if _, err := s.GetClient(ctx, clientID); err != nil {
		return "", err
	}

	secret, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", fmt.Errorf("generate client secret: %w", err)
	}
	hash, err := cryptox.HashPassword(secret)
	if err != nil {
		return "", fmt.Errorf("hash client secret: %w", err)
	}

	err = s.Store.Clients().AddClientSecret(ctx, domain.ClientSecret{
		ID:        idx.New().String(),
		ClientID:  clientID,
		Hash:      hash,
		Type:      domain.SecretTypeShared,
		ExpiresAt: expiresAt,
		CreatedAt: nowUTC(s.Clock),
	})
	if err != nil {
		return "", err
	}
	return secret, nil
}
