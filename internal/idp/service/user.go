package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/domain"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/store"
	"github.com/aussiebroadwan/bartab-idp/pkg/cryptox"
	"github.com/aussiebroadwan/bartab-idp/pkg/slogx"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

type UserService struct {
	Store store.Store

	// Issuer names the account in authenticator apps.
	Issuer string
}

type RegisterUserRequest struct {
	Username string
	Password string
	Roles    []string
	Claims   map[domain.ClaimType]string
}

// Register creates a user and returns its id.
func (s *UserService) Register(ctx context.Context, req RegisterUserRequest) (int64, error) {
	if req.Username == "" || req.Password == "" {
		return 0, ErrInvalidRequest
	}

	hash, err := cryptox.HashPassword(req.Password)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	id, err := s.Store.Users().CreateUser(ctx, domain.User{
		Username:     req.Username,
		PasswordHash: hash,
		Roles:        req.Roles,
		Claims:       req.Claims,
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return 0, ErrUserExists
		}
		return 0, err
	}

	slogx.FromContext(ctx).Info("user registered", "user_id", id, "username", req.Username)
	return id, nil
}

func (s *UserService) GetUser(ctx context.Context, id int64) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	return u, err
}

func (s *UserService) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	return u, err
}

func (s *UserService) SetPassword(ctx context.Context, id int64, password string) error {
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return notFoundAsUser(s.Store.Users().UpdatePasswordHash(ctx, id, hash))
}

// SetClaims replaces every claim of the user.
func (s *UserService) SetClaims(ctx context.Context, id int64, claims map[domain.ClaimType]string) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Users().GetUserByID(ctx, id); err != nil {
			return notFoundAsUser(err)
		}
		return tx.Users().SetClaims(ctx, id, claims)
	})
}

func (s *UserService) AssignRoles(ctx context.Context, id int64, roles []string) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Users().GetUserByID(ctx, id); err != nil {
			return notFoundAsUser(err)
		}
		return tx.Users().SetRoles(ctx, id, dedupe(roles))
	})
}

// EnableTOTP generates and stores a TOTP secret for the user. From then on
// every password login also needs a one-time code. The returned key holds
// the otpauth:// URL for enrolment.
func (s *UserService) EnableTOTP(ctx context.Context, id int64) (*otp.Key, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: u.Username,
		Period:      totpOpts.Period,
		Digits:      totpOpts.Digits,
		Algorithm:   totpOpts.Algorithm,
	})
	if err != nil {
		return nil, fmt.Errorf("generate TOTP key: %w", err)
	}

	secret := key.Secret()
	if err := s.Store.Users().UpdateMFASecret(ctx, id, &secret); err != nil {
		return nil, fmt.Errorf("store TOTP secret: %w", err)
	}
	return key, nil
}

func (s *UserService) DisableTOTP(ctx context.Context, id int64) error {
	return notFoundAsUser(s.Store.Users().UpdateMFASecret(ctx, id, nil))
}

func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	return notFoundAsUser(s.Store.Users().DeleteUser(ctx, id))
}

func notFoundAsUser(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}
