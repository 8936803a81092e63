package service

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/domain"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/store"
	"github.com/aussiebroadwan/bartab-idp/pkg/cryptox"
	"github.com/aussiebroadwan/bartab-idp/pkg/jwtx"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

var totpOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// authenticateUser checks a username/password pair and, for users with a
// TOTP secret, the one-time code. It returns the user and the amr values
// describing how they authenticated.
func authenticateUser(ctx context.Context, users store.Users, username, password, code string, now time.Time) (domain.User, []string, error) {
	user, err := users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, nil, ErrUserNotFound
		}
		return domain.User{}, nil, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrWrongPassword) || errors.Is(err, cryptox.ErrInvalidInput) {
			return domain.User{}, nil, ErrWrongPassword
		}
		return domain.User{}, nil, err
	}

	amr := []string{jwtx.AMRPassword}
	if user.MFAEnabled() {
		if err := verifyTOTP(*user.MFASecret, code, now); err != nil {
			return domain.User{}, nil, err
		}
		amr = append(amr, jwtx.AMROTP)
	}
	return user, amr, nil
}

func verifyTOTP(secret, code string, now time.Time) error {
	if code == "" {
		return ErrMFARequired
	}
	ok, err := totp.ValidateCustom(code, secret, now, totpOpts)
	if err != nil || !ok {
		return ErrInvalidOTP
	}
	return nil
}
