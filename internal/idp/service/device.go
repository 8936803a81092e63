package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/domain"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/metrics"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/store"
	"github.com/aussiebroadwan/bartab-idp/pkg/cryptox"
	"github.com/aussiebroadwan/bartab-idp/pkg/slogx"
)

// DeviceService runs the RFC 8628 device authorization grant up to the
// point where the device starts polling the token endpoint.
type DeviceService struct {
	Store store.Store

	// VerificationURI is shown to the user; AuthorizeURL is the
	// authorization endpoint a resolved user code is sent to.
	VerificationURI string
	AuthorizeURL    string

	Metrics *metrics.Metrics
	Clock   func() time.Time
}

// StartDeviceFlow registers a pending device for clientID. The device code
// is returned raw exactly once; only its fingerprint is stored.
func (s *DeviceService) StartDeviceFlow(ctx context.Context, clientID, scope string) (*domain.DeviceAuthorization, error) {
	log := slogx.FromContext(ctx)
	now := nowUTC(s.Clock)

	var out *domain.DeviceAuthorization
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		client, err := tx.Clients().GetClientByID(ctx, clientID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrClientNotFound
			}
			return err
		}
		if !client.AllowsGrantType(string(domain.GrantDeviceCode)) {
			return ErrUnauthorizedClient
		}

		scopes := dedupe(strings.Fields(scope))
		if len(scopes) == 0 {
			scopes = slices.Clone(client.Scopes)
		}
		if !isSubset(scopes, client.Scopes) {
			return ErrClientScopes
		}

		out, err = store.CreateWithUniqueKey(ctx, store.DefaultUniqueKeyAttempts, func(ctx context.Context) (*domain.DeviceAuthorization, error) {
			deviceCode, err := cryptox.GenerateToken(cryptox.TokenSize256)
			if err != nil {
				return nil, err
			}
			userCode, err := cryptox.GenerateUserCode()
			if err != nil {
				return nil, err
			}

			da := &domain.DeviceAuthorization{
				DeviceCode:              deviceCode,
				UserCode:                userCode,
				VerificationURI:         s.VerificationURI,
				VerificationURIComplete: appendQuery(s.VerificationURI, [2]string{userCodeParam, userCode}),
				ExpiresIn:               seconds(domain.DeviceCodeLifetime),
				Interval:                seconds(domain.DevicePollInterval),
			}
			err = tx.Devices().CreateDevice(ctx, domain.Device{
				DeviceCode:              cryptox.FingerprintToken(deviceCode),
				UserCode:                userCode,
				ClientID:                client.ID,
				Scopes:                  scopes,
				VerificationURI:         da.VerificationURI,
				VerificationURIComplete: da.VerificationURIComplete,
				CreatedAt:               now,
				ExpiresIn:               da.ExpiresIn,
				Interval:                da.Interval,
			})
			if err != nil {
				return nil, err
			}
			return da, nil
		})
		return err
	})
	if err != nil {
		log.Warn("device authorization rejected", "client_id", clientID, "err", err)
		s.Metrics.Failure("device_authorization", Reason(err))
		return nil, err
	}

	log.Info("device authorization started", "client_id", clientID)
	return out, nil
}

// ResolveUserCode turns a user code typed in by the user into the
// authorization URL that approves the device.
func (s *DeviceService) ResolveUserCode(ctx context.Context, userCode string) (string, error) {
	userCode = NormalizeUserCode(userCode)

	dev, err := s.Store.Devices().GetByUserCode(ctx, userCode)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrUserCodeNotFound
		}
		return "", err
	}
	if dev.IsExpired(nowUTC(s.Clock)) {
		return "", ErrUserCodeNotFound
	}

	client, err := s.Store.Clients().GetClientByID(ctx, dev.ClientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrClientNotFound
		}
		return "", err
	}
	if len(client.RedirectURIs) == 0 {
		return "", ErrClientRedirectURI
	}

	return appendQuery(s.AuthorizeURL,
		[2]string{"client_id", client.ID},
		[2]string{"redirect_uri", client.RedirectURIs[0]},
		[2]string{"response_type", string(ResponseTypeDevice)},
		[2]string{"scope", userCodeScope(userCode)},
	), nil
}

// Cancel drops the pending device for userCode. Cancelling a code that is
// already gone succeeds.
func (s *DeviceService) Cancel(ctx context.Context, clientID, userCode string) error {
	userCode = NormalizeUserCode(userCode)

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Clients().GetClientByID(ctx, clientID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrClientNotFound
			}
			return err
		}

		dev, err := tx.Devices().GetByUserCode(ctx, userCode)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return err
		}
		if dev.ClientID != clientID {
			return ErrUserCodeNotFound
		}
		return tx.Devices().DeleteByUserCode(ctx, userCode)
	})
	if err != nil {
		return fmt.Errorf("cancel device: %w", err)
	}
	return nil
}

// NormalizeUserCode uppercases code and drops the separators people type.
func NormalizeUserCode(code string) string {
	code = strings.ToUpper(code)
	return strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' {
			return -1
		}
		return r
	}, code)
}
