package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/domain"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/store"
	"github.com/aussiebroadwan/bartab-idp/pkg/cryptox"
)

// GrantService issues and redeems persistent grants. Keys passed in and out
// are the raw secrets; only their fingerprints are stored.
//
// A GrantService works on whatever Store it holds. Inside a transaction use
// With(tx) so every call joins it.
type GrantService struct {
	Store store.Store
	Clock func() time.Time
}

// With returns a copy of s bound to st, usually a transaction.
func (s GrantService) With(st store.Store) GrantService {
	s.Store = st
	return s
}

// IssueGrant stores g under a freshly generated 32 byte key and returns the
// raw key. The key is regenerated when its fingerprint collides with an
// existing grant. The grant is visible to other callers once repo's
// transaction commits.
func (s GrantService) IssueGrant(ctx context.Context, repo store.PersistentGrants, g domain.PersistentGrant) (string, error) {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = nowUTC(s.Clock)
	}

	return store.CreateWithUniqueKey(ctx, store.DefaultUniqueKeyAttempts, func(ctx context.Context) (string, error) {
		raw, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return "", err
		}
		g.Key = cryptox.FingerprintToken(raw)
		if err := repo.CreateGrant(ctx, g); err != nil {
			return "", err
		}
		return raw, nil
	})
}

// FindByKey returns the unexpired grant for the raw key.
func (s GrantService) FindByKey(ctx context.Context, key string) (domain.PersistentGrant, error) {
	g, err := s.Store.PersistentGrants().GetGrant(ctx, cryptox.FingerprintToken(key))
	if err != nil {
		return domain.PersistentGrant{}, mapGrantErr(err)
	}
	if g.IsExpired(nowUTC(s.Clock)) {
		return domain.PersistentGrant{}, ErrPersistentGrantNotFound
	}
	return g, nil
}

func (s GrantService) DeleteByKey(ctx context.Context, key string) error {
	return s.Store.PersistentGrants().DeleteGrant(ctx, cryptox.FingerprintToken(key))
}

func (s GrantService) DeleteByClientAndSubject(ctx context.Context, clientID string, subjectID int64) (int64, error) {
	return s.Store.PersistentGrants().DeleteByClientAndSubject(ctx, clientID, subjectID)
}

// Exists reports an unexpired grant of type gt whose Data equals data.
func (s GrantService) Exists(ctx context.Context, data string, gt domain.GrantType) (bool, error) {
	return s.Store.PersistentGrants().Exists(ctx, data, gt, nowUTC(s.Clock))
}

// Redeem deletes and returns the grant for the raw key in one statement, so
// a grant is handed out at most once. An expired grant is still removed but
// reported as ErrPersistentGrantNotFound.
func (s GrantService) Redeem(ctx context.Context, key string, gt domain.GrantType) (domain.PersistentGrant, error) {
	g, err := s.Store.PersistentGrants().Redeem(ctx, cryptox.FingerprintToken(key), gt)
	return s.checkRedeemed(g, err)
}

// RedeemByData is Redeem for grants looked up by their Data.
func (s GrantService) RedeemByData(ctx context.Context, data string, gt domain.GrantType) (domain.PersistentGrant, error) {
	g, err := s.Store.PersistentGrants().RedeemByData(ctx, data, gt)
	return s.checkRedeemed(g, err)
}

func (s GrantService) SweepExpired(ctx context.Context) (int64, error) {
	return s.Store.PersistentGrants().SweepExpired(ctx, nowUTC(s.Clock))
}

func (s GrantService) checkRedeemed(g domain.PersistentGrant, err error) (domain.PersistentGrant, error) {
	if err != nil {
		return domain.PersistentGrant{}, mapGrantErr(err)
	}
	if g.IsExpired(nowUTC(s.Clock)) {
		return domain.PersistentGrant{}, ErrPersistentGrantNotFound
	}
	return g, nil
}

func mapGrantErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrPersistentGrantNotFound
	}
	return fmt.Errorf("persistent grant: %w", err)
}
