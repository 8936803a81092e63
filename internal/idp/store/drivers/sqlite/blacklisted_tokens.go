package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/domain"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/store/drivers/sqlite/gen"
)

type blacklistRepo struct {
	q *gen.Queries
}

func (r *blacklistRepo) Add(ctx context.Context, t domain.BlacklistedToken) error {
	return r.q.CreateBlacklistedToken(ctx, gen.CreateBlacklistedTokenParams{
		Fingerprint: t.Fingerprint,
		ExpiresAt:   unix(t.ExpiresAt),
	})
}

func (r *blacklistRepo) Contains(ctx context.Context, fingerprint string, now time.Time) (bool, error) {
	n, err := r.q.CountLiveBlacklistedToken(ctx, gen.CountLiveBlacklistedTokenParams{
		Fingerprint: fingerprint,
		Now:         unix(now),
	})
	return n > 0, err
}

func (r *blacklistRepo) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.q.DeleteExpiredBlacklistedTokens(ctx, unix(now))
}
