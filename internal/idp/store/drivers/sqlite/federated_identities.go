package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/domain"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/store/drivers/sqlite/gen"
)

type federatedRepo struct {
	q *gen.Queries
}

func (r *federatedRepo) GetByProviderSubject(ctx context.Context, provider, subject string) (domain.FederatedIdentity, error) {
	row, err := r.q.GetFederatedIdentity(ctx, gen.GetFederatedIdentityParams{Provider: provider, Subject: subject})
	if err != nil {
		return domain.FederatedIdentity{}, mapNotFound(err)
	}
	return mapFederatedIdentity(row), nil
}

func (r *federatedRepo) Link(ctx context.Context, fi domain.FederatedIdentity) error {
	if fi.CreatedAt.IsZero() {
		fi.CreatedAt = time.Now()
	}
	err := r.q.CreateFederatedIdentity(ctx, gen.CreateFederatedIdentityParams{
		Provider:  fi.Provider,
		Subject:   fi.Subject,
		UserID:    fi.UserID,
		Email:     fi.Email,
		CreatedAt: unix(fi.CreatedAt),
	})
	return mapConstraint(err)
}

func (r *federatedRepo) ListByUser(ctx context.Context, userID int64) ([]domain.FederatedIdentity, error) {
	rows, err := r.q.ListFederatedIdentitiesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.FederatedIdentity, len(rows))
	for i, row := range rows {
		out[i] = mapFederatedIdentity(row)
	}
	return out, nil
}

func mapFederatedIdentity(row gen.FederatedIdentity) domain.FederatedIdentity {
	return domain.FederatedIdentity{
		Provider:  row.Provider,
		Subject:   row.Subject,
		UserID:    row.UserID,
		Email:     row.Email,
		CreatedAt: fromUnix(row.CreatedAt),
	}
}
