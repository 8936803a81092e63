package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/domain"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/store/drivers/sqlite/gen"
)

type grantsRepo struct {
	q *gen.Queries
}

func (r *grantsRepo) CreateGrant(ctx context.Context, g domain.PersistentGrant) error {
	err := r.q.CreatePersistentGrant(ctx, gen.CreatePersistentGrantParams{
		Key:        g.Key,
		ClientID:   g.ClientID,
		SubjectID:  mapSubject(g.SubjectID),
		GrantType:  string(g.GrantType),
		Data:       g.Data,
		Scopes:     joinFields(g.Scopes),
		SessionID:  g.SessionID,
		CreatedAt:  unix(g.CreatedAt),
		Expiration: g.Expiration,
	})
	return mapConstraint(err)
}

func (r *grantsRepo) GetGrant(ctx context.Context, key string) (domain.PersistentGrant, error) {
	row, err := r.q.GetPersistentGrant(ctx, key)
	if err != nil {
		return domain.PersistentGrant{}, mapNotFound(err)
	}
	return mapGrant(row), nil
}

func (r *grantsRepo) Exists(ctx context.Context, data string, gt domain.GrantType, now time.Time) (bool, error) {
	n, err := r.q.CountLivePersistentGrantsByData(ctx, gen.CountLivePersistentGrantsByDataParams{
		Data:      data,
		GrantType: string(gt),
		Now:       unix(now),
	})
	return n > 0, err
}

func (r *grantsRepo) Redeem(ctx context.Context, key string, gt domain.GrantType) (domain.PersistentGrant, error) {
	row, err := r.q.RedeemPersistentGrant(ctx, gen.RedeemPersistentGrantParams{Key: key, GrantType: string(gt)})
	if err != nil {
		return domain.PersistentGrant{}, mapNotFound(err)
	}
	return mapGrant(row), nil
}

func (r *grantsRepo) RedeemByData(ctx context.Context, data string, gt domain.GrantType) (domain.PersistentGrant, error) {
	row, err := r.q.RedeemPersistentGrantByData(ctx, gen.RedeemPersistentGrantByDataParams{
		Data:      data,
		GrantType: string(gt),
	})
	if err != nil {
		return domain.PersistentGrant{}, mapNotFound(err)
	}
	return mapGrant(row), nil
}

func (r *grantsRepo) DeleteGrant(ctx context.Context, key string) error {
	return r.q.DeletePersistentGrant(ctx, key)
}

func (r *grantsRepo) DeleteByClientAndSubject(ctx context.Context, clientID string, subjectID int64) (int64, error) {
	return r.q.DeletePersistentGrantsByClientSubject(ctx, gen.DeletePersistentGrantsByClientSubjectParams{
		ClientID:  clientID,
		SubjectID: mapSubject(subjectID),
	})
}

func (r *grantsRepo) ListBySubject(ctx context.Context, subjectID int64) ([]domain.PersistentGrant, error) {
	rows, err := r.q.ListPersistentGrantsBySubject(ctx, mapSubject(subjectID))
	if err != nil {
		return nil, err
	}
	grants := make([]domain.PersistentGrant, len(rows))
	for i, row := range rows {
		grants[i] = mapGrant(row)
	}
	return grants, nil
}

func (r *grantsRepo) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.q.DeleteExpiredPersistentGrants(ctx, unix(now))
}

func mapGrant(row gen.PersistentGrant) domain.PersistentGrant {
	return domain.PersistentGrant{
		Key:        row.Key,
		ClientID:   row.ClientID,
		SubjectID:  row.SubjectID.Int64,
		GrantType:  domain.GrantType(row.GrantType),
		Data:       row.Data,
		Scopes:     splitFields(row.Scopes),
		SessionID:  row.SessionID,
		CreatedAt:  fromUnix(row.CreatedAt),
		Expiration: row.Expiration,
	}
}
