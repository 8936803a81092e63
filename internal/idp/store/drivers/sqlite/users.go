package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/domain"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/store/drivers/sqlite/gen"
)

type usersRepo struct {
	q *gen.Queries
}

func (r *usersRepo) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	row, err := r.q.GetUserByID(ctx, id)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return r.hydrate(ctx, row)
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	row, err := r.q.GetUserByUsername(ctx, username)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return r.hydrate(ctx, row)
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.q.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	users := make([]domain.User, len(rows))
	for i, row := range rows {
		if users[i], err = r.hydrate(ctx, row); err != nil {
			return nil, err
		}
	}
	return users, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) (int64, error) {
	now := unix(time.Now())
	id, err := r.q.CreateUser(ctx, gen.CreateUserParams{
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		MfaSecret:    mapOptionalString(u.MFASecret),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return 0, mapConstraint(err)
	}
	if err := r.SetRoles(ctx, id, u.Roles); err != nil {
		return 0, err
	}
	if err := r.SetClaims(ctx, id, u.Claims); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	return requireRows(r.q.UpdateUserPasswordHash(ctx, gen.UpdateUserPasswordHashParams{
		PasswordHash: hash,
		UpdatedAt:    unix(time.Now()),
		ID:           id,
	}))
}

func (r *usersRepo) UpdateMFASecret(ctx context.Context, id int64, secret *string) error {
	return requireRows(r.q.UpdateUserMFASecret(ctx, gen.UpdateUserMFASecretParams{
		MfaSecret: mapOptionalString(secret),
		UpdatedAt: unix(time.Now()),
		ID:        id,
	}))
}

func (r *usersRepo) SetClaims(ctx context.Context, id int64, claims map[domain.ClaimType]string) error {
	if err := r.q.DeleteUserClaims(ctx, id); err != nil {
		return err
	}
	for t, v := range claims {
		err := r.q.CreateUserClaim(ctx, gen.CreateUserClaimParams{UserID: id, Type: string(t), Value: v})
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *usersRepo) SetRoles(ctx context.Context, id int64, roles []string) error {
	if err := r.q.DeleteUserRoles(ctx, id); err != nil {
		return err
	}
	for _, role := range splitFields(joinFields(roles)) {
		if err := r.q.CreateUserRole(ctx, gen.CreateUserRoleParams{UserID: id, Role: role}); err != nil {
			return err
		}
	}
	return nil
}

func (r *usersRepo) DeleteUser(ctx context.Context, id int64) error {
	return requireRows(r.q.DeleteUser(ctx, id))
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	count, err := r.q.CountUsers(ctx)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

func (r *usersRepo) hydrate(ctx context.Context, row gen.User) (domain.User, error) {
	u := domain.User{
		ID:           row.ID,
		Username:     row.Username,
		PasswordHash: row.PasswordHash,
		MFASecret:    mapNullString(row.MfaSecret),
		CreatedAt:    fromUnix(row.CreatedAt),
		UpdatedAt:    fromUnix(row.UpdatedAt),
	}

	roles, err := r.q.ListUserRoles(ctx, row.ID)
	if err != nil {
		return domain.User{}, err
	}
	if len(roles) > 0 {
		u.Roles = roles
	}

	claims, err := r.q.ListUserClaims(ctx, row.ID)
	if err != nil {
		return domain.User{}, err
	}
	u.Claims = make(map[domain.ClaimType]string, len(claims))
	for _, c := range claims {
		u.Claims[domain.ClaimType(c.Type)] = c.Value
	}
	return u, nil
}
