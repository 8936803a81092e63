package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/domain"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/store/drivers/sqlite/gen"
)

type clientsRepo struct {
	q *gen.Queries
}

func (r *clientsRepo) GetClientByID(ctx context.Context, id string) (domain.Client, error) {
	row, err := r.q.GetClientByID(ctx, id)
	if err != nil {
		return domain.Client{}, mapNotFound(err)
	}
	return r.withSecrets(ctx, row)
}

func (r *clientsRepo) ListClients(ctx context.Context) ([]domain.Client, error) {
	rows, err := r.q.ListClients(ctx)
	if err != nil {
		return nil, err
	}

	clients := make([]domain.Client, len(rows))
	for i, row := range rows {
		if clients[i], err = r.withSecrets(ctx, row); err != nil {
			return nil, err
		}
	}
	return clients, nil
}

func (r *clientsRepo) CreateClient(ctx context.Context, c domain.Client) error {
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	err := r.q.CreateClient(ctx, gen.CreateClientParams{
		ID:                     c.ID,
		Name:                   c.Name,
		RedirectUris:           joinFields(c.RedirectURIs),
		PostLogoutRedirectUris: joinFields(c.PostLogoutRedirectURIs),
		Scopes:                 joinFields(c.Scopes),
		GrantTypes:             joinFields(c.GrantTypes),
		ResponseTypes:          joinResponseTypes(c.ResponseTypes),
		AccessTokenTtl:         seconds(c.AccessTokenTTL),
		RefreshTokenTtl:        seconds(c.RefreshTokenTTL),
		IDTokenTtl:             seconds(c.IDTokenTTL),
		AuthCodeTtl:            seconds(c.AuthCodeTTL),
		RefreshTokenUsage:      string(orUsage(c.RefreshTokenUsage)),
		RefreshTokenExpiration: string(orExpiration(c.RefreshTokenExpiration)),
		RequirePkce:            c.RequirePKCE,
		CreatedAt:              unix(c.CreatedAt),
		UpdatedAt:              unix(now),
	})
	if err != nil {
		return mapConstraint(err)
	}

	for _, s := range c.Secrets {
		s.ClientID = c.ID
		if err := r.AddClientSecret(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (r *clientsRepo) UpdateClient(ctx context.Context, c domain.Client) error {
	return requireRows(r.q.UpdateClient(ctx, gen.UpdateClientParams{
		Name:                   c.Name,
		RedirectUris:           joinFields(c.RedirectURIs),
		PostLogoutRedirectUris: joinFields(c.PostLogoutRedirectURIs),
		Scopes:                 joinFields(c.Scopes),
		GrantTypes:             joinFields(c.GrantTypes),
		ResponseTypes:          joinResponseTypes(c.ResponseTypes),
		AccessTokenTtl:         seconds(c.AccessTokenTTL),
		RefreshTokenTtl:        seconds(c.RefreshTokenTTL),
		IDTokenTtl:             seconds(c.IDTokenTTL),
		AuthCodeTtl:            seconds(c.AuthCodeTTL),
		RefreshTokenUsage:      string(orUsage(c.RefreshTokenUsage)),
		RefreshTokenExpiration: string(orExpiration(c.RefreshTokenExpiration)),
		RequirePkce:            c.RequirePKCE,
		UpdatedAt:              unix(time.Now()),
		ID:                     c.ID,
	}))
}

func (r *clientsRepo) DeleteClient(ctx context.Context, id string) error {
	return requireRows(r.q.DeleteClient(ctx, id))
}

func (r *clientsRepo) AddClientSecret(ctx context.Context, s domain.ClientSecret) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	if s.Type == "" {
		s.Type = domain.SecretTypeShared
	}
	err := r.q.CreateClientSecret(ctx, gen.CreateClientSecretParams{
		ID:        s.ID,
		ClientID:  s.ClientID,
		Hash:      s.Hash,
		Type:      s.Type,
		ExpiresAt: mapOptionalTime(s.ExpiresAt),
		CreatedAt: unix(s.CreatedAt),
	})
	return mapConstraint(err)
}

func (r *clientsRepo) DeleteClientSecret(ctx context.Context, clientID, secretID string) error {
	return requireRows(r.q.DeleteClientSecret(ctx, gen.DeleteClientSecretParams{
		ClientID: clientID,
		ID:       secretID,
	}))
}

func (r *clientsRepo) IsEmpty(ctx context.Context) (bool, error) {
	count, err := r.q.CountClients(ctx)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

func (r *clientsRepo) withSecrets(ctx context.Context, row gen.Client) (domain.Client, error) {
	c := mapClient(row)
	secrets, err := r.q.ListClientSecrets(ctx, row.ID)
	if err != nil {
		return domain.Client{}, err
	}
	for _, s := range secrets {
		c.Secrets = append(c.Secrets, domain.ClientSecret{
			ID:        s.ID,
			ClientID:  s.ClientID,
			Hash:      s.Hash,
			Type:      s.Type,
			ExpiresAt: mapNullTime(s.ExpiresAt),
			CreatedAt: fromUnix(s.CreatedAt),
		})
	}
	return c, nil
}

func mapClient(row gen.Client) domain.Client {
	return domain.Client{
		ID:                     row.ID,
		Name:                   row.Name,
		RedirectURIs:           splitFields(row.RedirectUris),
		PostLogoutRedirectURIs: splitFields(row.PostLogoutRedirectUris),
		Scopes:                 splitFields(row.Scopes),
		GrantTypes:             splitFields(row.GrantTypes),
		ResponseTypes:          splitResponseTypes(row.ResponseTypes),
		AccessTokenTTL:         time.Duration(row.AccessTokenTtl) * time.Second,
		RefreshTokenTTL:        time.Duration(row.RefreshTokenTtl) * time.Second,
		IDTokenTTL:             time.Duration(row.IDTokenTtl) * time.Second,
		AuthCodeTTL:            time.Duration(row.AuthCodeTtl) * time.Second,
		RefreshTokenUsage:      domain.RefreshTokenUsage(row.RefreshTokenUsage),
		RefreshTokenExpiration: domain.RefreshTokenExpiration(row.RefreshTokenExpiration),
		RequirePKCE:            row.RequirePkce,
		CreatedAt:              fromUnix(row.CreatedAt),
		UpdatedAt:              fromUnix(row.UpdatedAt),
	}
}

// Response types may hold spaces ("code id_token"), so they are comma joined.
func joinResponseTypes(v []string) string { return strings.Join(v, ",") }

func splitResponseTypes(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func seconds(d time.Duration) int64 { return int64(d / time.Second) }

func orUsage(u domain.RefreshTokenUsage) domain.RefreshTokenUsage {
	if u == "" {
		return domain.RefreshTokenOneTimeOnly
	}
	return u
}

func orExpiration(e domain.RefreshTokenExpiration) domain.RefreshTokenExpiration {
	if e == "" {
		return domain.RefreshTokenAbsolute
	}
	return e
}
