package sqlite

import (
	"context"
	"slices"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/domain"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/store/drivers/sqlite/gen"
)

type apiResourcesRepo struct {
	q *gen.Queries
}

func (r *apiResourcesRepo) CreateResource(ctx context.Context, res domain.APIResource) error {
	err := r.q.CreateApiResource(ctx, gen.CreateApiResourceParams{
		Name:        res.Name,
		DisplayName: res.DisplayName,
	})
	if err != nil {
		return mapConstraint(err)
	}
	for _, s := range res.Scopes {
		claimTypes := make([]string, len(s.ClaimTypes))
		for i, ct := range s.ClaimTypes {
			claimTypes[i] = string(ct)
		}
		err := r.q.CreateApiScope(ctx, gen.CreateApiScopeParams{
			Name:         s.Name,
			ResourceName: res.Name,
			ClaimTypes:   joinFields(claimTypes),
		})
		if err != nil {
			return mapConstraint(err)
		}
	}
	return nil
}

func (r *apiResourcesRepo) ListResources(ctx context.Context) ([]domain.APIResource, error) {
	resources, err := r.q.ListApiResources(ctx)
	if err != nil {
		return nil, err
	}
	scopes, err := r.q.ListApiScopes(ctx)
	if err != nil {
		return nil, err
	}

	byName := make(map[string][]domain.APIScope, len(resources))
	for _, s := range scopes {
		var claimTypes []domain.ClaimType
		for _, ct := range splitFields(s.ClaimTypes) {
			claimTypes = append(claimTypes, domain.ClaimType(ct))
		}
		byName[s.ResourceName] = append(byName[s.ResourceName], domain.APIScope{
			Name:       s.Name,
			ClaimTypes: claimTypes,
		})
	}

	out := make([]domain.APIResource, len(resources))
	for i, res := range resources {
		out[i] = domain.APIResource{
			Name:        res.Name,
			DisplayName: res.DisplayName,
			Scopes:      byName[res.Name],
		}
	}
	return out, nil
}

func (r *apiResourcesRepo) FindByScopes(ctx context.Context, scopes []string) ([]domain.APIResource, error) {
	all, err := r.ListResources(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.APIResource
	for _, res := range all {
		if slices.ContainsFunc(res.Scopes, func(s domain.APIScope) bool {
			return slices.Contains(scopes, s.Name)
		}) {
			out = append(out, res)
		}
	}
	return out, nil
}

func (r *apiResourcesRepo) DeleteResource(ctx context.Context, name string) error {
	return requireRows(r.q.DeleteApiResource(ctx, name))
}
