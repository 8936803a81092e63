package service

import (
	"context"
	"slices"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/domain"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/store"
)

// Fixed access token audiences: every access token may call these endpoints.
const (
	AudienceUserInfo      = "userinfo"
	AudienceIntrospection = "introspection"
	AudienceRevoke        = "revoke"
)

const (
	ScopeOpenID        = "openid"
	ScopeOfflineAccess = "offline_access"
)

// ScopeResolution is what a set of granted scopes unlocks.
type ScopeResolution struct {
	Audience   []string
	ClaimTypes []domain.ClaimType
}

// ScopeResolver maps granted scopes to token audiences and user claims.
type ScopeResolver struct{}

// Resolve looks scopes up among the identity scopes and the API resources in
// repo. Unknown scopes contribute nothing.
func (ScopeResolver) Resolve(ctx context.Context, repo store.APIResources, scopes []string) (ScopeResolution, error) {
	res := ScopeResolution{
		Audience: []string{AudienceUserInfo, AudienceIntrospection, AudienceRevoke},
	}

	for _, s := range scopes {
		for _, ct := range domain.IdentityScopes[s] {
			if !slices.Contains(res.ClaimTypes, ct) {
				res.ClaimTypes = append(res.ClaimTypes, ct)
			}
		}
	}

	resources, err := repo.FindByScopes(ctx, scopes)
	if err != nil {
		return ScopeResolution{}, err
	}
	for _, r := range resources {
		if !slices.Contains(res.Audience, r.Name) {
			res.Audience = append(res.Audience, r.Name)
		}
		for _, rs := range r.Scopes {
			if !slices.Contains(scopes, rs.Name) {
				continue
			}
			for _, ct := range rs.ClaimTypes {
				if !slices.Contains(res.ClaimTypes, ct) {
					res.ClaimTypes = append(res.ClaimTypes, ct)
				}
			}
		}
	}
	return res, nil
}

// userClaims picks the claims of u allowed by types.
func userClaims(u domain.User, types []domain.ClaimType) map[string]any {
	out := map[string]any{}
	for _, ct := range types {
		if v, ok := u.Claims[ct]; ok && v != "" {
			out[string(ct)] = v
		}
	}
	return out
}
