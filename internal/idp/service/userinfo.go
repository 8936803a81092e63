package service

import (
	"context"
	"errors"
	"strings"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/store"
	"github.com/aussiebroadwan/bartab-idp/pkg/jwtx"
)

// UserInfoService serves the OpenID Connect userinfo endpoint.
type UserInfoService struct {
	Store      store.Store
	Revocation *RevocationService
	Scopes     ScopeResolver
}

// VerifyAccessToken accepts access tokens minted for the userinfo audience
// that have not been revoked. It satisfies httpx.TokenVerifier.
func (s *UserInfoService) VerifyAccessToken(ctx context.Context, token string) (*jwtx.AccessClaims, error) {
	return s.Revocation.VerifyAccessToken(ctx, token, AudienceUserInfo)
}

// UserInfo returns sub and the user claims the token's scopes release.
func (s *UserInfoService) UserInfo(ctx context.Context, claims *jwtx.AccessClaims) (map[string]any, error) {
	id, ok := parseSubject(claims.Subject)
	if !ok {
		return nil, ErrUserNotFound
	}

	user, err := s.Store.Users().GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	res, err := s.Scopes.Resolve(ctx, s.Store.APIResources(), strings.Fields(claims.Scope))
	if err != nil {
		return nil, err
	}

	out := userClaims(user, res.ClaimTypes)
	out["sub"] = claims.Subject
	return out, nil
}
