package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/domain"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/store"
	"github.com/aussiebroadwan/bartab-idp/pkg/jwtx"
)

// TokenIssuer mints the JWTs handed out by the authorization and token
// endpoints.
type TokenIssuer struct {
	Keys   *jwtx.KeyManager
	Issuer string
	Scopes ScopeResolver
}

type accessTokenParams struct {
	Client  domain.Client
	Subject string
	Scopes  []string
	SID     string
	AMR     []string
	Roles   []string
}

// AccessToken signs an access token for p. Its audience is the fixed
// endpoint trio plus the API resources the scopes reach.
func (t *TokenIssuer) AccessToken(ctx context.Context, st store.Store, p accessTokenParams, now time.Time) (string, time.Duration, error) {
	res, err := t.Scopes.Resolve(ctx, st.APIResources(), p.Scopes)
	if err != nil {
		return "", 0, fmt.Errorf("resolve scopes: %w", err)
	}

	ttl := p.Client.AccessTTL()
	claims := jwtx.AccessClaims{
		RegisteredClaims: jwtx.NewRegisteredClaims(t.Issuer, p.Subject, res.Audience, ttl, now),
		ClientID:         p.Client.ID,
		Scope:            strings.Join(p.Scopes, " "),
		SID:              p.SID,
		AMR:              p.AMR,
		Roles:            p.Roles,
	}

	token, err := t.Keys.Encode(claims)
	if err != nil {
		return "", 0, fmt.Errorf("sign access token: %w", err)
	}
	return token, ttl, nil
}

type idTokenParams struct {
	Client      domain.Client
	User        domain.User
	Scopes      []string
	Nonce       string
	AuthTime    int64
	AccessToken string // sets at_hash when present
	SID         string
}

// IDToken signs an ID token for the user, carrying the claims its scopes
// allow.
func (t *TokenIssuer) IDToken(ctx context.Context, st store.Store, p idTokenParams, now time.Time) (string, error) {
	res, err := t.Scopes.Resolve(ctx, st.APIResources(), p.Scopes)
	if err != nil {
		return "", fmt.Errorf("resolve scopes: %w", err)
	}

	claims := jwtx.IDClaims{
		RegisteredClaims: jwtx.NewRegisteredClaims(t.Issuer, subjectOf(p.User.ID), []string{p.Client.ID}, p.Client.IDTTL(), now),
		ClientID:         p.Client.ID,
		Nonce:            p.Nonce,
		AuthTime:         p.AuthTime,
		SID:              p.SID,
		UserClaims:       userClaims(p.User, res.ClaimTypes),
	}
	if p.AccessToken != "" {
		claims.AtHash = jwtx.AtHash(p.AccessToken)
	}

	token, err := t.Keys.Encode(claims)
	if err != nil {
		return "", fmt.Errorf("sign id token: %w", err)
	}
	return token, nil
}

func subjectOf(userID int64) string { return strconv.FormatInt(userID, 10) }

// parseSubject is the inverse of subjectOf. Client credential tokens carry a
// client id as subject and fail here.
func parseSubject(sub string) (int64, bool) {
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
