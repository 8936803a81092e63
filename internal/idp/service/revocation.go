package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/domain"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/metrics"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/store"
	"github.com/aussiebroadwan/bartab-idp/pkg/cryptox"
	"github.com/aussiebroadwan/bartab-idp/pkg/jwtx"
	"github.com/aussiebroadwan/bartab-idp/pkg/slogx"
)

const (
	TokenTypeHintAccessToken  = "access_token"
	TokenTypeHintRefreshToken = "refresh_token"
)

// RevocationService implements token revocation (RFC 7009) and
// introspection (RFC 7662), and checks access tokens against the blacklist.
type RevocationService struct {
	Store  store.Store
	Keys   *jwtx.KeyManager
	Issuer string

	// Blacklist holds revoked access tokens. Nil means the blacklist of
	// Store.
	Blacklist store.BlacklistedTokens

	Metrics *metrics.Metrics
	Clock   func() time.Time
}

// RevocationRequest is the client credentials plus the token asked about.
type RevocationRequest struct {
	Token         string
	TokenTypeHint string
	ClientID      string
	ClientSecret  string
}

func (s *RevocationService) blacklist() store.BlacklistedTokens {
	if s.Blacklist != nil {
		return s.Blacklist
	}
	return s.Store.BlacklistedTokens()
}

// Revoke invalidates req.Token for the calling client. Access tokens are
// blacklisted until they expire; anything else is treated as a refresh token
// and its grant deleted. Unknown tokens, and tokens of other clients, are
// accepted silently.
func (s *RevocationService) Revoke(ctx context.Context, req RevocationRequest) error {
	log := slogx.FromContext(ctx)
	now := nowUTC(s.Clock)

	client, err := authenticateClient(ctx, s.Store.Clients(), req.ClientID, req.ClientSecret, now)
	if err != nil {
		s.Metrics.Failure("revoke", Reason(err))
		return err
	}
	if req.Token == "" {
		return ErrInvalidRequest
	}

	var claims jwtx.AccessClaims
	err = s.Keys.Decode(req.Token, &claims, jwtx.WithIssuer(s.Issuer))
	switch {
	case errors.Is(err, jwtx.ErrTokenExpired):
		return nil
	case err == nil:
		if claims.ClientID != client.ID || claims.ExpiresAt == nil {
			return nil
		}
		err := s.blacklist().Add(ctx, domain.BlacklistedToken{
			Fingerprint: cryptox.FingerprintToken(req.Token),
			ExpiresAt:   claims.ExpiresAt.Time,
		})
		if err != nil {
			return err
		}
		log.Info("access token revoked", "client_id", client.ID, "jti", claims.ID)
		return nil
	}

	grants := GrantService{Store: s.Store, Clock: s.Clock}
	g, err := grants.FindByKey(ctx, req.Token)
	if err != nil {
		if errors.Is(err, ErrPersistentGrantNotFound) {
			return nil
		}
		return err
	}
	if g.GrantType != domain.GrantRefreshToken || g.ClientID != client.ID {
		return nil
	}
	if err := grants.DeleteByKey(ctx, req.Token); err != nil {
		return err
	}
	log.Info("refresh token revoked", "client_id", client.ID)
	return nil
}

// Introspect reports whether req.Token is active. Callers must authenticate
// as a client; the answer for an unknown, expired or revoked token is an
// inactive result, not an error.
func (s *RevocationService) Introspect(ctx context.Context, req RevocationRequest) (domain.Introspection, error) {
	now := nowUTC(s.Clock)

	if _, err := authenticateClient(ctx, s.Store.Clients(), req.ClientID, req.ClientSecret, now); err != nil {
		s.Metrics.Failure("introspect", Reason(err))
		return domain.Introspection{}, err
	}

	if req.TokenTypeHint != TokenTypeHintRefreshToken {
		claims, err := s.verify(ctx, req.Token, "", now)
		if err == nil {
			return introspectAccess(claims), nil
		}
		if !errors.Is(err, jwtx.ErrTokenDecode) {
			if errors.Is(err, ErrTokenRevoked) || errors.Is(err, jwtx.ErrTokenExpired) {
				return domain.Introspection{}, nil
			}
			return domain.Introspection{}, err
		}
	}

	grants := GrantService{Store: s.Store, Clock: s.Clock}
	g, err := grants.FindByKey(ctx, req.Token)
	if err != nil {
		if errors.Is(err, ErrPersistentGrantNotFound) {
			return domain.Introspection{}, nil
		}
		return domain.Introspection{}, err
	}
	if g.GrantType != domain.GrantRefreshToken {
		return domain.Introspection{}, nil
	}

	out := domain.Introspection{
		Active:    true,
		Scope:     strings.Join(g.Scopes, " "),
		ClientID:  g.ClientID,
		TokenType: TokenTypeHintRefreshToken,
		ExpiresAt: g.ExpiresAt().Unix(),
		IssuedAt:  g.CreatedAt.Unix(),
		Issuer:    s.Issuer,
	}
	if g.SubjectID != 0 {
		out.Subject = subjectOf(g.SubjectID)
	}
	return out, nil
}

// VerifyAccessToken decodes an access token issued here, optionally
// requiring audience, and rejects blacklisted tokens with ErrTokenRevoked.
func (s *RevocationService) VerifyAccessToken(ctx context.Context, token, audience string) (*jwtx.AccessClaims, error) {
	return s.verify(ctx, token, audience, nowUTC(s.Clock))
}

func (s *RevocationService) verify(ctx context.Context, token, audience string, now time.Time) (*jwtx.AccessClaims, error) {
	opts := []jwtx.DecodeOption{jwtx.WithIssuer(s.Issuer)}
	if audience != "" {
		opts = append(opts, jwtx.WithAudience(audience))
	}

	var claims jwtx.AccessClaims
	if err := s.Keys.Decode(token, &claims, opts...); err != nil {
		return nil, err
	}

	revoked, err := s.blacklist().Contains(ctx, cryptox.FingerprintToken(token), now)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return &claims, nil
}

func introspectAccess(c *jwtx.AccessClaims) domain.Introspection {
	out := domain.Introspection{
		Active:    true,
		Scope:     c.Scope,
		ClientID:  c.ClientID,
		Subject:   c.Subject,
		TokenType: TokenTypeHintAccessToken,
		Issuer:    c.Issuer,
		Audience:  c.Audience,
		JTI:       c.ID,
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Unix()
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Unix()
	}
	return out
}
