package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/metrics"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/store"
	"github.com/aussiebroadwan/bartab-idp/pkg/jwtx"
	"github.com/aussiebroadwan/bartab-idp/pkg/slogx"
)

// EndSessionService implements RP-initiated logout.
type EndSessionService struct {
	Store store.Store
	Keys  *jwtx.KeyManager

	// VerifySignature checks the id_token_hint signature. Expiry of the
	// hint is never enforced.
	VerifySignature bool

	Metrics *metrics.Metrics
}

type EndSessionRequest struct {
	IDTokenHint           string
	PostLogoutRedirectURI string
	State                 string
}

// EndSession drops every grant the hinted subject holds at the hinted client
// and returns the post logout redirect, or "" when none was asked for.
//
// The hint must decode (ErrTokenDecode) and name both sub and client_id
// (ErrMissingClaim). Having no grants left is not an error. A post logout
// URI that the client did not register fails with ErrClientNotFound or
// ErrClientPostLogoutRedirectURI and keeps the grants.
func (s *EndSessionService) EndSession(ctx context.Context, req EndSessionRequest) (string, error) {
	log := slogx.FromContext(ctx)

	opts := []jwtx.DecodeOption{jwtx.WithoutExpiry()}
	if !s.VerifySignature {
		opts = append(opts, jwtx.WithoutSignature())
	}

	var claims jwtx.HintClaims
	if err := s.Keys.Decode(req.IDTokenHint, &claims, opts...); err != nil {
		s.Metrics.Failure("end_session", Reason(err))
		return "", fmt.Errorf("id_token_hint: %w", err)
	}

	subject, ok := parseSubject(claims.Subject)
	if !ok || claims.ClientID == "" {
		s.Metrics.Failure("end_session", Reason(ErrMissingClaim))
		return "", ErrMissingClaim
	}

	var redirect string
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		n, err := tx.PersistentGrants().DeleteByClientAndSubject(ctx, claims.ClientID, subject)
		if err != nil {
			return err
		}
		log.Debug("grants removed", "client_id", claims.ClientID, "sub", claims.Subject, "count", n)

		if req.PostLogoutRedirectURI == "" {
			return nil
		}

		client, err := tx.Clients().GetClientByID(ctx, claims.ClientID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrClientNotFound
			}
			return err
		}
		if !client.AllowsPostLogoutRedirectURI(req.PostLogoutRedirectURI) {
			return ErrClientPostLogoutRedirectURI
		}

		redirect = req.PostLogoutRedirectURI
		if req.State != "" {
			redirect += "&state=" + req.State
		}
		return nil
	})
	if err != nil {
		log.Warn("end session rejected", "client_id", claims.ClientID, "err", err)
		s.Metrics.Failure("end_session", Reason(err))
		return "", err
	}

	log.Info("session ended", "client_id", claims.ClientID, "sub", claims.Subject)
	return redirect, nil
}
