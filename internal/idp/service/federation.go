package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/domain"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/store"
	"github.com/aussiebroadwan/bartab-idp/pkg/cryptox"
	"github.com/aussiebroadwan/bartab-idp/pkg/slogx"
	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// UpstreamProvider configures one upstream OpenID Connect provider users
// may log in with.
type UpstreamProvider struct {
	Name         string
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

type upstream struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// FederationService logs users in through upstream OpenID Connect
// providers and maps them to local users.
type FederationService struct {
	Store store.Store
	Clock func() time.Time

	providers map[string]upstream
}

// NewFederationService runs discovery against every provider.
func NewFederationService(ctx context.Context, st store.Store, providers []UpstreamProvider) (*FederationService, error) {
	s := &FederationService{Store: st, providers: make(map[string]upstream, len(providers))}

	for _, p := range providers {
		if p.Name == "" || p.Issuer == "" || p.ClientID == "" {
			return nil, fmt.Errorf("upstream provider %q: name, issuer and client id are required", p.Name)
		}

		op, err := oidc.NewProvider(ctx, p.Issuer)
		if err != nil {
			return nil, fmt.Errorf("upstream provider %q: discovery: %w", p.Name, err)
		}

		scopes := p.Scopes
		if len(scopes) == 0 {
			scopes = []string{oidc.ScopeOpenID, "profile", "email"}
		}
		if !slices.Contains(scopes, oidc.ScopeOpenID) {
			return nil, fmt.Errorf("upstream provider %q: openid scope is required", p.Name)
		}

		s.providers[p.Name] = upstream{
			oauth: &oauth2.Config{
				ClientID:     p.ClientID,
				ClientSecret: p.ClientSecret,
				RedirectURL:  p.RedirectURL,
				Scopes:       scopes,
				Endpoint:     op.Endpoint(),
			},
			verifier: op.Verifier(&oidc.Config{ClientID: p.ClientID}),
		}
	}
	return s, nil
}

// Providers lists the configured provider names, sorted.
func (s *FederationService) Providers() []string {
	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// FederationStart is the state of a login in flight. The caller keeps it
// (in a session cookie) until the upstream provider calls back.
type FederationStart struct {
	URL      string
	State    string
	Nonce    string
	Verifier string
}

// Begin builds the upstream authorization URL with a fresh state, nonce and
// S256 PKCE challenge.
func (s *FederationService) Begin(provider string) (FederationStart, error) {
	up, ok := s.providers[provider]
	if !ok {
		return FederationStart{}, ErrUnknownProvider
	}

	state, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return FederationStart{}, err
	}
	nonce, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return FederationStart{}, err
	}
	verifier := oauth2.GenerateVerifier()

	return FederationStart{
		URL:      up.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier), oidc.Nonce(nonce)),
		State:    state,
		Nonce:    nonce,
		Verifier: verifier,
	}, nil
}

type upstreamClaims struct {
	Email             string `json:"email"`
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
}

// Complete redeems the upstream code, verifies the upstream ID token and
// returns the local user linked to it, creating and linking one on first
// login.
func (s *FederationService) Complete(ctx context.Context, provider, code string, pending FederationStart) (int64, error) {
	log := slogx.FromContext(ctx)

	up, ok := s.providers[provider]
	if !ok {
		return 0, ErrUnknownProvider
	}

	tok, err := up.oauth.Exchange(ctx, code, oauth2.VerifierOption(pending.Verifier))
	if err != nil {
		return 0, fmt.Errorf("%w: upstream exchange: %w", ErrInvalidGrant, err)
	}
	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return 0, fmt.Errorf("%w: upstream returned no id_token", ErrInvalidGrant)
	}

	idt, err := up.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return 0, fmt.Errorf("%w: upstream id_token: %w", ErrTokenDecode, err)
	}
	if pending.Nonce != "" && idt.Nonce != pending.Nonce {
		return 0, fmt.Errorf("%w: upstream nonce mismatch", ErrInvalidGrant)
	}

	var claims upstreamClaims
	if err := idt.Claims(&claims); err != nil {
		return 0, fmt.Errorf("%w: upstream claims: %w", ErrTokenDecode, err)
	}

	var userID int64
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		fi, err := tx.FederatedIdentities().GetByProviderSubject(ctx, provider, idt.Subject)
		if err == nil {
			userID = fi.UserID
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		userID, err = s.provisionUser(ctx, tx, provider, idt.Subject, claims)
		return err
	})
	if err != nil {
		log.Warn("federated login failed", "provider", provider, "err", err)
		return 0, err
	}

	log.Info("federated login", "provider", provider, "user_id", userID)
	return userID, nil
}

// provisionUser creates a local user for a first time upstream subject. The
// password is random and never disclosed, so the account can only log in
// through the provider.
func (s *FederationService) provisionUser(ctx context.Context, tx store.Tx, provider, subject string, c upstreamClaims) (int64, error) {
	secret, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return 0, err
	}
	hash, err := cryptox.HashPassword(secret)
	if err != nil {
		return 0, err
	}

	userClaims := map[domain.ClaimType]string{}
	if c.Email != "" {
		userClaims[domain.ClaimEmail] = c.Email
	}
	if c.Name != "" {
		userClaims[domain.ClaimName] = c.Name
	}
	if c.PreferredUsername != "" {
		userClaims[domain.ClaimPreferredUsername] = c.PreferredUsername
	}

	id, err := tx.Users().CreateUser(ctx, domain.User{
		Username:     provider + ":" + subject,
		PasswordHash: hash,
		Claims:       userClaims,
	})
	if err != nil {
		return 0, fmt.Errorf("create federated user: %w", err)
	}

	err = tx.FederatedIdentities().Link(ctx, domain.FederatedIdentity{
		Provider:  provider,
		Subject:   subject,
		UserID:    id,
		Email:     c.Email,
		CreatedAt: nowUTC(s.Clock),
	})
	if err != nil {
		return 0, fmt.Errorf("link federated identity: %w", err)
	}
	return id, nil
}
