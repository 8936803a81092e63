package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/domain"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/metrics"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/store"
	"github.com/aussiebroadwan/bartab-idp/pkg/cryptox"
	"github.com/aussiebroadwan/bartab-idp/pkg/idx"
	"github.com/aussiebroadwan/bartab-idp/pkg/jwtx"
	"github.com/aussiebroadwan/bartab-idp/pkg/slogx"
)

// TokenService implements the token endpoint.
type TokenService struct {
	Store  store.Store
	Tokens *TokenIssuer
	Grants GrantService

	Metrics *metrics.Metrics
	Clock   func() time.Time
}

// TokenRequest carries the token endpoint form. Which fields matter depends
// on GrantType.
type TokenRequest struct {
	GrantType    string
	ClientID     string
	ClientSecret string

	Code         string
	RedirectURI  string
	CodeVerifier string

	RefreshToken string

	Username string
	Password string
	OTP      string

	DeviceCode string

	Scope string
}

// exchange is the state of one token request inside its transaction.
type exchange struct {
	tx     store.Tx
	client domain.Client
	req    TokenRequest
	now    time.Time
	grants GrantService
}

type exchanger func(s *TokenService, ctx context.Context, x *exchange) (*domain.TokenSet, error)

// Built once and never mutated.
var exchangers = map[domain.GrantType]exchanger{
	domain.GrantAuthorizationCode: (*TokenService).exchangeAuthorizationCode,
	domain.GrantRefreshToken:      (*TokenService).exchangeRefreshToken,
	domain.GrantPassword:          (*TokenService).exchangePassword,
	domain.GrantClientCredentials: (*TokenService).exchangeClientCredentials,
	domain.GrantDeviceCode:        (*TokenService).exchangeDeviceCode,
}

// pollError carries a device polling outcome out of the transaction without
// rolling it back, so the poll timestamp is kept.
type pollError struct{ err error }

func (e pollError) Error() string { return e.err.Error() }
func (e pollError) Unwrap() error { return e.err }

// Exchange authenticates the client and runs the exchanger registered for
// req.GrantType in a single transaction.
//
// Unknown grant types fail with ErrUnsupportedGrantType, a grant type the
// client is not registered for with ErrUnauthorizedClient and bad client
// credentials with ErrInvalidClient. Every problem with the presented grant
// itself wraps ErrInvalidGrant. Device polling returns
// ErrAuthorizationPending, ErrSlowDown or ErrExpiredToken until the user
// approves the device.
func (s *TokenService) Exchange(ctx context.Context, req TokenRequest) (*domain.TokenSet, error) {
	log := slogx.FromContext(ctx)

	gt := domain.GrantType(req.GrantType)
	fn, ok := exchangers[gt]
	if !ok {
		s.Metrics.Failure("token", Reason(ErrUnsupportedGrantType))
		return nil, ErrUnsupportedGrantType
	}

	now := nowUTC(s.Clock)
	var (
		out     *domain.TokenSet
		pollErr error
	)
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		client, err := authenticateClient(ctx, tx.Clients(), req.ClientID, req.ClientSecret, now)
		if err != nil {
			return err
		}
		if !client.AllowsGrantType(req.GrantType) {
			return ErrUnauthorizedClient
		}

		out, err = fn(s, ctx, &exchange{
			tx:     tx,
			client: client,
			req:    req,
			now:    now,
			grants: s.Grants.With(tx),
		})

		var pe pollError
		if errors.As(err, &pe) {
			pollErr = pe.err
			return nil
		}
		return err
	})
	if err == nil && pollErr != nil {
		err = pollErr
	}
	if err != nil {
		if pollErr != nil {
			log.Debug("device poll", "client_id", req.ClientID, "status", Reason(err))
		} else {
			log.Warn("token request rejected", "client_id", req.ClientID, "grant_type", req.GrantType, "err", err)
		}
		s.Metrics.Failure("token", Reason(err))
		return nil, err
	}

	log.Info("tokens issued", "client_id", req.ClientID, "grant_type", req.GrantType)
	s.Metrics.TokenIssued(req.GrantType)
	return out, nil
}

func (s *TokenService) exchangeAuthorizationCode(ctx context.Context, x *exchange) (*domain.TokenSet, error) {
	if x.req.Code == "" {
		return nil, ErrInvalidRequest
	}

	g, err := x.grants.Redeem(ctx, x.req.Code, domain.GrantAuthorizationCode)
	if err != nil {
		return nil, invalidGrant(err)
	}
	if g.ClientID != x.client.ID {
		return nil, fmt.Errorf("%w: code issued to another client", ErrInvalidGrant)
	}

	var data domain.AuthorizationCodeData
	if err := json.Unmarshal([]byte(g.Data), &data); err != nil {
		return nil, fmt.Errorf("decode authorization code data: %w", err)
	}
	if data.RedirectURI != "" && data.RedirectURI != x.req.RedirectURI {
		return nil, fmt.Errorf("%w: redirect_uri mismatch", ErrInvalidGrant)
	}
	if !verifyCodeVerifier(data.CodeChallenge, data.CodeChallengeMethod, x.req.CodeVerifier) {
		return nil, fmt.Errorf("%w: code_verifier mismatch", ErrInvalidGrant)
	}

	user, err := loadSubject(ctx, x.tx, g.SubjectID)
	if err != nil {
		return nil, err
	}

	return s.issue(ctx, x, issueParams{
		user:     &user,
		scopes:   g.Scopes,
		sid:      g.SessionID,
		amr:      data.AMR,
		authTime: data.AuthTime,
		nonce:    data.Nonce,
		refresh:  x.client.AllowsGrantType(string(domain.GrantRefreshToken)),
	})
}

func (s *TokenService) exchangeRefreshToken(ctx context.Context, x *exchange) (*domain.TokenSet, error) {
	if x.req.RefreshToken == "" {
		return nil, ErrInvalidRequest
	}

	reuse := x.client.RefreshTokenUsage == domain.RefreshTokenReuse

	var (
		g   domain.PersistentGrant
		err error
	)
	if reuse {
		g, err = x.grants.FindByKey(ctx, x.req.RefreshToken)
		if err == nil && g.GrantType != domain.GrantRefreshToken {
			err = ErrPersistentGrantNotFound
		}
	} else {
		g, err = x.grants.Redeem(ctx, x.req.RefreshToken, domain.GrantRefreshToken)
	}
	if err != nil {
		return nil, invalidGrant(err)
	}
	if g.ClientID != x.client.ID {
		return nil, fmt.Errorf("%w: refresh token issued to another client", ErrInvalidGrant)
	}

	var data domain.RefreshTokenData
	if err := json.Unmarshal([]byte(g.Data), &data); err != nil {
		return nil, fmt.Errorf("decode refresh token data: %w", err)
	}
	absolute := time.Unix(data.AbsoluteExpiresAt, 0).UTC()
	if !x.now.Before(absolute) {
		return nil, fmt.Errorf("%w: refresh token expired", ErrInvalidGrant)
	}

	scopes := g.Scopes
	if requested := dedupe(strings.Fields(x.req.Scope)); len(requested) > 0 {
		if !isSubset(requested, g.Scopes) {
			return nil, ErrInvalidScope
		}
		scopes = requested
	}

	user, err := loadSubject(ctx, x.tx, g.SubjectID)
	if err != nil {
		return nil, err
	}

	set, err := s.issue(ctx, x, issueParams{
		user:     &user,
		scopes:   scopes,
		sid:      g.SessionID,
		amr:      data.AMR,
		authTime: data.AuthTime,
	})
	if err != nil {
		return nil, err
	}

	lifetime := refreshLifetime(x.client, x.now, absolute)
	switch {
	case !reuse:
		// Rotation: the redeemed grant is gone, mint its successor with the
		// original scopes and absolute expiry.
		g.CreatedAt = x.now
		g.Expiration = seconds(lifetime)
		raw, err := x.grants.IssueGrant(ctx, x.tx.PersistentGrants(), g)
		if err != nil {
			return nil, fmt.Errorf("rotate refresh token: %w", err)
		}
		set.RefreshToken = raw
	case x.client.RefreshTokenExpiration == domain.RefreshTokenSliding:
		g.CreatedAt = x.now
		g.Expiration = seconds(lifetime)
		if err := x.tx.PersistentGrants().DeleteGrant(ctx, g.Key); err != nil {
			return nil, err
		}
		if err := x.tx.PersistentGrants().CreateGrant(ctx, g); err != nil {
			return nil, fmt.Errorf("slide refresh token: %w", err)
		}
		set.RefreshToken = x.req.RefreshToken
	default:
		set.RefreshToken = x.req.RefreshToken
	}
	return set, nil
}

func (s *TokenService) exchangePassword(ctx context.Context, x *exchange) (*domain.TokenSet, error) {
	scopes, err := requestedScopes(x.req.Scope, x.client)
	if err != nil {
		return nil, err
	}

	user, amr, err := authenticateUser(ctx, x.tx.Users(), x.req.Username, x.req.Password, x.req.OTP, x.now)
	if err != nil {
		return nil, invalidGrant(err)
	}

	return s.issue(ctx, x, issueParams{
		user:     &user,
		scopes:   scopes,
		sid:      idx.New().String(),
		amr:      amr,
		authTime: x.now.Unix(),
		refresh:  x.client.AllowsGrantType(string(domain.GrantRefreshToken)),
	})
}

func (s *TokenService) exchangeClientCredentials(ctx context.Context, x *exchange) (*domain.TokenSet, error) {
	if x.client.IsPublic() {
		return nil, ErrUnauthorizedClient
	}

	scopes, err := requestedScopes(x.req.Scope, x.client)
	if err != nil {
		return nil, err
	}

	return s.issue(ctx, x, issueParams{
		subject: x.client.ID,
		scopes:  scopes,
		amr:     []string{jwtx.AMRClient},
	})
}

// exchangeDeviceCode is one poll of a device. Until the user approves the
// device its row exists and the poll reports pending, slow_down or expiry.
// Approval turns the row into a grant keyed by the device code fingerprint,
// which the next poll redeems exactly once.
func (s *TokenService) exchangeDeviceCode(ctx context.Context, x *exchange) (*domain.TokenSet, error) {
	if x.req.DeviceCode == "" {
		return nil, ErrInvalidRequest
	}
	fp := cryptox.FingerprintToken(x.req.DeviceCode)

	approved, err := x.grants.Exists(ctx, fp, domain.PersistentGrantDeviceCode)
	if err != nil {
		return nil, err
	}
	if approved {
		g, err := x.grants.RedeemByData(ctx, fp, domain.PersistentGrantDeviceCode)
		if err != nil {
			return nil, invalidGrant(err)
		}
		if g.ClientID != x.client.ID {
			return nil, fmt.Errorf("%w: device code issued to another client", ErrInvalidGrant)
		}
		user, err := loadSubject(ctx, x.tx, g.SubjectID)
		if err != nil {
			return nil, err
		}
		return s.issue(ctx, x, issueParams{
			user:     &user,
			scopes:   g.Scopes,
			sid:      g.SessionID,
			authTime: g.CreatedAt.Unix(),
			refresh:  x.client.AllowsGrantType(string(domain.GrantRefreshToken)),
		})
	}

	dev, err := x.tx.Devices().GetByDeviceCode(ctx, fp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown device code", ErrInvalidGrant)
		}
		return nil, err
	}
	if dev.ClientID != x.client.ID {
		return nil, fmt.Errorf("%w: device code issued to another client", ErrInvalidGrant)
	}
	if dev.IsExpired(x.now) {
		return nil, ErrExpiredToken
	}

	tooFast := dev.LastPolledAt != nil &&
		x.now.Sub(*dev.LastPolledAt) < time.Duration(dev.Interval)*time.Second
	if err := x.tx.Devices().TouchPolled(ctx, fp, x.now); err != nil {
		return nil, err
	}
	if tooFast {
		return nil, pollError{ErrSlowDown}
	}
	return nil, pollError{ErrAuthorizationPending}
}

type issueParams struct {
	user     *domain.User // nil for client credentials
	subject  string       // used when user is nil
	scopes   []string
	sid      string
	amr      []string
	authTime int64
	nonce    string
	refresh  bool
}

// issue mints the access token and, for a user, the refresh token when
// asked and the ID token when openid was granted.
func (s *TokenService) issue(ctx context.Context, x *exchange, p issueParams) (*domain.TokenSet, error) {
	subject := p.subject
	var roles []string
	if p.user != nil {
		subject = subjectOf(p.user.ID)
		roles = p.user.Roles
	}

	at, ttl, err := s.Tokens.AccessToken(ctx, x.tx, accessTokenParams{
		Client:  x.client,
		Subject: subject,
		Scopes:  p.scopes,
		SID:     p.sid,
		AMR:     p.amr,
		Roles:   roles,
	}, x.now)
	if err != nil {
		return nil, err
	}

	set := &domain.TokenSet{
		AccessToken: at,
		TokenType:   "Bearer",
		ExpiresIn:   seconds(ttl),
		Scope:       strings.Join(p.scopes, " "),
	}
	if p.user == nil {
		return set, nil
	}

	if p.refresh {
		absolute := x.now.Add(x.client.RefreshAbsoluteLifetime())
		data, err := json.Marshal(domain.RefreshTokenData{
			AuthTime:          p.authTime,
			AbsoluteExpiresAt: absolute.Unix(),
			AMR:               p.amr,
		})
		if err != nil {
			return nil, err
		}
		set.RefreshToken, err = x.grants.IssueGrant(ctx, x.tx.PersistentGrants(), domain.PersistentGrant{
			ClientID:   x.client.ID,
			SubjectID:  p.user.ID,
			GrantType:  domain.GrantRefreshToken,
			Data:       string(data),
			Scopes:     p.scopes,
			SessionID:  p.sid,
			CreatedAt:  x.now,
			Expiration: seconds(refreshLifetime(x.client, x.now, absolute)),
		})
		if err != nil {
			return nil, fmt.Errorf("issue refresh token: %w", err)
		}
	}

	if slices.Contains(p.scopes, ScopeOpenID) {
		set.IDToken, err = s.Tokens.IDToken(ctx, x.tx, idTokenParams{
			Client:      x.client,
			User:        *p.user,
			Scopes:      p.scopes,
			Nonce:       p.nonce,
			AuthTime:    p.authTime,
			AccessToken: at,
			SID:         p.sid,
		}, x.now)
		if err != nil {
			return nil, err
		}
	}
	return set, nil
}

// refreshLifetime is how long a refresh grant issued now may live: the rest
// of the absolute lifetime, or one sliding window within it.
func refreshLifetime(c domain.Client, now, absolute time.Time) time.Duration {
	remaining := absolute.Sub(now)
	if c.RefreshTokenExpiration == domain.RefreshTokenSliding {
		return min(c.RefreshTTL(), remaining)
	}
	return remaining
}

// authenticateClient checks client credentials. Public clients present no
// secret; confidential ones must match an unexpired secret.
func authenticateClient(ctx context.Context, clients store.Clients, id, secret string, now time.Time) (domain.Client, error) {
	if id == "" {
		return domain.Client{}, ErrInvalidClient
	}
	client, err := clients.GetClientByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Client{}, ErrInvalidClient
		}
		return domain.Client{}, err
	}
	if client.IsPublic() {
		return client, nil
	}
	if secret == "" {
		return domain.Client{}, ErrInvalidClient
	}
	for _, cs := range client.ActiveSecrets(now) {
		if cryptox.VerifyPassword(secret, cs.Hash) == nil {
			return client, nil
		}
	}
	return domain.Client{}, ErrInvalidClient
}

func requestedScopes(scope string, client domain.Client) ([]string, error) {
	scopes := dedupe(strings.Fields(scope))
	if len(scopes) == 0 {
		return slices.Clone(client.Scopes), nil
	}
	if !isSubset(scopes, client.Scopes) {
		return nil, ErrInvalidScope
	}
	return scopes, nil
}

func loadSubject(ctx context.Context, tx store.Store, id int64) (domain.User, error) {
	user, err := tx.Users().GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, fmt.Errorf("%w: %w", ErrInvalidGrant, ErrUserNotFound)
		}
		return domain.User{}, err
	}
	return user, nil
}

// invalidGrant tags grant and resource owner failures as invalid_grant while
// keeping the precise cause for errors.Is.
func invalidGrant(err error) error {
	switch {
	case errors.Is(err, ErrPersistentGrantNotFound),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrWrongPassword),
		errors.Is(err, ErrMFARequired),
		errors.Is(err, ErrInvalidOTP):
		return fmt.Errorf("%w: %w", ErrInvalidGrant, err)
	}
	return err
}
