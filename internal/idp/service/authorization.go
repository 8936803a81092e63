package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/domain"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/metrics"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/store"
	"github.com/aussiebroadwan/bartab-idp/pkg/idx"
	"github.com/aussiebroadwan/bartab-idp/pkg/jwtx"
	"github.com/aussiebroadwan/bartab-idp/pkg/slogx"
)

// AuthorizationService runs the authorization endpoint: it validates the
// client and the resource owner and lets the response type handler build
// the redirect.
type AuthorizationService struct {
	Store  store.Store
	Tokens *TokenIssuer
	Grants GrantService

	// DeviceSuccessURL is where the user agent lands after approving a
	// device.
	DeviceSuccessURL string

	Metrics *metrics.Metrics
	Clock   func() time.Time
}

// AuthorizationRequest carries the authorization endpoint parameters plus
// the resource owner credentials posted with them.
type AuthorizationRequest struct {
	ResponseType        string
	ClientID            string
	RedirectURI         string
	Scope               string
	State               string
	Nonce               string
	CodeChallenge       string
	CodeChallengeMethod string

	Username string
	Password string
	OTP      string
}

// authenticator resolves the resource owner inside the authorization
// transaction.
type authenticator func(ctx context.Context, tx store.Tx, now time.Time) (domain.User, []string, error)

// GetRedirectURL authorizes req and returns where to send the user agent.
//
// The pipeline is:
//
//  1. Resolve the response type handler (ErrWrongResponseType) and check the
//     required parameters (ErrInvalidRequest).
//  2. Validate the client: it exists (ErrClientNotFound), the redirect URI is
//     registered (ErrClientRedirectURI), it may use the response type
//     (ErrUnauthorizedClient), the scope is a subset of its scopes unless the
//     response type is the device approval (ErrClientScopes), and PKCE is present when
//     the client needs it (ErrInvalidRequest).
//  3. Authenticate the user by username and password (ErrUserNotFound,
//     ErrWrongPassword), then by TOTP when the user has a secret
//     (ErrMFARequired, ErrInvalidOTP).
//  4. Dispatch to the handler.
//
// Steps 2 to 4 share one transaction, so a failure never leaves a grant
// behind.
func (s *AuthorizationService) GetRedirectURL(ctx context.Context, req AuthorizationRequest) (string, error) {
	return s.authorize(ctx, req, func(ctx context.Context, tx store.Tx, now time.Time) (domain.User, []string, error) {
		return authenticateUser(ctx, tx.Users(), req.Username, req.Password, req.OTP, now)
	})
}

// AuthorizeSubject runs the same pipeline for a user who already
// authenticated elsewhere, such as an upstream identity provider.
func (s *AuthorizationService) AuthorizeSubject(ctx context.Context, req AuthorizationRequest, userID int64) (string, error) {
	return s.authorize(ctx, req, func(ctx context.Context, tx store.Tx, _ time.Time) (domain.User, []string, error) {
		user, err := tx.Users().GetUserByID(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.User{}, nil, ErrUserNotFound
			}
			return domain.User{}, nil, err
		}
		return user, []string{jwtx.AMRFederated}, nil
	})
}

func (s *AuthorizationService) authorize(ctx context.Context, req AuthorizationRequest, authn authenticator) (string, error) {
	log := slogx.FromContext(ctx)

	rt, err := ParseResponseType(req.ResponseType)
	if err != nil {
		s.Metrics.Failure("authorize", Reason(err))
		return "", err
	}
	handler := responseTypeHandlers[rt]

	if strings.TrimSpace(req.ClientID) == "" || strings.TrimSpace(req.RedirectURI) == "" {
		s.Metrics.Failure("authorize", Reason(ErrInvalidRequest))
		return "", ErrInvalidRequest
	}

	now := nowUTC(s.Clock)
	var redirect string
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		client, scopes, err := s.validateClient(ctx, tx, &req, rt)
		if err != nil {
			return err
		}

		user, amr, err := authn(ctx, tx, now)
		if err != nil {
			return err
		}

		hc := handlerContext{
			tx:               tx,
			client:           client,
			user:             user,
			scopes:           scopes,
			sid:              idx.New().String(),
			amr:              amr,
			now:              now,
			tokens:           s.Tokens,
			grants:           s.Grants.With(tx),
			deviceSuccessURL: s.DeviceSuccessURL,
		}
		redirect, err = handler.RedirectURL(ctx, hc, req, user.ID)
		return err
	})
	if err != nil {
		log.Warn("authorization rejected", "client_id", req.ClientID, "response_type", string(rt), "err", err)
		s.Metrics.Failure("authorize", Reason(err))
		return "", err
	}

	log.Info("authorization issued", "client_id", req.ClientID, "response_type", string(rt))
	s.Metrics.RedirectIssued(string(rt))
	return redirect, nil
}

// validateClient checks req against the client registration and returns the
// client with the effective scopes. PKCE parameters in req are normalised.
func (s *AuthorizationService) validateClient(ctx context.Context, tx store.Tx, req *AuthorizationRequest, rt ResponseType) (domain.Client, []string, error) {
	client, err := tx.Clients().GetClientByID(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Client{}, nil, ErrClientNotFound
		}
		return domain.Client{}, nil, err
	}

	if !client.AllowsRedirectURI(req.RedirectURI) {
		return domain.Client{}, nil, ErrClientRedirectURI
	}
	if !client.AllowsResponseType(string(rt)) {
		return domain.Client{}, nil, ErrUnauthorizedClient
	}
	// code and device approvals end in a grant the client must be allowed to redeem
	switch {
	case rt == ResponseTypeCode && !client.AllowsGrantType(string(domain.GrantAuthorizationCode)),
		rt == ResponseTypeDevice && !client.AllowsGrantType(string(domain.GrantDeviceCode)):
		return domain.Client{}, nil, ErrUnauthorizedClient
	}

	// A device approval carries the user code in scope; its scopes were
	// checked when the device code was issued.
	var scopes []string
	if rt != ResponseTypeDevice {
		scopes = dedupe(strings.Fields(req.Scope))
		if len(scopes) == 0 {
			scopes = slices.Clone(client.Scopes)
		}
		if !isSubset(scopes, client.Scopes) {
			return domain.Client{}, nil, ErrClientScopes
		}
		if (rt == ResponseTypeIDToken || rt == ResponseTypeIDTokenToken) && !slices.Contains(scopes, ScopeOpenID) {
			return domain.Client{}, nil, ErrInvalidScope
		}
	}

	if rt == ResponseTypeCode {
		challenge, method, err := validatePKCE(req.CodeChallenge, req.CodeChallengeMethod, client.RequirePKCE || client.IsPublic())
		if err != nil {
			return domain.Client{}, nil, err
		}
		req.CodeChallenge, req.CodeChallengeMethod = challenge, method
	}

	return client, scopes, nil
}
