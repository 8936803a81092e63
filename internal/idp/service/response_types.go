package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/domain"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/store"
)

// ResponseType is an authorization endpoint response_type.
type ResponseType string

const (
	ResponseTypeCode         ResponseType = "code"
	ResponseTypeToken        ResponseType = "token"
	ResponseTypeIDToken      ResponseType = "id_token"
	ResponseTypeIDTokenToken ResponseType = "id_token token"
	ResponseTypeDevice       ResponseType = ResponseType(domain.GrantDeviceCode)
)

// ParseResponseType normalises whitespace and token order. Values outside
// the closed set fail with ErrWrongResponseType.
func ParseResponseType(raw string) (ResponseType, error) {
	fields := strings.Fields(raw)
	slices.Sort(fields)
	rt := ResponseType(strings.Join(fields, " "))
	if _, ok := responseTypeHandlers[rt]; !ok {
		return "", ErrWrongResponseType
	}
	return rt, nil
}

// ResponseTypeHandler turns an authorized request into the redirect URL
// returned to the user agent.
type ResponseTypeHandler interface {
	RedirectURL(ctx context.Context, hc handlerContext, req AuthorizationRequest, userID int64) (string, error)
}

// handlerContext is the per-request state the authorization service hands
// to a handler. tx is the transaction every write must go through.
type handlerContext struct {
	tx               store.Store
	client           domain.Client
	user             domain.User
	scopes           []string
	sid              string
	amr              []string
	now              time.Time
	tokens           *TokenIssuer
	grants           GrantService
	deviceSuccessURL string
}

// Built once and never mutated.
var responseTypeHandlers = map[ResponseType]ResponseTypeHandler{
	ResponseTypeCode:         codeHandler{},
	ResponseTypeToken:        tokenHandler{},
	ResponseTypeIDToken:      idTokenHandler{},
	ResponseTypeIDTokenToken: idTokenTokenHandler{},
	ResponseTypeDevice:       deviceHandler{},
}

type codeHandler struct{}

func (codeHandler) RedirectURL(ctx context.Context, hc handlerContext, req AuthorizationRequest, userID int64) (string, error) {
	data, err := json.Marshal(domain.AuthorizationCodeData{
		RedirectURI:         req.RedirectURI,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: req.CodeChallengeMethod,
		Nonce:               req.Nonce,
		AuthTime:            hc.now.Unix(),
		AMR:                 hc.amr,
	})
	if err != nil {
		return "", err
	}

	code, err := hc.grants.IssueGrant(ctx, hc.tx.PersistentGrants(), domain.PersistentGrant{
		ClientID:   hc.client.ID,
		SubjectID:  userID,
		GrantType:  domain.GrantAuthorizationCode,
		Data:       string(data),
		Scopes:     hc.scopes,
		SessionID:  hc.sid,
		CreatedAt:  hc.now,
		Expiration: seconds(hc.client.CodeTTL()),
	})
	if err != nil {
		return "", fmt.Errorf("issue authorization code: %w", err)
	}

	return withState(appendQuery(req.RedirectURI, [2]string{"code", code}), req.State), nil
}

type tokenHandler struct{}

func (tokenHandler) RedirectURL(ctx context.Context, hc handlerContext, req AuthorizationRequest, userID int64) (string, error) {
	at, ttl, err := hc.accessToken(ctx, userID)
	if err != nil {
		return "", err
	}
	return withState(appendQuery(req.RedirectURI, accessTokenParamsOf(at, ttl)...), req.State), nil
}

type idTokenHandler struct{}

func (idTokenHandler) RedirectURL(ctx context.Context, hc handlerContext, req AuthorizationRequest, userID int64) (string, error) {
	idt, err := hc.idToken(ctx, req, userID, "")
	if err != nil {
		return "", err
	}
	return withState(appendQuery(req.RedirectURI, [2]string{"id_token", idt}), req.State), nil
}

type idTokenTokenHandler struct{}

func (idTokenTokenHandler) RedirectURL(ctx context.Context, hc handlerContext, req AuthorizationRequest, userID int64) (string, error) {
	at, ttl, err := hc.accessToken(ctx, userID)
	if err != nil {
		return "", err
	}
	idt, err := hc.idToken(ctx, req, userID, at)
	if err != nil {
		return "", err
	}
	params := append(accessTokenParamsOf(at, ttl), [2]string{"id_token", idt})
	return withState(appendQuery(req.RedirectURI, params...), req.State), nil
}

// deviceHandler completes a device authorization: the user has approved the
// user code carried in the scope, so the pending device becomes a grant the
// polling device can redeem.
type deviceHandler struct{}

func (deviceHandler) RedirectURL(ctx context.Context, hc handlerContext, req AuthorizationRequest, userID int64) (string, error) {
	if !IsDeviceFlow(req.Scope) {
		return "", ErrUserCodeNotFound
	}
	code := NormalizeUserCode(ParseScopeParams(req.Scope).UserCode())
	if code == "" {
		return "", ErrUserCodeNotFound
	}

	dev, err := hc.tx.Devices().GetByUserCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrUserCodeNotFound
		}
		return "", err
	}
	if dev.ClientID != hc.client.ID || dev.IsExpired(hc.now) {
		return "", ErrUserCodeNotFound
	}

	_, err = hc.grants.IssueGrant(ctx, hc.tx.PersistentGrants(), domain.PersistentGrant{
		ClientID:   dev.ClientID,
		SubjectID:  userID,
		GrantType:  domain.PersistentGrantDeviceCode,
		Data:       dev.DeviceCode,
		Scopes:     dev.Scopes,
		SessionID:  hc.sid,
		CreatedAt:  hc.now,
		Expiration: dev.ExpiresIn,
	})
	if err != nil {
		return "", fmt.Errorf("issue device grant: %w", err)
	}

	if err := hc.tx.Devices().DeleteByUserCode(ctx, code); err != nil {
		return "", err
	}
	return hc.deviceSuccessURL, nil
}

func (hc handlerContext) accessToken(ctx context.Context, userID int64) (string, time.Duration, error) {
	return hc.tokens.AccessToken(ctx, hc.tx, accessTokenParams{
		Client:  hc.client,
		Subject: subjectOf(userID),
		Scopes:  hc.scopes,
		SID:     hc.sid,
		AMR:     hc.amr,
		Roles:   hc.user.Roles,
	}, hc.now)
}

func (hc handlerContext) idToken(ctx context.Context, req AuthorizationRequest, userID int64, accessToken string) (string, error) {
	user := hc.user
	user.ID = userID
	return hc.tokens.IDToken(ctx, hc.tx, idTokenParams{
		Client:      hc.client,
		User:        user,
		Scopes:      hc.scopes,
		Nonce:       req.Nonce,
		AuthTime:    hc.now.Unix(),
		AccessToken: accessToken,
		SID:         hc.sid,
	}, hc.now)
}

func accessTokenParamsOf(token string, ttl time.Duration) [][2]string {
	return [][2]string{
		{"access_token", token},
		{"token_type", "Bearer"},
		{"expires_in", strconv.FormatInt(seconds(ttl), 10)},
	}
}

func withState(uri, state string) string {
	if state == "" {
		return uri
	}
	return appendQuery(uri, [2]string{"state", state})
}
