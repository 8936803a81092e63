package httpx

import (
	"context"

	"github.com/aussiebroadwan/bartab-idp/pkg/jwtx"
)

type ctxKey string

const (
	CtxKeySubject ctxKey = "subject"
	CtxKeyScopes  ctxKey = "scopes"
	CtxKeyClaims  ctxKey = "claims"
)

func contextWithClaims(ctx context.Context, c *jwtx.AccessClaims) context.Context {
	ctx = context.WithValue(ctx, CtxKeySubject, c.Subject)
	ctx = context.WithValue(ctx, CtxKeyScopes, ParseSpaceDelimitedFields(c.Scope))
	return context.WithValue(ctx, CtxKeyClaims, c)
}

// ClaimsFromContext returns the access token claims put there by
// AuthnMiddleware.
func ClaimsFromContext(ctx context.Context) (*jwtx.AccessClaims, bool) {
	c, ok := ctx.Value(CtxKeyClaims).(*jwtx.AccessClaims)
	return c, ok
}

// SubjectFromContext returns the authenticated subject, or "".
func SubjectFromContext(ctx context.Context) string {
	s, _ := ctx.Value(CtxKeySubject).(string)
	return s
}

func scopesFromCtx(ctx context.Context) []string {
	s, _ := ctx.Value(CtxKeyScopes).([]string)
	return s
}
