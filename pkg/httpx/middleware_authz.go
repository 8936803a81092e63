package httpx

import (
	"net/http"
	"slices"
	"strings"
)

// RequireScopes rejects callers whose token lacks any of required.
func RequireScopes(required ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			have := scopesFromCtx(r.Context())
			for _, s := range required {
				if !slices.Contains(have, s) {
					w.Header().Set("WWW-Authenticate",
						`Bearer error="insufficient_scope", scope="`+strings.Join(required, " ")+`"`)
					w.WriteHeader(http.StatusForbidden)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
