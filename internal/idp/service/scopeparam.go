package service

import (
	"net/url"
	"strings"
)

const userCodeParam = "user_code"

// ScopeParams are key=value pairs smuggled through the scope parameter. The
// device flow uses "user_code=XXXXXXXX" to carry the code into the
// authorization request.
type ScopeParams map[string]string

// ParseScopeParams reads "key=value&key=value" pairs from scope. Plain scope
// names without "=" are ignored.
func ParseScopeParams(scope string) ScopeParams {
	out := ScopeParams{}
	for _, field := range strings.Fields(scope) {
		for _, pair := range strings.Split(field, "&") {
			k, v, ok := strings.Cut(pair, "=")
			if !ok || k == "" {
				continue
			}
			if uk, err := url.QueryUnescape(k); err == nil {
				k = uk
			}
			if uv, err := url.QueryUnescape(v); err == nil {
				v = uv
			}
			out[k] = v
		}
	}
	return out
}

func (p ScopeParams) UserCode() string { return p[userCodeParam] }

// IsDeviceFlow reports a scope that carries a device user code.
func IsDeviceFlow(scope string) bool {
	return ParseScopeParams(scope).UserCode() != ""
}

func userCodeScope(code string) string {
	return userCodeParam + "=" + code
}
