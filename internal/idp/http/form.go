package http

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/bartab-idp/pkg/authsdk"
)

// parseForm checks the content type and parses the body into r.Form. On
// failure the error response has been written.
func parseForm(w http.ResponseWriter, r *http.Request) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		authsdk.ErrInvalidContentType.WriteError(w)
		return false
	}

	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return false
	}
	return true
}

// clientCredentials reads client_secret_basic, falling back to
// client_secret_post.
func clientCredentials(r *http.Request) (id, secret string) {
	if u, p, ok := r.BasicAuth(); ok {
		// RFC 6749 section 2.3.1: both parts are form-urlencoded
		if uu, err := url.QueryUnescape(u); err == nil {
			u = uu
		}
		if pp, err := url.QueryUnescape(p); err == nil {
			p = pp
		}
		return u, p
	}
	return strings.TrimSpace(r.Form.Get("client_id")), r.Form.Get("client_secret")
}
