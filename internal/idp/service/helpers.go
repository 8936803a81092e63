package service

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"net/url"
	"slices"
	"strings"
	"time"
)

const (
	pkceMethodPlain = "plain"
	pkceMethodS256  = "S256"
)

// validatePKCE normalises the code challenge method. required forces a
// challenge to be present.
func validatePKCE(challenge, method string, required bool) (string, string, error) {
	challenge = strings.TrimSpace(challenge)
	method = strings.TrimSpace(method)

	if challenge == "" {
		if required {
			return "", "", ErrInvalidRequest
		}
		if method != "" {
			return "", "", ErrInvalidRequest
		}
		return "", "", nil
	}

	switch {
	case method == "":
		method = pkceMethodS256
	case strings.EqualFold(method, pkceMethodS256):
		method = pkceMethodS256
	case strings.EqualFold(method, pkceMethodPlain):
		method = pkceMethodPlain
	default:
		return "", "", ErrInvalidRequest
	}
	return challenge, method, nil
}

func verifyCodeVerifier(challenge, method, verifier string) bool {
	if challenge == "" {
		return true
	}
	if verifier == "" {
		return false
	}

	var computed string
	switch method {
	case pkceMethodPlain:
		computed = verifier
	default:
		sum := sha256.Sum256([]byte(verifier))
		computed = base64.RawURLEncoding.EncodeToString(sum[:])
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) == 1
}

func dedupe(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it != "" && !slices.Contains(out, it) {
			out = append(out, it)
		}
	}
	return out
}

// isSubset reports whether every requested scope is in allowed.
func isSubset(requested, allowed []string) bool {
	for _, s := range requested {
		if !slices.Contains(allowed, s) {
			return false
		}
	}
	return true
}

// appendQuery adds params to uri in order, starting with "?" or "&" if uri
// already has a query. Values are query escaped.
func appendQuery(uri string, params ...[2]string) string {
	var b strings.Builder
	b.WriteString(uri)
	sep := "?"
	if strings.Contains(uri, "?") {
		sep = "&"
	}
	for _, p := range params {
		b.WriteString(sep)
		b.WriteString(p[0])
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p[1]))
		sep = "&"
	}
	return b.String()
}

func seconds(d time.Duration) int64 { return int64(d / time.Second) }

func nowUTC(clock func() time.Time) time.Time {
	if clock != nil {
		return clock().UTC()
	}
	return time.Now().UTC()
}
