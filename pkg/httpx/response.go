package httpx

import (
	"encoding/json"
	"net/http"
	"strings"
)

// WriteJSON writes v as an uncacheable JSON response.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache marks a response as not storable, as required for token responses.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// Found redirects with 302 to an already built URL.
func Found(w http.ResponseWriter, location string) {
	NoCache(w)
	w.Header().Set("Location", location)
	w.WriteHeader(http.StatusFound)
}

// ParseSpaceDelimitedFields splits space separated lists such as scopes.
// Blank input yields nil.
func ParseSpaceDelimitedFields(s string) []string {
	f := strings.Fields(s)
	if len(f) == 0 {
		return nil
	}
	return f
}
