package middleware

import (
	"net/http"
	"strings"
)

// Vary returns middleware that adds Accept to the Vary header, since
// responses are negotiated between JSON and CBOR. CORS adds Origin itself.
func Vary() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			EnsureVary(w.Header(), "Accept")
			next.ServeHTTP(w, r)
		})
	}
}

// EnsureVary appends each value to the Vary header unless already listed.
func EnsureVary(h http.Header, values ...string) {
	present := make(map[string]struct{})
	for _, line := range h.Values("Vary") {
		for part := range strings.SplitSeq(line, ",") {
			if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
				present[p] = struct{}{}
			}
		}
	}
	for _, v := range values {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := present[key]; ok {
			continue
		}
		present[key] = struct{}{}
		h.Add("Vary", v)
	}
}
