package proxy

import (
	"net/http"
	"strings"
)

// bearerToken extracts the token from an Authorization header. Returns ""
// when the header is missing or not a Bearer scheme.
func bearerToken(h http.Header) string {
	auth := h.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
