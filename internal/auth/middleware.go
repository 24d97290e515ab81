package auth

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Middleware guards HTTP routes with bearer-token auth. A nil/empty secret
// disables it, matching deployments that sit behind their own gateway.
type Middleware struct {
	secret []byte
}

func NewMiddleware(secret []byte) *Middleware {
	return &Middleware{secret: secret}
}

// Enabled reports whether requests will be checked.
func (m *Middleware) Enabled() bool { return len(m.secret) > 0 }

// Wrap enforces a valid bearer token when auth is enabled.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeAuthError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if _, err := ParseJWT(token, m.secret); err != nil {
			writeAuthError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeAuthError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}
