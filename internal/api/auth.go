package api

import (
	"crypto/hmac"
	"log"
	"net/http"
	"strings"
)

// AdminTokenHeader carries the admin token when no bearer token is sent.
const AdminTokenHeader = "X-Admin-Token"

// TokenAuth guards administrative endpoints with a shared secret.
type TokenAuth struct {
	token []byte
}

// NewTokenAuth creates the guard. An empty token lets every request through.
func NewTokenAuth(token string) *TokenAuth {
	if token == "" {
		return &TokenAuth{}
	}
	return &TokenAuth{token: []byte(token)}
}

// Enabled reports whether requests must present the token.
func (a *TokenAuth) Enabled() bool { return len(a.token) > 0 }

// Validate checks the request's token in constant time.
func (a *TokenAuth) Validate(r *http.Request) bool {
	if !a.Enabled() {
		return true
	}
	provided := r.Header.Get(AdminTokenHeader)
	if bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		provided = strings.TrimSpace(bearer)
	}
	if provided == "" {
		return false
	}
	return hmac.Equal([]byte(provided), a.token)
}

// Middleware rejects requests without a valid admin token
func (a *TokenAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Validate(r) {
			log.Printf("🔐 Rejected admin request from %s to %s", GetClientIP(r), r.URL.Path)
			RecordConnectionRejected("auth")
			writeError(w, "Admin authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
