package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// AdminAuth gates mutating endpoints behind the shared admin secret. The
// secret is hashed once at startup; requests present it as a bearer token.
type AdminAuth struct {
	hash []byte
}

func NewAdminAuth(password string) (*AdminAuth, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin password: %w", err)
	}
	return &AdminAuth{hash: hash}, nil
}

// RequireAdmin rejects requests whose bearer token doesn't match the
// shared admin secret
func (a *AdminAuth) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" || bcrypt.CompareHashAndPassword(a.hash, []byte(token)) != nil {
			WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Admin credentials required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
