// Package middleware provides HTTP middleware for authentication and authorization.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jonathan/vr-training-admin/internal/apiclient"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

const (
	tokenKey     ContextKey = "token"
	tokenInfoKey ContextKey = "tokenInfo"
)

// TokenValidator checks a bearer token and returns the claims it carries. A nil
// TokenInfo with a nil error means the token is opaque and is accepted as is.
type TokenValidator interface {
	ValidateToken(tokenString string) (*apiclient.TokenInfo, error)
}

// ExpiryValidator rejects tokens whose expiry has passed. Signatures are left to
// the upstream API, which receives the token with every forwarded call.
type ExpiryValidator struct {
	Now func() time.Time
}

// ValidateToken implements TokenValidator.
func (v ExpiryValidator) ValidateToken(tokenString string) (*apiclient.TokenInfo, error) {
	info, err := apiclient.ParseToken(tokenString)
	if err != nil {
		// not a JWT
		return nil, nil
	}
	now := time.Now
	if v.Now != nil {
		now = v.Now
	}
	if info.Expired(now()) {
		return nil, apiclient.ErrTokenExpired
	}
	return info, nil
}

// AuthMiddleware extracts the bearer token, validates it and stores it in the
// request context. Without required, requests carrying no Authorization header
// pass through unauthenticated.
func AuthMiddleware(validator TokenValidator, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				if required {
					unauthorized(w, "missing bearer token")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			// Handle case-insensitive "Bearer" prefix
			parts := strings.Fields(authHeader)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				unauthorized(w, "malformed authorization header")
				return
			}
			tokenString := strings.TrimSpace(parts[1])

			info, err := validator.ValidateToken(tokenString)
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, apiclient.ErrTokenExpired) {
					msg = "token expired"
				}
				unauthorized(w, msg)
				return
			}

			ctx := context.WithValue(r.Context(), tokenKey, tokenString)
			if info != nil {
				ctx = context.WithValue(ctx, tokenInfoKey, info)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetToken returns the bearer token of an authenticated request.
func GetToken(r *http.Request) (string, bool) {
	token, ok := r.Context().Value(tokenKey).(string)
	return token, ok && token != ""
}

// GetTokenInfo returns the decoded claims of the request's token, or nil for
// anonymous requests and opaque tokens.
func GetTokenInfo(r *http.Request) *apiclient.TokenInfo {
	info, _ := r.Context().Value(tokenInfoKey).(*apiclient.TokenInfo)
	return info
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}
