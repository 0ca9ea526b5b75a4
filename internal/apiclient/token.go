package apiclient

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo is what the dashboard reads out of an access token. The signature is
// not checked here; the API verifies it on every request.
type TokenInfo struct {
	Subject     string
	Role        string
	Permissions []string
	ExpiresAt   *time.Time
}

type tokenClaims struct {
	UserID      string   `json:"userId"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// ParseToken decodes the claims of a JWT without verifying it.
func ParseToken(token string) (*TokenInfo, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return nil, fmt.Errorf("token string is empty")
	}

	claims := &tokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	info := &TokenInfo{
		Subject:     claims.Subject,
		Role:        claims.Role,
		Permissions: claims.Permissions,
	}
	if info.Subject == "" {
		info.Subject = claims.UserID
	}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		info.ExpiresAt = &exp
	}
	return info, nil
}

// Expired reports whether the token's expiry is at or before now. Tokens
// without an expiry never expire.
func (t *TokenInfo) Expired(now time.Time) bool {
	return t != nil && t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}

// Grants returns the permissions carried by the token. Admins are granted everything.
func (t *TokenInfo) Grants() []string {
	if t == nil {
		return nil
	}
	if strings.EqualFold(t.Role, "admin") {
		return []string{"*"}
	}
	return t.Permissions
}
