package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonathan/vr-training-admin/internal/apiclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

type captured struct {
	called bool
	token  string
	hasTok bool
	info   *apiclient.TokenInfo
}

func run(t *testing.T, required bool, header string) (*httptest.ResponseRecorder, *captured) {
	t.Helper()
	c := &captured{}
	handler := AuthMiddleware(ExpiryValidator{Now: func() time.Time { return fixedNow }}, required)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c.called = true
			c.token, c.hasTok = GetToken(r)
			c.info = GetTokenInfo(r)
			w.WriteHeader(http.StatusOK)
		}))

	req := httptest.NewRequest(http.MethodGet, "/evaluations", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, c
}

func TestAuthMiddleware_ValidJWT(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"sub": "admin-1", "role": "admin", "exp": fixedNow.Add(time.Hour).Unix()})

	rec, c := run(t, true, "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, c.called)
	assert.True(t, c.hasTok)
	assert.Equal(t, token, c.token)
	require.NotNil(t, c.info)
	assert.Equal(t, "admin-1", c.info.Subject)
}

func TestAuthMiddleware_CaseInsensitiveBearer(t *testing.T) {
	rec, c := run(t, true, "bearer opaque-token")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "opaque-token", c.token)
	assert.Nil(t, c.info)
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	expired := signedToken(t, jwt.MapClaims{"sub": "u", "exp": fixedNow.Add(-time.Minute).Unix()})

	tests := []struct {
		name     string
		required bool
		header   string
		body     string
	}{
		{name: "missing when required", required: true, header: "", body: "missing bearer token"},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz", body: "malformed authorization header"},
		{name: "too many parts", header: "Bearer a b", body: "malformed authorization header"},
		{name: "expired", header: "Bearer " + expired, body: "token expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, c := run(t, tt.required, tt.header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.False(t, c.called)
			assert.Contains(t, rec.Body.String(), tt.body)
			assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
		})
	}
}

func TestAuthMiddleware_OptionalPassesAnonymous(t *testing.T) {
	rec, c := run(t, false, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, c.called)
	assert.False(t, c.hasTok)
	assert.Nil(t, c.info)
}
