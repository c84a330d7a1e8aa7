package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessling/optic-api/internal/api/shared"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

// ownerEcho records the owner ID the middleware resolved, if any.
func ownerEcho(gotOwner *string, called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		if ownerID, ok := shared.GetOwnerID(r.Context()); ok {
			*gotOwner = ownerID
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate_NoHeaderPassesThrough(t *testing.T) {
	t.Parallel()

	var owner string
	var called bool
	handler := NewAuthMiddleware(testSecret).Authenticate(ownerEcho(&owner, &called))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	assert.True(t, called)
	assert.Empty(t, owner, "no owner ID without a token")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthenticate_ValidTokenSetsOwner(t *testing.T) {
	t.Parallel()

	var owner string
	var called bool
	handler := NewAuthMiddleware(testSecret).Authenticate(ownerEcho(&owner, &called))

	token := signToken(t, testSecret, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.True(t, called)
	assert.Equal(t, "user-1", owner)
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	t.Parallel()

	var owner string
	var called bool
	handler := NewAuthMiddleware(testSecret).Authenticate(ownerEcho(&owner, &called))

	token := signToken(t, testSecret, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Token expired")
}

func TestAuthenticate_RejectsBadTokens(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
	}{
		{"garbage token", "Bearer not.a.token"},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
		{"wrong signature", "Bearer " + mustSign(jwt.MapClaims{"sub": "user-1"}, "wrong-secret-wrong-secret-wrong!")},
		{"missing subject", "Bearer " + mustSign(jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}, testSecret)},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var owner string
			var called bool
			handler := NewAuthMiddleware(testSecret).Authenticate(ownerEcho(&owner, &called))

			req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
			req.Header.Set("Authorization", tc.header)

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.False(t, called)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestAuthenticate_DisabledWithoutSecret(t *testing.T) {
	t.Parallel()

	var owner string
	var called bool
	handler := NewAuthMiddleware("").Authenticate(ownerEcho(&owner, &called))

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("Authorization", "Bearer whatever")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.True(t, called, "verification is disabled without a secret")
	assert.Empty(t, owner)
}

func mustSign(claims jwt.MapClaims, secret string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		panic(err)
	}
	return signed
}
