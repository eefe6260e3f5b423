package shop

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintAndVerify(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret"), 0)
	user := User{ID: "user-1", Name: "Jordan", Email: "jordan@example.com"}

	token, err := issuer.Mint(user)
	require.NoError(t, err)

	got, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, user.Name, got.Name)
	assert.Equal(t, user.Email, got.Email)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret"), time.Hour)
	other := NewTokenIssuer([]byte("other-secret"), time.Hour)

	user := User{ID: "user-1", Name: "Jordan", Email: "jordan@example.com"}
	foreign, err := other.Mint(user)
	require.NoError(t, err)

	stale, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": user.ID,
		"exp":    time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "wrong secret", token: foreign},
		{name: "expired", token: stale},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := issuer.Verify(tc.token)
			assert.ErrorIs(t, err, ErrUnauthorized)
		})
	}
}

func TestRequireAuth(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret"), time.Hour)
	user := User{ID: "user-1", Name: "Jordan", Email: "jordan@example.com"}
	token, err := issuer.Mint(user)
	require.NoError(t, err)

	var seen User
	handler := issuer.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid bearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user-1", seen.ID)
	})
}
