package shop

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ErrUnauthorized covers missing, malformed, or expired bearer tokens.
var ErrUnauthorized = errors.New("unauthorized")

// TokenIssuer mints and verifies the session tokens returned by login and
// register. The token is transport auth only; the persisted identity in the
// user store is the source of truth and does not expire.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer builds an HS256 issuer. A zero ttl defaults to 24 hours.
func NewTokenIssuer(secret []byte, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{secret: secret, ttl: ttl}
}

// Mint signs a token carrying the identity claims.
func (t *TokenIssuer) Mint(user User) (string, error) {
	claims := jwt.MapClaims{
		"userId": user.ID,
		"name":   user.Name,
		"email":  user.Email,
		"exp":    time.Now().Add(t.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses the token and returns the embedded identity claims.
func (t *TokenIssuer) Verify(tokenString string) (User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return User{}, ErrUnauthorized
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return User{}, ErrUnauthorized
	}
	userID, _ := claims["userId"].(string)
	if userID == "" {
		return User{}, ErrUnauthorized
	}
	name, _ := claims["name"].(string)
	email, _ := claims["email"].(string)
	return User{ID: userID, Name: name, Email: email}, nil
}

type contextKey string

const identityContextKey contextKey = "storefront.identity"

// IdentityFrom extracts the verified identity placed by RequireAuth.
func IdentityFrom(ctx context.Context) (User, bool) {
	user, ok := ctx.Value(identityContextKey).(User)
	return user, ok
}

// RequireAuth guards a route group with bearer-token verification.
func (t *TokenIssuer) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("Authorization")
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "token required")
			return
		}
		raw = strings.TrimPrefix(raw, "Bearer ")
		user, err := t.Verify(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		ctx := context.WithValue(r.Context(), identityContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
