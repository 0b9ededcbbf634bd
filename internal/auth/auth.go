// Package auth verifies signed sessions issued by the identity provider.
// The provider signs session tokens with a shared HS256 secret; this
// service verifies the signature and trusts the embedded user id without
// re-checking it anywhere else.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Claims carries the stable user identity inside a session token.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// Manager verifies session tokens and, for tests and tooling, issues them.
type Manager struct {
	secret   []byte
	tokenTTL time.Duration
}

// NewManager creates a token manager with the shared signing secret.
func NewManager(secret string, tokenTTL time.Duration) *Manager {
	return &Manager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
	}
}

// Issue signs a session token for the given user id.
func (m *Manager) Issue(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("user id cannot be empty")
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenTTL)),
		},
		UserID: userID,
	})

	return token.SignedString(m.secret)
}

// Verify parses a session token and returns the user id it carries.
func (m *Manager) Verify(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return m.secret, nil
		})
	if err != nil {
		return "", fmt.Errorf("token error: %w", err)
	}

	if !token.Valid {
		return "", errors.New("token is not valid")
	}

	if claims.UserID == "" {
		return "", errors.New("token is valid but user id is missing")
	}

	return claims.UserID, nil
}
