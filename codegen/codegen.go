// Package codegen produces short, URL-safe link codes.
// Generators should be safe for concurrent use.
package codegen

import (
	"crypto/rand"
	"errors"
)

const (
	base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// DefaultLength gives 62^6 ≈ 5.7e10 codes; collisions are expected to
	// be rare enough that the store's unique index is a backstop, not the
	// primary avoidance strategy.
	DefaultLength = 6
)

// Generator generates short codes.
// Implementations should be safe for concurrent use.
type Generator interface {
	Generate(length int) (string, error)
}

// base62Generator implements Generator using base62 encoding over
// crypto/rand bytes. It is stateless and safe for concurrent use.
type base62Generator struct{}

// NewBase62 returns a new base62 short-code generator.
func NewBase62() Generator {
	return &base62Generator{}
}

// Generate returns a random base62 string of the specified length.
func (g *base62Generator) Generate(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("length must be positive")
	}

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	for i := range b {
		b[i] = base62Chars[int(b[i])%len(base62Chars)]
	}

	return string(b), nil
}
