package gateway

import (
	"crypto/subtle"
	"strings"
)

// AuthGate checks the caller's token and the collection namespace
type AuthGate struct {
	token  string
	prefix string
}

// NewAuthGate creates a gate for the given shared secret and collection prefix
func NewAuthGate(token, prefix string) *AuthGate {
	return &AuthGate{token: token, prefix: prefix}
}

// Check returns ErrUnauthorized or ErrForbidden, token first
func (g *AuthGate) Check(token, collection string) error {
	if subtle.ConstantTimeCompare([]byte(token), []byte(g.token)) != 1 {
		return ErrUnauthorized
	}
	if !strings.HasPrefix(collection, g.prefix) {
		return ErrForbidden
	}
	return nil
}
