package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthGate_Check(t *testing.T) {
	gate := NewAuthGate("xyz", "tenantA_")

	tests := []struct {
		name       string
		token      string
		collection string
		expected   error
	}{
		{"valid token and prefix", "xyz", "tenantA_logs", nil},
		{"exact prefix", "xyz", "tenantA_", nil},
		{"wrong token", "abc", "tenantA_logs", ErrUnauthorized},
		{"empty token", "", "tenantA_logs", ErrUnauthorized},
		{"token prefix of secret", "xy", "tenantA_logs", ErrUnauthorized},
		{"wrong token and wrong prefix", "abc", "tenantB_logs", ErrUnauthorized},
		{"wrong prefix", "xyz", "tenantB_logs", ErrForbidden},
		{"prefix case differs", "xyz", "TENANTA_logs", ErrForbidden},
		{"empty collection", "xyz", "", ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, gate.Check(tt.token, tt.collection))
		})
	}
}
