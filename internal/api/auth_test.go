package api

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestAuthenticated(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"empty", "", false},
		{"opaque", "abc123", true},
		{"jwt without exp", signed(t, jwt.MapClaims{"sub": "user"}), true},
		{"jwt valid", signed(t, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()}), true},
		{"jwt expired", signed(t, jwt.MapClaims{"exp": now.Add(-time.Minute).Unix()}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Authenticated(tt.token, now))
		})
	}
}
