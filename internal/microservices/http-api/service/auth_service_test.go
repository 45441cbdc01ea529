package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestAuthService_ValidateToken(t *testing.T) {
	svc := NewAuthService(testSecret)
	future := time.Now().Add(time.Hour).Unix()

	t.Run("valid access token", func(t *testing.T) {
		token := signToken(t, testSecret, jwt.MapClaims{
			"user_id":  userU,
			"username": "reader",
			"exp":      future,
			"type":     "access",
		})
		claims, err := svc.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, userU, claims.UserID)
		assert.Equal(t, "reader", claims.Username)
	})

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", signToken(t, "other", jwt.MapClaims{"user_id": userU, "exp": future})},
		{"expired", signToken(t, testSecret, jwt.MapClaims{"user_id": userU, "exp": time.Now().Add(-time.Minute).Unix()})},
		{"no expiry", signToken(t, testSecret, jwt.MapClaims{"user_id": userU})},
		{"refresh token", signToken(t, testSecret, jwt.MapClaims{"user_id": userU, "exp": future, "type": "refresh"})},
		{"user id not a uuid", signToken(t, testSecret, jwt.MapClaims{"user_id": "42", "exp": future})},
		{"garbage", "not.a.token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
