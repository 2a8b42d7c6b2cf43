package jwtmw

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseClaims は署名を検証してクレームを取り出します。
func parseClaims(t *testing.T, tokenStr, secret string) jwt.MapClaims {
	t.Helper()

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(tok *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	require.NoError(t, err)
	return claims
}

func TestGenerator_GenerateToken(t *testing.T) {
	t.Parallel()

	issued := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		userID     uint
		email      string
		expiration time.Duration
	}{
		{"one hour", 1, "user@example.com", time.Hour},
		{"short lived", 42, "user+tag@example.com", 30 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gen := NewGenerator("test-secret", tt.expiration)
			gen.now = func() time.Time { return issued }

			tokenStr, err := gen.GenerateToken(tt.userID, tt.email)
			require.NoError(t, err)

			claims := parseClaims(t, tokenStr, "test-secret")
			assert.Equal(t, float64(tt.userID), claims["sub"])
			assert.Equal(t, tt.email, claims["email"])
			assert.Equal(t, float64(issued.Unix()), claims["iat"])
			assert.Equal(t, float64(issued.Add(tt.expiration).Unix()), claims["exp"])
		})
	}
}

func TestGenerator_GenerateToken_WrongSecretRejected(t *testing.T) {
	t.Parallel()

	tokenStr, err := NewGenerator("test-secret", time.Hour).GenerateToken(1, "user@example.com")
	require.NoError(t, err)

	_, err = jwt.Parse(tokenStr, func(*jwt.Token) (any, error) { return []byte("other"), nil })
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}
