package util

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jwtSecret = "localhunt-test-secret"

func TestGenerateTokenPair_Claims(t *testing.T) {
	pair, err := GenerateTokenPair(7, "owner@example.com", "vendor", jwtSecret, 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)

	access, err := ValidateToken(pair.AccessToken, jwtSecret)
	require.NoError(t, err)
	refresh, err := ValidateToken(pair.RefreshToken, jwtSecret)
	require.NoError(t, err)

	assert.Equal(t, uint(7), access.UserID)
	assert.Equal(t, "owner@example.com", access.Email)
	assert.Equal(t, "vendor", access.Role)
	assert.Equal(t, TokenTypeAccess, access.TokenType)
	assert.Equal(t, TokenTypeRefresh, refresh.TokenType)
	assert.Equal(t, "localhunt", access.Issuer)

	// each token carries its own id for revocation
	assert.NotEmpty(t, access.ID)
	assert.NotEqual(t, access.ID, refresh.ID)

	assert.InDelta(t, (15 * time.Minute).Seconds(), access.TokenTTL().Seconds(), 5)
	assert.InDelta(t, (24 * time.Hour).Seconds(), refresh.TokenTTL().Seconds(), 5)
}

func TestValidateToken_Rejects(t *testing.T) {
	pair, err := GenerateTokenPair(1, "a@example.com", "user", jwtSecret, time.Minute, time.Hour)
	require.NoError(t, err)

	expired, err := GenerateTokenPair(1, "a@example.com", "user", jwtSecret, -time.Minute, time.Hour)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		secret  string
		wantErr error
	}{
		{"empty", "", jwtSecret, ErrInvalidToken},
		{"garbage", "not.a.jwt", jwtSecret, ErrInvalidToken},
		{"wrong secret", pair.AccessToken, "other-secret", ErrInvalidToken},
		{"expired", expired.AccessToken, jwtSecret, ErrExpiredToken},
		{"alg none", unsigned, jwtSecret, ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ValidateToken(tt.token, tt.secret)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, claims)
		})
	}
}

func TestTokenTTL(t *testing.T) {
	assert.Zero(t, (&Claims{}).TokenTTL())

	past := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}}
	assert.Zero(t, past.TokenTTL())
}
