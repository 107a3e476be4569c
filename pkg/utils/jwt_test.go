package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenPairRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret")

	access, refresh, expiresIn, err := svc.GenerateTokenPair("user-1", "user@club.test")
	require.NoError(t, err)
	assert.NotEqual(t, access, refresh)
	assert.Positive(t, expiresIn)

	claims, err := svc.ValidateAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "user@club.test", claims.Email)
	assert.Equal(t, "access", claims.Type)

	refreshClaims, err := svc.ValidateRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, "refresh", refreshClaims.Type)
}

func TestTokenTypeEnforcement(t *testing.T) {
	svc := NewJWTService("test-secret")
	access, refresh, _, err := svc.GenerateTokenPair("user-1", "user@club.test")
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(refresh)
	assert.Error(t, err)

	_, err = svc.ValidateRefreshToken(access)
	assert.Error(t, err)

	// Refresh only accepts refresh tokens.
	_, _, err = svc.RefreshAccessToken(access)
	assert.Error(t, err)

	newAccess, expiresIn, err := svc.RefreshAccessToken(refresh)
	require.NoError(t, err)
	assert.Positive(t, expiresIn)

	claims, err := svc.ValidateAccessToken(newAccess)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
}

func TestWrongSecretIsRejected(t *testing.T) {
	access, _, _, err := NewJWTService("secret-a").GenerateTokenPair("user-1", "user@club.test")
	require.NoError(t, err)

	_, err = NewJWTService("secret-b").ValidateToken(access)
	assert.Error(t, err)
}
