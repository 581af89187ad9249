package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestManager() *JWTManager {
	return NewJWTManager("test-secret", 15*time.Minute, 168*time.Hour)
}

func TestGenerateAndValidateTokenPair(t *testing.T) {
	m := newTestManager()
	userID := uuid.New()
	sessionID := uuid.New()

	pair, err := m.GenerateTokenPair(userID, "user@example.com", &sessionID)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.True(t, pair.ExpiresAt.After(time.Now()))

	claims, err := m.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, userID, claims.UserID)
	require.Equal(t, "user@example.com", claims.Email)
	require.Equal(t, AccessToken, claims.TokenType)
	require.NotNil(t, claims.SessionID)
	require.Equal(t, sessionID, *claims.SessionID)
	require.Equal(t, "peerview", claims.Issuer)

	refreshClaims, err := m.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, userID, refreshClaims.UserID)
	require.Equal(t, RefreshToken, refreshClaims.TokenType)
}

func TestValidateRejectsWrongTokenType(t *testing.T) {
	m := newTestManager()
	userID := uuid.New()

	pair, err := m.GenerateTokenPair(userID, "", nil)
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.ValidateRefreshToken(pair.AccessToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	m := newTestManager()
	other := NewJWTManager("another-secret", 15*time.Minute, 168*time.Hour)

	token, err := m.GenerateAccessToken(uuid.New(), "", nil)
	require.NoError(t, err)

	_, err = other.ValidateAccessToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	m := NewJWTManager("test-secret", -time.Minute, 168*time.Hour)

	token, err := m.GenerateAccessToken(uuid.New(), "", nil)
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(token)
	require.ErrorIs(t, err, ErrExpiredToken)
}

func TestHashTokenIsDeterministic(t *testing.T) {
	require.Equal(t, HashToken("abc"), HashToken("abc"))
	require.NotEqual(t, HashToken("abc"), HashToken("abd"))
	require.Len(t, HashToken("abc"), 64)
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("Sup3rSecret")
	require.NoError(t, err)
	require.NotEqual(t, "Sup3rSecret", hash)

	require.NoError(t, VerifyPassword("Sup3rSecret", hash))
	require.Error(t, VerifyPassword("wrong", hash))
}
