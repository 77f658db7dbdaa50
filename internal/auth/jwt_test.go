package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerifyToken(t *testing.T) {
	secret := []byte("test-secret")

	token, err := GenerateToken("alice", "Alice", secret, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := VerifyToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "alice", userID)
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	token, err := GenerateToken("alice", "", []byte("right"), time.Hour)
	require.NoError(t, err)

	_, err = VerifyToken(token, []byte("wrong"))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyToken_Expired(t *testing.T) {
	secret := []byte("test-secret")
	token, err := GenerateToken("alice", "", secret, -time.Minute)
	require.NoError(t, err)

	_, err = VerifyToken(token, secret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyToken_Garbage(t *testing.T) {
	_, err := VerifyToken("not-a-token", []byte("secret"))
	assert.ErrorIs(t, err, ErrInvalidToken)
}
