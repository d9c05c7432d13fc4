package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	tok, issued, err := GenerateToken("user-1", "a@example.com", "secret", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, issued.ID)

	claims, err := ValidateToken(tok, "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.Equal(t, issued.ID, claims.ID)
}

func TestTokensHaveDistinctIDs(t *testing.T) {
	_, a, err := GenerateToken("user-1", "a@example.com", "secret", time.Hour)
	require.NoError(t, err)
	_, b, err := GenerateToken("user-1", "a@example.com", "secret", time.Hour)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
}

func TestValidateToken_Expired(t *testing.T) {
	tok, _, err := GenerateToken("user-1", "a@example.com", "secret", -time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken(tok, "secret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	tok, _, err := GenerateToken("user-1", "a@example.com", "right", time.Hour)
	require.NoError(t, err)

	_, err = ValidateToken(tok, "wrong")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_Garbage(t *testing.T) {
	_, err := ValidateToken("not.a.token", "secret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
