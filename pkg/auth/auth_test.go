package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := NewToken("rider-1", RoleRider)
	require.NoError(t, err)

	claims, err := Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "rider-1", claims.Subject)
	assert.Equal(t, RoleRider, claims.Role)
}

func TestParseRejectsTamperedToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := NewToken("rider-1", RoleRider)
	require.NoError(t, err)

	_, err = Parse(token + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "first-secret")
	token, err := NewToken("rider-1", RoleAdmin)
	require.NoError(t, err)

	t.Setenv("JWT_SECRET", "second-secret")
	_, err = Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
