package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBearerAuth_TokenRoundtrip(t *testing.T) {
	a := NewBearerAuth("test-secret", time.Hour)
	userID := uuid.New()

	token, err := a.IssueToken(userID, "player1")
	require.NoError(t, err)

	user, err := a.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, "player1", user.Username)
}

func TestBearerAuth_ParseToken(t *testing.T) {
	a := NewBearerAuth("test-secret", time.Hour)

	t.Run("garbage token", func(t *testing.T) {
		_, err := a.ParseToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewBearerAuth("other-secret", time.Hour)
		token, err := other.IssueToken(uuid.New(), "player1")
		require.NoError(t, err)

		_, err = a.ParseToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		expired := NewBearerAuth("test-secret", -time.Hour)
		token, err := expired.IssueToken(uuid.New(), "player1")
		require.NoError(t, err)

		_, err = a.ParseToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
