package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/escrowledger/internal/domain"
)

func TestJWTManagerGenerateAndVerify(t *testing.T) {
	t.Parallel()

	manager := NewJWTManager("super-secret", time.Minute)

	token, err := manager.Generate("alice")
	require.NoError(t, err)

	claims, err := manager.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Account)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, &domain.Identity{Name: "alice"}, claims.Identity())
}

func TestJWTManagerGenerateRejectsBadAccount(t *testing.T) {
	t.Parallel()

	_, err := NewJWTManager("secret", time.Minute).Generate("")
	assert.ErrorIs(t, err, domain.ErrInvalidBody)
}

func TestJWTManagerVerifyErrors(t *testing.T) {
	t.Parallel()

	manager := NewJWTManager("secret", time.Minute)

	t.Run("expired", func(t *testing.T) {
		past := NewJWTManager("secret", time.Minute)
		past.now = func() time.Time { return time.Now().Add(-time.Hour) }

		token, err := past.Generate("alice")
		require.NoError(t, err)

		_, err = manager.Verify(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := NewJWTManager("other", time.Minute).Generate("alice")
		require.NoError(t, err)

		_, err = manager.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong signing method", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Account: "alice"})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = manager.Verify(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing account", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute))},
		})
		signed, err := token.SignedString([]byte("secret"))
		require.NoError(t, err)

		_, err = manager.Verify(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := manager.Verify("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
