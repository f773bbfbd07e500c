package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anand-fs/plantrack/internal/models"
)

const testSecret = "a-test-secret-that-is-long-enough-for-hs256"

func testUser() *models.User {
	return &models.User{ID: 42, Email: "manager@example.com", Role: models.RoleManager}
}

func TestNewTokenManagerRequiresSecret(t *testing.T) {
	_, err := NewTokenManager("", time.Hour)
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestGenerateAndValidate(t *testing.T) {
	m, err := NewTokenManager(testSecret, 5*time.Minute)
	require.NoError(t, err)

	t.Run("ValidToken", func(t *testing.T) {
		token, expiresAt, err := m.Generate(testUser())
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(5*time.Minute), expiresAt, 5*time.Second)

		claims, err := m.Validate(token)
		require.NoError(t, err)
		assert.Equal(t, uint64(42), claims.UserID)
		assert.Equal(t, "manager@example.com", claims.Email)
		assert.Equal(t, models.RoleManager, claims.Role)
		assert.Equal(t, "42", claims.Subject)
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		token, _, err := m.Generate(testUser())
		require.NoError(t, err)

		later := &TokenManager{secret: m.secret, ttl: m.ttl, now: func() time.Time { return time.Now().Add(time.Hour) }}
		_, err = later.Validate(token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("InvalidSignature", func(t *testing.T) {
		token, _, err := m.Generate(testUser())
		require.NoError(t, err)

		other, err := NewTokenManager("a-different-secret-that-is-also-long-enough", time.Minute)
		require.NoError(t, err)
		_, err = other.Validate(token)
		assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := m.Validate("not-a-token")
		assert.ErrorIs(t, err, jwt.ErrTokenMalformed)
	})
}
