package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msgdeck/internal/shared/authorization"
)

func TestJWTService_RoundTrip(t *testing.T) {
	service := NewJWTService("test-secret", "msgdeck", 30)

	tests := []struct {
		name   string
		userID uint
		role   authorization.UserRole
	}{
		{"user", 7, authorization.RoleUser},
		{"admin", 1, authorization.RoleAdmin},
		{"service", 42, authorization.RoleService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := service.Generate(tt.userID, tt.role)
			require.NoError(t, err)

			claims, err := service.Verify(token)
			require.NoError(t, err)
			assert.Equal(t, tt.userID, claims.UserID)
			assert.Equal(t, tt.role, claims.Role)
			assert.Equal(t, "msgdeck", claims.Issuer)
		})
	}
}

func TestJWTService_Generate_RejectsBadInput(t *testing.T) {
	service := NewJWTService("test-secret", "msgdeck", 30)

	_, err := service.Generate(0, authorization.RoleUser)
	assert.Error(t, err)

	_, err = service.Generate(1, authorization.UserRole("root"))
	assert.Error(t, err)
}

func TestJWTService_Verify_Rejects(t *testing.T) {
	service := NewJWTService("test-secret", "msgdeck", 30)
	valid, err := service.Generate(5, authorization.RoleUser)
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTService("other-secret", "msgdeck", 30)
		_, err := other.Verify(valid)
		assert.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewJWTService("test-secret", "someone-else", 30)
		_, err := other.Verify(valid)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		later := NewJWTService("test-secret", "msgdeck", 30)
		later.now = func() time.Time { return time.Now().Add(time.Hour) }
		_, err := later.Verify(valid)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("none algorithm", func(t *testing.T) {
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: 5, Role: authorization.RoleAdmin}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = service.Verify(unsigned)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := service.Verify("not-a-token")
		assert.Error(t, err)
	})
}
