package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func testClaims() Claims {
	return Claims{
		UserID: "user-1",
		Email:  "ops@example.com",
		Roles:  []string{"operator"},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "optigroup",
			Audience:  jwt.ClaimStrings{"optigroup-api"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func newTestValidator(t *testing.T) *JWTValidator {
	t.Helper()
	v, err := NewJWTValidator(JWTConfig{
		SecretKey: testSecret,
		Issuer:    "optigroup",
		Audience:  []string{"optigroup-api"},
	})
	require.NoError(t, err)
	return v
}

func TestNewJWTValidator(t *testing.T) {
	t.Run("rejects an empty secret", func(t *testing.T) {
		_, err := NewJWTValidator(JWTConfig{})
		assert.Error(t, err)
	})
}

func TestValidateToken(t *testing.T) {
	validator := newTestValidator(t)

	t.Run("accepts a valid token", func(t *testing.T) {
		token := signToken(t, testSecret, testClaims())

		claims, err := validator.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
		assert.Equal(t, "ops@example.com", claims.Email)
		assert.Equal(t, []string{"operator"}, claims.Roles)
	})

	t.Run("strips a Bearer prefix", func(t *testing.T) {
		token := signToken(t, testSecret, testClaims())

		claims, err := validator.ValidateToken("Bearer " + token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
	})

	t.Run("rejects an empty token", func(t *testing.T) {
		_, err := validator.ValidateToken("")
		assert.ErrorIs(t, err, ErrMissingToken)
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		claims := testClaims()
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
		token := signToken(t, testSecret, claims)

		_, err := validator.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("rejects a token signed with another key", func(t *testing.T) {
		token := signToken(t, "other-secret", testClaims())

		_, err := validator.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("rejects a wrong issuer", func(t *testing.T) {
		claims := testClaims()
		claims.Issuer = "someone-else"
		token := signToken(t, testSecret, claims)

		_, err := validator.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidClaims)
	})

	t.Run("rejects a wrong audience", func(t *testing.T) {
		claims := testClaims()
		claims.Audience = jwt.ClaimStrings{"another-api"}
		token := signToken(t, testSecret, claims)

		_, err := validator.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidClaims)
	})

	t.Run("rejects a token without a subject", func(t *testing.T) {
		claims := testClaims()
		claims.UserID = ""
		token := signToken(t, testSecret, claims)

		_, err := validator.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidClaims)
	})
}

func TestUserContext(t *testing.T) {
	t.Run("round trips through context", func(t *testing.T) {
		user := &UserContext{UserID: "user-1", Roles: []string{"operator"}}
		ctx := SetUserInContext(context.Background(), user)

		got, err := GetUserFromContext(ctx)
		require.NoError(t, err)
		assert.Equal(t, user, got)
	})

	t.Run("missing user is an error", func(t *testing.T) {
		_, err := GetUserFromContext(context.Background())
		assert.Error(t, err)
	})
}
