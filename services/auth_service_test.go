package services

import (
	"context"
	"testing"

	"github.com/cornhole-club/league-system/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func TestAuthRegister(t *testing.T) {
	userRepo := newFakeUserRepo()
	service := NewAuthService(userRepo, testSecret)

	t.Run("creates a player and strips the hash", func(t *testing.T) {
		user, err := service.Register(context.Background(), RegisterInput{
			Name:     "Pat Doyle",
			Email:    "Pat@Example.com",
			Password: "corn-toss-21",
		})
		require.NoError(t, err)
		assert.Equal(t, models.RolePlayer, user.Role)
		assert.Equal(t, "pat@example.com", user.Email)
		assert.Empty(t, user.PasswordHash)

		stored, err := userRepo.GetByEmail(context.Background(), "pat@example.com")
		require.NoError(t, err)
		assert.NotEmpty(t, stored.PasswordHash)
		assert.NotEqual(t, "corn-toss-21", stored.PasswordHash)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := service.Register(context.Background(), RegisterInput{
			Name:     "Other Pat",
			Email:    "pat@example.com",
			Password: "corn-toss-22",
		})
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("rejects short passwords and bad emails", func(t *testing.T) {
		_, err := service.Register(context.Background(), RegisterInput{Name: "X", Email: "x@example.com", Password: "short"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		_, err = service.Register(context.Background(), RegisterInput{Name: "X", Email: "not-an-email", Password: "long-enough"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestAuthLogin(t *testing.T) {
	userRepo := newFakeUserRepo()
	service := NewAuthService(userRepo, testSecret)

	_, err := service.Register(context.Background(), RegisterInput{
		Name:     "Pat Doyle",
		Email:    "pat@example.com",
		Password: "corn-toss-21",
	})
	require.NoError(t, err)

	t.Run("valid credentials return a signed token", func(t *testing.T) {
		user, token, err := service.Login(context.Background(), LoginInput{
			Email:    "pat@example.com",
			Password: "corn-toss-21",
		})
		require.NoError(t, err)
		assert.Empty(t, user.PasswordHash)

		claims := jwt.MapClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
			return testSecret, nil
		})
		require.NoError(t, err)
		assert.True(t, parsed.Valid)
		assert.Equal(t, float64(user.ID), claims["user_id"])
		assert.Equal(t, "player", claims["role"])
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := service.Login(context.Background(), LoginInput{
			Email:    "pat@example.com",
			Password: "wrong",
		})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := service.Login(context.Background(), LoginInput{
			Email:    "nobody@example.com",
			Password: "corn-toss-21",
		})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}
