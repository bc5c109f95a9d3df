package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lucashdiniz/finapi/internal/domain"
	"github.com/lucashdiniz/finapi/internal/repository"
	"github.com/lucashdiniz/finapi/internal/service"
)

func TestCreateUser(t *testing.T) {
	users := repository.NewMemoryUserRepository()
	svc := service.NewUserService(users)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, "Alice", "alice@test.com", "password123")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "Alice", user.Name)
	assert.Equal(t, "alice@test.com", user.Email)

	// Credential is stored hashed, never verbatim.
	assert.NotEqual(t, "password123", user.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("password123")))
}

func TestCreateUser_EmailTaken(t *testing.T) {
	users := repository.NewMemoryUserRepository()
	svc := service.NewUserService(users)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, "Alice", "alice@test.com", "password123")
	require.NoError(t, err)

	_, err = svc.CreateUser(ctx, "Other Alice", "alice@test.com", "different456")
	require.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestGetProfile(t *testing.T) {
	users := repository.NewMemoryUserRepository()
	svc := service.NewUserService(users)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, "Alice", "alice@test.com", "password123")
	require.NoError(t, err)

	got, err := svc.GetProfile(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = svc.GetProfile(ctx, uuid.New())
	require.ErrorIs(t, err, domain.ErrNotFound)
}
