package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anand-fs/plantrack/internal/database"
	"github.com/anand-fs/plantrack/internal/lifecycle"
	"github.com/anand-fs/plantrack/internal/models"
	"github.com/anand-fs/plantrack/internal/repository"
)

func setupAuthServiceTest(t *testing.T) (*AuthService, Deps) {
	t.Helper()

	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	deps := NewDeps(db, lifecycle.Policy{}, nil)
	return NewAuthService(deps), deps
}

func TestRegisterAndLogin(t *testing.T) {
	svc, deps := setupAuthServiceTest(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{
		Name:       "Alice",
		Email:      "  Alice@Example.com ",
		Password:   "password123",
		Department: "Platform",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, models.RoleEmployee, user.Role)
	assert.NotEqual(t, "password123", user.PasswordHash)

	entityType := models.EntityUser
	logs, _, err := deps.AuditLogs.List(ctx, repository.AuditLogFilter{EntityType: &entityType, EntityID: &user.ID})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.AuditActionCreate, logs[0].Action)

	_, err = svc.Register(ctx, RegisterInput{Name: "Again", Email: "alice@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	loggedIn, err := svc.Login(ctx, LoginInput{Email: "ALICE@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)

	_, err = svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc, _ := setupAuthServiceTest(t)

	_, err := svc.Register(context.Background(), RegisterInput{Name: "Bob", Email: "bob@example.com", Password: "short"})
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	svc, deps := setupAuthServiceTest(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Name: "Carol", Email: "carol@example.com", Password: "password123"})
	require.NoError(t, err)

	user.Status = models.UserStatusInactive
	require.NoError(t, deps.Users.Update(ctx, user))

	_, err = svc.Login(ctx, LoginInput{Email: "carol@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrUserInactive)
}
