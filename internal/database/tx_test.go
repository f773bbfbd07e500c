package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anand-fs/plantrack/internal/models"
)

func TestTransactor_RollsBackOnError(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)

	tr := NewTransactor(db)
	boom := errors.New("boom")

	err = tr.InTx(context.Background(), func(ctx context.Context) error {
		user := &models.User{Name: "a", Email: "a@example.com", PasswordHash: "x", Role: models.RoleEmployee, Status: models.UserStatusActive}
		require.NoError(t, Conn(ctx, db).Create(user).Error)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestTransactor_JoinsOuterTransaction(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)

	tr := NewTransactor(db)
	boom := errors.New("outer failure")

	err = tr.InTx(context.Background(), func(ctx context.Context) error {
		innerErr := tr.InTx(ctx, func(ctx context.Context) error {
			user := &models.User{Name: "b", Email: "b@example.com", PasswordHash: "x", Role: models.RoleEmployee, Status: models.UserStatusActive}
			return Conn(ctx, db).Create(user).Error
		})
		require.NoError(t, innerErr)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Zero(t, count, "inner work must roll back with the outer transaction")
}

func TestForUpdate_SkipsSQLite(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)

	ctx := WithRowLocks(context.Background())
	var plans []models.Plan
	require.NoError(t, ForUpdate(ctx, db.WithContext(ctx)).Find(&plans).Error)
}
