package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/anand-fs/plantrack/internal/database"
	"github.com/anand-fs/plantrack/internal/models"
)

var terminalStatuses = []models.Status{models.StatusCompleted, models.StatusCancelled}

// updateStatusIfCurrent runs a conditional bulk update; rows whose status moved
// since they were read are left alone and do not count.
func updateStatusIfCurrent(ctx context.Context, db *gorm.DB, model interface{}, ids []uint64, from, to models.Status) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := database.Conn(ctx, db).
		Model(model).
		Where("id IN ? AND status = ?", ids, from).
		Update("status", to)
	return result.RowsAffected, result.Error
}

func withPreloads(db *gorm.DB, preload []string) *gorm.DB {
	for _, p := range preload {
		db = db.Preload(p)
	}
	return db
}

// updateFieldsIfStatus writes only the given columns, and only while the row is
// still in status. Zero rows affected means the row moved or is gone.
func updateFieldsIfStatus(ctx context.Context, db *gorm.DB, model interface{}, id uint64, status models.Status, fields map[string]interface{}) (int64, error) {
	if len(fields) == 0 {
		return 0, nil
	}
	result := database.Conn(ctx, db).
		Model(model).
		Where("id = ? AND status = ?", id, status).
		Updates(fields)
	return result.RowsAffected, result.Error
}
