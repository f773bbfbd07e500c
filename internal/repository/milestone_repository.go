package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/anand-fs/plantrack/internal/database"
	"github.com/anand-fs/plantrack/internal/models"
)

// GormMilestoneRepository is a GORM implementation of MilestoneRepository
type GormMilestoneRepository struct {
	db *gorm.DB
}

// NewMilestoneRepository creates a new MilestoneRepository
func NewMilestoneRepository(db *gorm.DB) MilestoneRepository {
	return &GormMilestoneRepository{db: db}
}

func (r *GormMilestoneRepository) Create(ctx context.Context, milestone *models.Milestone) error {
	return database.Conn(ctx, r.db).Omit("Plan", "Initiatives").Create(milestone).Error
}

func (r *GormMilestoneRepository) FindByID(ctx context.Context, id uint64, preload ...string) (*models.Milestone, error) {
	var milestone models.Milestone
	query := database.ForUpdate(ctx, withPreloads(database.Conn(ctx, r.db), preload))
	if err := query.First(&milestone, id).Error; err != nil {
		return nil, err
	}
	return &milestone, nil
}

func (r *GormMilestoneRepository) ListByPlan(ctx context.Context, planID uint64) ([]models.Milestone, error) {
	var milestones []models.Milestone
	err := database.ForUpdate(ctx, database.Conn(ctx, r.db)).
		Where("plan_id = ?", planID).
		Order("sequence ASC, id ASC").
		Find(&milestones).Error
	return milestones, err
}

func (r *GormMilestoneRepository) UpdateFieldsIfStatus(ctx context.Context, id uint64, status models.Status, fields map[string]interface{}) (int64, error) {
	return updateFieldsIfStatus(ctx, r.db, &models.Milestone{}, id, status, fields)
}

func (r *GormMilestoneRepository) Delete(ctx context.Context, id uint64) error {
	return database.Conn(ctx, r.db).Delete(&models.Milestone{}, id).Error
}

func (r *GormMilestoneRepository) CountOpenByPlan(ctx context.Context, planID uint64) (int64, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&models.Milestone{}).
		Where("plan_id = ? AND status NOT IN ?", planID, terminalStatuses).
		Count(&count).Error
	return count, err
}

func (r *GormMilestoneRepository) UpdateStatusIfCurrent(ctx context.Context, ids []uint64, from, to models.Status) (int64, error) {
	return updateStatusIfCurrent(ctx, r.db, &models.Milestone{}, ids, from, to)
}
