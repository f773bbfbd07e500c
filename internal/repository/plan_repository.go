package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/anand-fs/plantrack/internal/database"
	"github.com/anand-fs/plantrack/internal/models"
	"github.com/anand-fs/plantrack/internal/utils"
)

// GormPlanRepository is a GORM implementation of PlanRepository
type GormPlanRepository struct {
	db *gorm.DB
}

// NewPlanRepository creates a new PlanRepository
func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &GormPlanRepository{db: db}
}

func (r *GormPlanRepository) Create(ctx context.Context, plan *models.Plan) error {
	return database.Conn(ctx, r.db).Omit("Owner", "Milestones").Create(plan).Error
}

func (r *GormPlanRepository) FindByID(ctx context.Context, id uint64, preload ...string) (*models.Plan, error) {
	var plan models.Plan
	query := database.ForUpdate(ctx, withPreloads(database.Conn(ctx, r.db), preload))
	if err := query.First(&plan, id).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *GormPlanRepository) List(ctx context.Context, params utils.PaginationParams) ([]models.Plan, int64, error) {
	var plans []models.Plan
	var total int64

	query := database.Conn(ctx, r.db).Model(&models.Plan{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("created_at DESC, id DESC").
		Scopes(database.Paginate(params)).
		Preload("Owner").
		Find(&plans).Error; err != nil {
		return nil, 0, err
	}
	return plans, total, nil
}

func (r *GormPlanRepository) ListByOwner(ctx context.Context, userID uint64) ([]models.Plan, error) {
	var plans []models.Plan
	err := database.Conn(ctx, r.db).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&plans).Error
	return plans, err
}

func (r *GormPlanRepository) ListWithAssignedInitiatives(ctx context.Context, userID uint64) ([]models.Plan, error) {
	db := database.Conn(ctx, r.db)

	assigned := db.Model(&models.Milestone{}).
		Select("milestones.plan_id").
		Joins("JOIN initiatives ON initiatives.milestone_id = milestones.id").
		Joins("JOIN initiative_assignments ON initiative_assignments.initiative_id = initiatives.id").
		Where("initiative_assignments.user_id = ?", userID)

	var plans []models.Plan
	err := db.Where("id IN (?)", assigned).
		Order("id ASC").
		Find(&plans).Error
	return plans, err
}

func (r *GormPlanRepository) UpdateFieldsIfStatus(ctx context.Context, id uint64, status models.Status, fields map[string]interface{}) (int64, error) {
	return updateFieldsIfStatus(ctx, r.db, &models.Plan{}, id, status, fields)
}

func (r *GormPlanRepository) Delete(ctx context.Context, id uint64) error {
	return database.Conn(ctx, r.db).Delete(&models.Plan{}, id).Error
}

func (r *GormPlanRepository) UpdateStatusIfCurrent(ctx context.Context, ids []uint64, from, to models.Status) (int64, error) {
	return updateStatusIfCurrent(ctx, r.db, &models.Plan{}, ids, from, to)
}
