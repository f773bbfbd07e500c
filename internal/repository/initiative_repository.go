package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/anand-fs/plantrack/internal/database"
	"github.com/anand-fs/plantrack/internal/models"
)

// GormInitiativeRepository is a GORM implementation of InitiativeRepository
type GormInitiativeRepository struct {
	db *gorm.DB
}

// NewInitiativeRepository creates a new InitiativeRepository
func NewInitiativeRepository(db *gorm.DB) InitiativeRepository {
	return &GormInitiativeRepository{db: db}
}

func (r *GormInitiativeRepository) Create(ctx context.Context, initiative *models.Initiative, assigneeIDs []uint64) error {
	return r.inTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(initiative).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrCreateInitiative, err)
		}
		if err := assign(tx, initiative.ID, assigneeIDs); err != nil {
			return fmt.Errorf("%w: %v", ErrAssignUsers, err)
		}
		return nil
	})
}

func (r *GormInitiativeRepository) FindByID(ctx context.Context, id uint64, preload ...string) (*models.Initiative, error) {
	var initiative models.Initiative
	query := database.ForUpdate(ctx, withPreloads(database.Conn(ctx, r.db), preload))
	if err := query.First(&initiative, id).Error; err != nil {
		return nil, err
	}
	return &initiative, nil
}

func (r *GormInitiativeRepository) ListByMilestone(ctx context.Context, milestoneID uint64) ([]models.Initiative, error) {
	var initiatives []models.Initiative
	err := database.ForUpdate(ctx, database.Conn(ctx, r.db)).
		Where("milestone_id = ?", milestoneID).
		Order("id ASC").
		Find(&initiatives).Error
	return initiatives, err
}

func (r *GormInitiativeRepository) ListByUser(ctx context.Context, userID uint64) ([]models.Initiative, error) {
	var initiatives []models.Initiative
	err := database.Conn(ctx, r.db).
		Joins("JOIN initiative_assignments ON initiative_assignments.initiative_id = initiatives.id").
		Where("initiative_assignments.user_id = ?", userID).
		Order("initiatives.id ASC").
		Preload("Assignments").
		Find(&initiatives).Error
	return initiatives, err
}

func (r *GormInitiativeRepository) UpdateFieldsIfStatus(ctx context.Context, id uint64, status models.Status, fields map[string]interface{}) (int64, error) {
	return updateFieldsIfStatus(ctx, r.db, &models.Initiative{}, id, status, fields)
}

func (r *GormInitiativeRepository) Delete(ctx context.Context, id uint64) error {
	return r.inTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("initiative_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("initiative_id = ?", id).Delete(&models.InitiativeAssignment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Initiative{}, id).Error
	})
}

func (r *GormInitiativeRepository) ReplaceAssignments(ctx context.Context, initiativeID uint64, userIDs []uint64) error {
	return r.inTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("initiative_id = ?", initiativeID).Delete(&models.InitiativeAssignment{}).Error; err != nil {
			return err
		}
		if err := assign(tx, initiativeID, userIDs); err != nil {
			return fmt.Errorf("%w: %v", ErrAssignUsers, err)
		}
		return nil
	})
}

func (r *GormInitiativeRepository) IsAssigned(ctx context.Context, initiativeID, userID uint64) (bool, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&models.InitiativeAssignment{}).
		Where("initiative_id = ? AND user_id = ?", initiativeID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *GormInitiativeRepository) CountOpenByMilestone(ctx context.Context, milestoneID uint64) (int64, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&models.Initiative{}).
		Where("milestone_id = ? AND status NOT IN ?", milestoneID, terminalStatuses).
		Count(&count).Error
	return count, err
}

func (r *GormInitiativeRepository) UpdateStatusIfCurrent(ctx context.Context, ids []uint64, from, to models.Status) (int64, error) {
	return updateStatusIfCurrent(ctx, r.db, &models.Initiative{}, ids, from, to)
}

// inTx joins the caller's transaction or opens one for a multi-statement write.
func (r *GormInitiativeRepository) inTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if database.InTx(ctx) {
		return fn(database.Conn(ctx, r.db))
	}
	return r.db.WithContext(ctx).Transaction(fn)
}

func assign(tx *gorm.DB, initiativeID uint64, userIDs []uint64) error {
	if len(userIDs) == 0 {
		return nil
	}
	assignments := make([]models.InitiativeAssignment, len(userIDs))
	for i, userID := range userIDs {
		assignments[i] = models.InitiativeAssignment{
			InitiativeID: initiativeID,
			UserID:       userID,
		}
	}
	return tx.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "initiative_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Omit(clause.Associations).
		Create(&assignments).Error
}
