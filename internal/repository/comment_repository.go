package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/anand-fs/plantrack/internal/database"
	"github.com/anand-fs/plantrack/internal/models"
)

// GormCommentRepository is a GORM implementation of CommentRepository
type GormCommentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &GormCommentRepository{db: db}
}

func (r *GormCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return database.Conn(ctx, r.db).Omit("Author").Create(comment).Error
}

func (r *GormCommentRepository) FindByID(ctx context.Context, id uint64) (*models.Comment, error) {
	var comment models.Comment
	if err := database.Conn(ctx, r.db).Preload("Author").First(&comment, id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *GormCommentRepository) ListByInitiative(ctx context.Context, initiativeID uint64) ([]models.Comment, error) {
	var comments []models.Comment
	err := database.Conn(ctx, r.db).
		Where("initiative_id = ?", initiativeID).
		Order("created_at ASC, id ASC").
		Preload("Author").
		Find(&comments).Error
	return comments, err
}

func (r *GormCommentRepository) Update(ctx context.Context, comment *models.Comment) error {
	return database.Conn(ctx, r.db).Omit("Author").Save(comment).Error
}

func (r *GormCommentRepository) Delete(ctx context.Context, id uint64) error {
	return database.Conn(ctx, r.db).Delete(&models.Comment{}, id).Error
}
