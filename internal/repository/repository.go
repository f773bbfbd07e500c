package repository

import (
	"context"
	"errors"
	"time"

	"github.com/anand-fs/plantrack/internal/models"
	"github.com/anand-fs/plantrack/internal/utils"
)

var (
	ErrCreatePlan       = errors.New("failed to create plan")
	ErrCreateMilestone  = errors.New("failed to create milestone")
	ErrCreateInitiative = errors.New("failed to create initiative")
	ErrAssignUsers      = errors.New("failed to assign users")
	ErrCreateAuditLog   = errors.New("failed to create audit log")
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// List retrieves users with pagination
	List(ctx context.Context, params utils.PaginationParams) ([]models.User, int64, error)

	// Update updates a user
	Update(ctx context.Context, user *models.User) error

	// Delete soft deletes a user
	Delete(ctx context.Context, id uint64) error

	// CountActiveByIDs counts how many of the given user IDs exist with ACTIVE status
	CountActiveByIDs(ctx context.Context, ids []uint64) (int64, error)
}

// PlanRepository defines the interface for plan data access
type PlanRepository interface {
	Create(ctx context.Context, plan *models.Plan) error

	// FindByID finds a plan by ID. Takes a row lock when the context asks for one.
	FindByID(ctx context.Context, id uint64, preload ...string) (*models.Plan, error)

	List(ctx context.Context, params utils.PaginationParams) ([]models.Plan, int64, error)

	ListByOwner(ctx context.Context, userID uint64) ([]models.Plan, error)

	// ListWithAssignedInitiatives lists plans containing at least one initiative assigned to the user
	ListWithAssignedInitiatives(ctx context.Context, userID uint64) ([]models.Plan, error)

	// UpdateFieldsIfStatus writes the given columns while the plan is still in status
	// and returns how many rows changed
	UpdateFieldsIfStatus(ctx context.Context, id uint64, status models.Status, fields map[string]interface{}) (int64, error)

	// Delete soft deletes a plan
	Delete(ctx context.Context, id uint64) error

	// UpdateStatusIfCurrent moves every listed plan still in status from to status to
	// and returns how many rows changed
	UpdateStatusIfCurrent(ctx context.Context, ids []uint64, from, to models.Status) (int64, error)
}

// MilestoneRepository defines the interface for milestone data access
type MilestoneRepository interface {
	Create(ctx context.Context, milestone *models.Milestone) error

	// FindByID finds a milestone by ID. Takes a row lock when the context asks for one.
	FindByID(ctx context.Context, id uint64, preload ...string) (*models.Milestone, error)

	// ListByPlan lists the plan's milestones ordered by sequence, then ID.
	// Takes row locks when the context asks for them.
	ListByPlan(ctx context.Context, planID uint64) ([]models.Milestone, error)

	UpdateFieldsIfStatus(ctx context.Context, id uint64, status models.Status, fields map[string]interface{}) (int64, error)

	// Delete soft deletes a milestone
	Delete(ctx context.Context, id uint64) error

	// CountOpenByPlan counts the plan's milestones that are not in a terminal status
	CountOpenByPlan(ctx context.Context, planID uint64) (int64, error)

	UpdateStatusIfCurrent(ctx context.Context, ids []uint64, from, to models.Status) (int64, error)
}

// InitiativeRepository defines the interface for initiative data access
type InitiativeRepository interface {
	// Create creates an initiative together with its assignments
	Create(ctx context.Context, initiative *models.Initiative, assigneeIDs []uint64) error

	// FindByID finds an initiative by ID. Takes a row lock when the context asks for one.
	FindByID(ctx context.Context, id uint64, preload ...string) (*models.Initiative, error)

	// ListByMilestone lists the milestone's initiatives ordered by ID.
	// Takes row locks when the context asks for them.
	ListByMilestone(ctx context.Context, milestoneID uint64) ([]models.Initiative, error)

	// ListByUser lists initiatives assigned to the user
	ListByUser(ctx context.Context, userID uint64) ([]models.Initiative, error)

	UpdateFieldsIfStatus(ctx context.Context, id uint64, status models.Status, fields map[string]interface{}) (int64, error)

	// Delete hard deletes an initiative with its assignments and comments
	Delete(ctx context.Context, id uint64) error

	// ReplaceAssignments swaps the assignee set for the given users
	ReplaceAssignments(ctx context.Context, initiativeID uint64, userIDs []uint64) error

	// IsAssigned reports whether the user is assigned to the initiative
	IsAssigned(ctx context.Context, initiativeID, userID uint64) (bool, error)

	// CountOpenByMilestone counts the milestone's initiatives that are not in a terminal status
	CountOpenByMilestone(ctx context.Context, milestoneID uint64) (int64, error)

	UpdateStatusIfCurrent(ctx context.Context, ids []uint64, from, to models.Status) (int64, error)
}

// CommentRepository defines the interface for comment data access
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error

	FindByID(ctx context.Context, id uint64) (*models.Comment, error)

	// ListByInitiative lists comments oldest first
	ListByInitiative(ctx context.Context, initiativeID uint64) ([]models.Comment, error)

	Update(ctx context.Context, comment *models.Comment) error

	Delete(ctx context.Context, id uint64) error
}

// AuditLogRepository is append-only: there is no update or delete.
type AuditLogRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error

	// List retrieves audit logs newest first
	List(ctx context.Context, filter AuditLogFilter) ([]models.AuditLog, int64, error)
}

// AuditLogFilter holds filtering options for listing audit logs
type AuditLogFilter struct {
	EntityType  *models.EntityType
	EntityID    *uint64
	Action      *models.AuditAction
	PerformedBy *string
	From        *time.Time
	To          *time.Time
	Pagination  utils.PaginationParams
}
