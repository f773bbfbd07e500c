package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/anand-fs/plantrack/internal/models"
	"github.com/anand-fs/plantrack/internal/repository"
)

// InitiativeRefs are the references an initiative write carries.
type InitiativeRefs struct {
	MilestoneID uint64
	// PlanID is set when the request path names the plan.
	PlanID      *uint64
	AssigneeIDs []uint64
}

// ReferenceValidator checks initiative references before anything is persisted.
type ReferenceValidator struct {
	users      repository.UserRepository
	milestones repository.MilestoneRepository
}

func NewReferenceValidator(users repository.UserRepository, milestones repository.MilestoneRepository) *ReferenceValidator {
	return &ReferenceValidator{users: users, milestones: milestones}
}

// ValidateInitiativeReferences returns the resolved milestone and the deduplicated assignee IDs.
func (v *ReferenceValidator) ValidateInitiativeReferences(ctx context.Context, refs InitiativeRefs) (*models.Milestone, []uint64, error) {
	if len(refs.AssigneeIDs) == 0 {
		return nil, nil, ErrNoAssigneesProvided
	}

	milestone, err := v.milestones.FindByID(ctx, refs.MilestoneID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: milestone %d does not exist", ErrInvalidReference, refs.MilestoneID)
		}
		return nil, nil, fmt.Errorf("failed to find milestone: %w", err)
	}
	if refs.PlanID != nil && milestone.PlanID != *refs.PlanID {
		return nil, nil, fmt.Errorf("%w: milestone %d does not belong to plan %d", ErrInvalidReference, milestone.ID, *refs.PlanID)
	}

	ids, err := v.ValidateAssignees(ctx, refs.AssigneeIDs)
	if err != nil {
		return nil, nil, err
	}
	return milestone, ids, nil
}

// ValidateAssignees requires every ID to resolve to an ACTIVE user.
func (v *ReferenceValidator) ValidateAssignees(ctx context.Context, assigneeIDs []uint64) ([]uint64, error) {
	if len(assigneeIDs) == 0 {
		return nil, ErrNoAssigneesProvided
	}
	ids := uniqueUint64(assigneeIDs)

	count, err := v.users.CountActiveByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to verify users: %w", err)
	}
	if int(count) != len(ids) {
		return nil, fmt.Errorf("%w: one or more assignees do not exist or are not active", ErrInvalidReference)
	}
	return ids, nil
}
