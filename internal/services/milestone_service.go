package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anand-fs/plantrack/internal/audit"
	"github.com/anand-fs/plantrack/internal/cascade"
	"github.com/anand-fs/plantrack/internal/database"
	"github.com/anand-fs/plantrack/internal/lifecycle"
	"github.com/anand-fs/plantrack/internal/models"
	"github.com/anand-fs/plantrack/internal/repository"
)

// MilestoneService handles milestone business logic
type MilestoneService struct {
	tx          cascade.Transactor
	machine     *lifecycle.Machine
	plans       repository.PlanRepository
	milestones  repository.MilestoneRepository
	initiatives repository.InitiativeRepository
	recorder    audit.Recorder
	planner     *cascade.Planner
	executor    *cascade.Executor
}

// NewMilestoneService creates a new MilestoneService
func NewMilestoneService(d Deps) *MilestoneService {
	return &MilestoneService{
		tx:          d.Tx,
		machine:     d.Machine,
		plans:       d.Plans,
		milestones:  d.Milestones,
		initiatives: d.Initiatives,
		recorder:    d.Recorder,
		planner:     d.Planner,
		executor:    d.Executor,
	}
}

// CreateMilestoneInput represents input for creating a milestone
type CreateMilestoneInput struct {
	Title       string
	Description string
	Sequence    int
	DueDate     *time.Time
}

// UpdateMilestoneInput represents input for updating a milestone
type UpdateMilestoneInput struct {
	Title        *string
	Description  *string
	Sequence     *int
	DueDate      *time.Time
	ClearDueDate bool
	Status       *models.Status
}

// CreateMilestone adds a milestone to an open plan
func (s *MilestoneService) CreateMilestone(ctx context.Context, planID uint64, input CreateMilestoneInput, actor Actor) (*models.Milestone, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	milestone := &models.Milestone{
		PlanID:      planID,
		Title:       title,
		Description: input.Description,
		Sequence:    input.Sequence,
		DueDate:     input.DueDate,
		Status:      models.StatusActive,
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		plan, err := s.plans.FindByID(database.WithRowLocks(ctx), planID)
		if err != nil {
			return lookupError(err, ErrPlanNotFound, "plan")
		}
		if plan.Status.IsTerminal() {
			return fmt.Errorf("%w: plan %d is %s", ErrParentClosed, plan.ID, plan.Status)
		}

		if err := s.milestones.Create(ctx, milestone); err != nil {
			return fmt.Errorf("%w: %v", repository.ErrCreateMilestone, err)
		}
		_, err = s.recorder.Record(ctx, audit.Created(models.EntityMilestone, milestone.ID, statusPtr(milestone.Status),
			actor.Identity(), fmt.Sprintf("Milestone created in Plan #%d: %s", planID, milestone.Title)))
		return err
	})
	if err != nil {
		return nil, err
	}
	return milestone, nil
}

// ListMilestonesByPlan returns the plan's milestones in order
func (s *MilestoneService) ListMilestonesByPlan(ctx context.Context, planID uint64) ([]models.Milestone, error) {
	if _, err := s.plans.FindByID(ctx, planID); err != nil {
		return nil, lookupError(err, ErrPlanNotFound, "plan")
	}
	milestones, err := s.milestones.ListByPlan(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to list milestones: %w", err)
	}
	return milestones, nil
}

// GetMilestone returns a milestone with its initiatives
func (s *MilestoneService) GetMilestone(ctx context.Context, id uint64) (*models.Milestone, error) {
	milestone, err := s.milestones.FindByID(ctx, id, "Initiatives")
	if err != nil {
		return nil, lookupError(err, ErrMilestoneNotFound, "milestone")
	}
	return milestone, nil
}

// UpdateMilestone changes milestone fields and non-terminal status
func (s *MilestoneService) UpdateMilestone(ctx context.Context, id uint64, input UpdateMilestoneInput, actor Actor) (*models.Milestone, error) {
	if input.Status != nil && input.Status.IsTerminal() {
		return nil, ErrCascadeRequired
	}
	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return nil, ErrTitleEmpty
	}

	var milestone *models.Milestone
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		milestone, err = s.milestones.FindByID(database.WithRowLocks(ctx), id)
		if err != nil {
			return lookupError(err, ErrMilestoneNotFound, "milestone")
		}

		fields := map[string]interface{}{}
		var changed []string
		if input.Title != nil && strings.TrimSpace(*input.Title) != milestone.Title {
			milestone.Title = strings.TrimSpace(*input.Title)
			fields["title"] = milestone.Title
			changed = append(changed, "title")
		}
		if input.Description != nil && *input.Description != milestone.Description {
			milestone.Description = *input.Description
			fields["description"] = milestone.Description
			changed = append(changed, "description")
		}
		if input.Sequence != nil && *input.Sequence != milestone.Sequence {
			milestone.Sequence = *input.Sequence
			fields["sequence"] = milestone.Sequence
			changed = append(changed, "sequence")
		}
		if input.ClearDueDate {
			milestone.DueDate = nil
			fields["due_date"] = nil
			changed = append(changed, "due_date")
		} else if input.DueDate != nil {
			milestone.DueDate = input.DueDate
			fields["due_date"] = *input.DueDate
			changed = append(changed, "due_date")
		}

		from := milestone.Status
		statusChanged := input.Status != nil && *input.Status != milestone.Status
		if statusChanged {
			if err := s.machine.Check(milestone.Status, *input.Status); err != nil {
				return err
			}
			milestone.Status = *input.Status
			fields["status"] = milestone.Status
		}

		if len(fields) == 0 {
			return nil
		}
		if err := updateFields(ctx, s.milestones.UpdateFieldsIfStatus, milestone.ID, from, fields); err != nil {
			return fmt.Errorf("failed to update milestone: %w", err)
		}
		if len(changed) > 0 {
			if _, err := s.recorder.Record(ctx, audit.Updated(models.EntityMilestone, milestone.ID, actor.Identity(),
				"Milestone updated: "+strings.Join(changed, ", "))); err != nil {
				return err
			}
		}
		if statusChanged {
			if _, err := s.recorder.Record(ctx, audit.StatusChange(models.EntityMilestone, milestone.ID, from, milestone.Status,
				actor.Identity(), fmt.Sprintf("Milestone #%d status changed", milestone.ID))); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return milestone, nil
}

// DeleteMilestone soft deletes a milestone whose initiatives are all terminal
func (s *MilestoneService) DeleteMilestone(ctx context.Context, id uint64, actor Actor) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		milestone, err := s.milestones.FindByID(database.WithRowLocks(ctx), id)
		if err != nil {
			return lookupError(err, ErrMilestoneNotFound, "milestone")
		}

		open, err := s.initiatives.CountOpenByMilestone(ctx, milestone.ID)
		if err != nil {
			return fmt.Errorf("failed to count initiatives: %w", err)
		}
		if open > 0 {
			return ErrHasOpenChildren
		}

		if err := s.milestones.Delete(ctx, milestone.ID); err != nil {
			return fmt.Errorf("failed to delete milestone: %w", err)
		}
		_, err = s.recorder.Record(ctx, audit.Deleted(models.EntityMilestone, milestone.ID, statusPtr(milestone.Status),
			actor.Identity(), fmt.Sprintf("Milestone deleted: %s", milestone.Title)))
		return err
	})
}

// PreviewCancelMilestone shows what cancelling the milestone would change, without writing.
func (s *MilestoneService) PreviewCancelMilestone(ctx context.Context, id uint64) (*cascade.Plan, error) {
	return s.planner.Preview(ctx, models.EntityMilestone, id, models.StatusCancelled)
}

// CancelMilestone cancels the milestone and its open initiatives.
func (s *MilestoneService) CancelMilestone(ctx context.Context, id uint64, actor Actor, fingerprint string) (*cascade.Result, error) {
	return s.executor.Run(ctx, models.EntityMilestone, id, models.StatusCancelled, actor.Identity(), fingerprint)
}

// PreviewCompleteMilestone shows what completing the milestone would change, without writing.
func (s *MilestoneService) PreviewCompleteMilestone(ctx context.Context, id uint64) (*cascade.Plan, error) {
	return s.planner.Preview(ctx, models.EntityMilestone, id, models.StatusCompleted)
}

// CompleteMilestone completes the milestone and its open initiatives.
func (s *MilestoneService) CompleteMilestone(ctx context.Context, id uint64, actor Actor, fingerprint string) (*cascade.Result, error) {
	return s.executor.Run(ctx, models.EntityMilestone, id, models.StatusCompleted, actor.Identity(), fingerprint)
}

// ReactivateMilestone moves a cancelled milestone back to ACTIVE when its plan is still open.
func (s *MilestoneService) ReactivateMilestone(ctx context.Context, id uint64, actor Actor) (*models.Milestone, error) {
	var milestone *models.Milestone
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		milestone, err = s.milestones.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, ErrMilestoneNotFound, "milestone")
		}

		// parent before child, the order cascades lock in
		locked := database.WithRowLocks(ctx)
		plan, err := s.plans.FindByID(locked, milestone.PlanID)
		if err != nil {
			return lookupError(err, ErrPlanNotFound, "plan")
		}
		if milestone, err = s.milestones.FindByID(locked, id); err != nil {
			return lookupError(err, ErrMilestoneNotFound, "milestone")
		}
		if err := s.machine.CheckReactivate(milestone.Status); err != nil {
			return err
		}
		if plan.Status.IsTerminal() {
			return fmt.Errorf("%w: plan %d is %s", ErrParentClosed, plan.ID, plan.Status)
		}

		if err := reactivate(ctx, s.milestones.UpdateStatusIfCurrent, milestone.ID); err != nil {
			return err
		}
		_, err = s.recorder.Record(ctx, audit.StatusChange(models.EntityMilestone, milestone.ID, milestone.Status, models.StatusActive,
			actor.Identity(), fmt.Sprintf("Milestone #%d reactivated", milestone.ID)))
		milestone.Status = models.StatusActive
		return err
	})
	if err != nil {
		return nil, err
	}
	return milestone, nil
}
