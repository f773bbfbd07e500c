package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/anand-fs/plantrack/internal/audit"
	"github.com/anand-fs/plantrack/internal/cascade"
	"github.com/anand-fs/plantrack/internal/database"
	"github.com/anand-fs/plantrack/internal/lifecycle"
	"github.com/anand-fs/plantrack/internal/logging"
	"github.com/anand-fs/plantrack/internal/models"
	"github.com/anand-fs/plantrack/internal/repository"
	"github.com/anand-fs/plantrack/internal/utils"
)

// PlanService handles plan business logic
type PlanService struct {
	tx         cascade.Transactor
	machine    *lifecycle.Machine
	users      repository.UserRepository
	plans      repository.PlanRepository
	milestones repository.MilestoneRepository
	recorder   audit.Recorder
	planner    *cascade.Planner
	executor   *cascade.Executor
}

// NewPlanService creates a new PlanService
func NewPlanService(d Deps) *PlanService {
	return &PlanService{
		tx:         d.Tx,
		machine:    d.Machine,
		users:      d.Users,
		plans:      d.Plans,
		milestones: d.Milestones,
		recorder:   d.Recorder,
		planner:    d.Planner,
		executor:   d.Executor,
	}
}

// CreatePlanInput represents input for creating a plan
type CreatePlanInput struct {
	OwnerID     uint64
	Title       string
	Description string
}

// UpdatePlanInput represents input for updating a plan
type UpdatePlanInput struct {
	Title       *string
	Description *string
	Status      *models.Status
}

// CreatePlan creates a plan owned by an existing user
func (s *PlanService) CreatePlan(ctx context.Context, input CreatePlanInput, actor Actor) (*models.Plan, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	if _, err := s.users.FindByID(ctx, input.OwnerID); err != nil {
		return nil, lookupError(err, ErrUserNotFound, "plan owner")
	}

	plan := &models.Plan{
		UserID:      input.OwnerID,
		Title:       title,
		Description: input.Description,
		Status:      models.StatusActive,
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.plans.Create(ctx, plan); err != nil {
			return fmt.Errorf("%w: %v", repository.ErrCreatePlan, err)
		}
		_, err := s.recorder.Record(ctx, audit.Created(models.EntityPlan, plan.ID, statusPtr(plan.Status),
			actor.Identity(), fmt.Sprintf("Plan created: %s", plan.Title)))
		return err
	})
	if err != nil {
		return nil, err
	}

	logging.WithContext(ctx).WithFields(logrus.Fields{
		"plan_id":  plan.ID,
		"owner_id": plan.UserID,
	}).Info("Plan created")
	return plan, nil
}

// ListPlans returns a page of plans, newest first
func (s *PlanService) ListPlans(ctx context.Context, params utils.PaginationParams) ([]models.Plan, int64, error) {
	plans, total, err := s.plans.List(ctx, params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, total, nil
}

// ListPlansByOwner returns plans owned by the user
func (s *PlanService) ListPlansByOwner(ctx context.Context, userID uint64) ([]models.Plan, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, lookupError(err, ErrUserNotFound, "user")
	}
	plans, err := s.plans.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}

// ListPlansWithAssignedInitiatives returns plans that contain work assigned to the user
func (s *PlanService) ListPlansWithAssignedInitiatives(ctx context.Context, userID uint64) ([]models.Plan, error) {
	plans, err := s.plans.ListWithAssignedInitiatives(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}

// GetPlan returns a plan with its owner and milestones
func (s *PlanService) GetPlan(ctx context.Context, id uint64) (*models.Plan, error) {
	plan, err := s.plans.FindByID(ctx, id, "Owner", "Milestones")
	if err != nil {
		return nil, lookupError(err, ErrPlanNotFound, "plan")
	}
	return plan, nil
}

// UpdatePlan changes plan fields and non-terminal status. Cancelling or
// completing must go through the cascade so descendants follow.
func (s *PlanService) UpdatePlan(ctx context.Context, id uint64, input UpdatePlanInput, actor Actor) (*models.Plan, error) {
	if input.Status != nil && input.Status.IsTerminal() {
		return nil, ErrCascadeRequired
	}
	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return nil, ErrTitleEmpty
	}

	var plan *models.Plan
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		plan, err = s.plans.FindByID(database.WithRowLocks(ctx), id)
		if err != nil {
			return lookupError(err, ErrPlanNotFound, "plan")
		}

		fields := map[string]interface{}{}
		var changed []string
		if input.Title != nil && strings.TrimSpace(*input.Title) != plan.Title {
			plan.Title = strings.TrimSpace(*input.Title)
			fields["title"] = plan.Title
			changed = append(changed, "title")
		}
		if input.Description != nil && *input.Description != plan.Description {
			plan.Description = *input.Description
			fields["description"] = plan.Description
			changed = append(changed, "description")
		}

		from := plan.Status
		statusChanged := input.Status != nil && *input.Status != plan.Status
		if statusChanged {
			if err := s.machine.Check(plan.Status, *input.Status); err != nil {
				return err
			}
			plan.Status = *input.Status
			fields["status"] = plan.Status
		}

		if len(fields) == 0 {
			return nil
		}
		if err := updateFields(ctx, s.plans.UpdateFieldsIfStatus, plan.ID, from, fields); err != nil {
			return fmt.Errorf("failed to update plan: %w", err)
		}
		if len(changed) > 0 {
			if _, err := s.recorder.Record(ctx, audit.Updated(models.EntityPlan, plan.ID, actor.Identity(),
				"Plan updated: "+strings.Join(changed, ", "))); err != nil {
				return err
			}
		}
		if statusChanged {
			if _, err := s.recorder.Record(ctx, audit.StatusChange(models.EntityPlan, plan.ID, from, plan.Status,
				actor.Identity(), fmt.Sprintf("Plan #%d status changed", plan.ID))); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// DeletePlan soft deletes a plan and its milestones. Every milestone must
// already be terminal.
func (s *PlanService) DeletePlan(ctx context.Context, id uint64, actor Actor) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		plan, err := s.plans.FindByID(database.WithRowLocks(ctx), id)
		if err != nil {
			return lookupError(err, ErrPlanNotFound, "plan")
		}

		open, err := s.milestones.CountOpenByPlan(ctx, plan.ID)
		if err != nil {
			return fmt.Errorf("failed to count milestones: %w", err)
		}
		if open > 0 {
			return ErrHasOpenChildren
		}

		milestones, err := s.milestones.ListByPlan(ctx, plan.ID)
		if err != nil {
			return fmt.Errorf("failed to list milestones: %w", err)
		}
		for _, m := range milestones {
			if err := s.milestones.Delete(ctx, m.ID); err != nil {
				return fmt.Errorf("failed to delete milestone: %w", err)
			}
			if _, err := s.recorder.Record(ctx, audit.Deleted(models.EntityMilestone, m.ID, statusPtr(m.Status),
				actor.Identity(), fmt.Sprintf("deleted with parent Plan #%d", plan.ID))); err != nil {
				return err
			}
		}

		if err := s.plans.Delete(ctx, plan.ID); err != nil {
			return fmt.Errorf("failed to delete plan: %w", err)
		}
		_, err = s.recorder.Record(ctx, audit.Deleted(models.EntityPlan, plan.ID, statusPtr(plan.Status),
			actor.Identity(), fmt.Sprintf("Plan deleted: %s", plan.Title)))
		return err
	})
}

// PreviewCancelPlan shows what cancelling the plan would change, without writing.
func (s *PlanService) PreviewCancelPlan(ctx context.Context, id uint64) (*cascade.Plan, error) {
	return s.planner.Preview(ctx, models.EntityPlan, id, models.StatusCancelled)
}

// CancelPlan cancels the plan and every open descendant. A non-empty
// fingerprint must match the preview the caller confirmed.
func (s *PlanService) CancelPlan(ctx context.Context, id uint64, actor Actor, fingerprint string) (*cascade.Result, error) {
	return s.executor.Run(ctx, models.EntityPlan, id, models.StatusCancelled, actor.Identity(), fingerprint)
}

// PreviewCompletePlan shows what completing the plan would change, without writing.
func (s *PlanService) PreviewCompletePlan(ctx context.Context, id uint64) (*cascade.Plan, error) {
	return s.planner.Preview(ctx, models.EntityPlan, id, models.StatusCompleted)
}

// CompletePlan completes the plan and every open descendant.
func (s *PlanService) CompletePlan(ctx context.Context, id uint64, actor Actor, fingerprint string) (*cascade.Result, error) {
	return s.executor.Run(ctx, models.EntityPlan, id, models.StatusCompleted, actor.Identity(), fingerprint)
}

// ReactivatePlan moves a cancelled plan back to ACTIVE. Descendants are not touched.
func (s *PlanService) ReactivatePlan(ctx context.Context, id uint64, actor Actor) (*models.Plan, error) {
	var plan *models.Plan
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		plan, err = s.plans.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, ErrPlanNotFound, "plan")
		}
		if err := s.machine.CheckReactivate(plan.Status); err != nil {
			return err
		}
		if err := reactivate(ctx, s.plans.UpdateStatusIfCurrent, plan.ID); err != nil {
			return err
		}
		_, err = s.recorder.Record(ctx, audit.StatusChange(models.EntityPlan, plan.ID, plan.Status, models.StatusActive,
			actor.Identity(), fmt.Sprintf("Plan #%d reactivated", plan.ID)))
		plan.Status = models.StatusActive
		return err
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

type statusUpdater func(ctx context.Context, ids []uint64, from, to models.Status) (int64, error)

func reactivate(ctx context.Context, update statusUpdater, id uint64) error {
	affected, err := update(ctx, []uint64{id}, models.StatusCancelled, models.StatusActive)
	if err != nil {
		return fmt.Errorf("failed to reactivate: %w", err)
	}
	if affected != 1 {
		return cascade.ErrConcurrentModification
	}
	return nil
}

type fieldUpdater func(ctx context.Context, id uint64, status models.Status, fields map[string]interface{}) (int64, error)

// updateFields writes fields only while the row still has the status it was read with.
func updateFields(ctx context.Context, update fieldUpdater, id uint64, from models.Status, fields map[string]interface{}) error {
	affected, err := update(ctx, id, from, fields)
	if err != nil {
		return err
	}
	if affected != 1 {
		return cascade.ErrConcurrentModification
	}
	return nil
}
