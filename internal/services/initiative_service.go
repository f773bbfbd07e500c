package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/anand-fs/plantrack/internal/audit"
	"github.com/anand-fs/plantrack/internal/cascade"
	"github.com/anand-fs/plantrack/internal/constants"
	"github.com/anand-fs/plantrack/internal/database"
	"github.com/anand-fs/plantrack/internal/lifecycle"
	"github.com/anand-fs/plantrack/internal/logging"
	"github.com/anand-fs/plantrack/internal/models"
	"github.com/anand-fs/plantrack/internal/repository"
)

// InitiativeService handles initiative business logic
type InitiativeService struct {
	tx          cascade.Transactor
	machine     *lifecycle.Machine
	users       repository.UserRepository
	milestones  repository.MilestoneRepository
	initiatives repository.InitiativeRepository
	recorder    audit.Recorder
	validator   *ReferenceValidator
	aiService   *AIService
}

// NewInitiativeService creates a new InitiativeService
func NewInitiativeService(d Deps) *InitiativeService {
	return &InitiativeService{
		tx:          d.Tx,
		machine:     d.Machine,
		users:       d.Users,
		milestones:  d.Milestones,
		initiatives: d.Initiatives,
		recorder:    d.Recorder,
		validator:   NewReferenceValidator(d.Users, d.Milestones),
		aiService:   d.AI,
	}
}

// CreateInitiativeInput represents input for creating an initiative
type CreateInitiativeInput struct {
	MilestoneID uint64
	PlanID      *uint64
	Title       string
	Description string
	AssigneeIDs []uint64
}

// UpdateInitiativeInput represents input for updating an initiative
type UpdateInitiativeInput struct {
	Title       *string
	Description *string
	Status      *models.Status
}

// CreateInitiative validates references, then stores the initiative and its assignments
func (s *InitiativeService) CreateInitiative(ctx context.Context, input CreateInitiativeInput, actor Actor) (*models.Initiative, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	milestone, assignees, err := s.validator.ValidateInitiativeReferences(ctx, InitiativeRefs{
		MilestoneID: input.MilestoneID,
		PlanID:      input.PlanID,
		AssigneeIDs: input.AssigneeIDs,
	})
	if err != nil {
		return nil, err
	}
	if milestone.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: milestone %d is %s", ErrParentClosed, milestone.ID, milestone.Status)
	}

	initiative := &models.Initiative{
		MilestoneID: milestone.ID,
		Title:       title,
		Description: input.Description,
		Status:      models.StatusActive,
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.ensureParentOpen(ctx, milestone.ID); err != nil {
			return err
		}
		if err := s.initiatives.Create(ctx, initiative, assignees); err != nil {
			return err
		}
		_, err := s.recorder.Record(ctx, audit.Created(models.EntityInitiative, initiative.ID, statusPtr(initiative.Status),
			actor.Identity(), fmt.Sprintf("Initiative created in Milestone #%d with %d assignee(s)", milestone.ID, len(assignees))))
		return err
	})
	if err != nil {
		return nil, err
	}

	logging.WithContext(ctx).WithFields(logrus.Fields{
		"initiative_id": initiative.ID,
		"milestone_id":  milestone.ID,
		"assignees":     assignees,
	}).Info("Initiative created")
	return s.GetInitiative(ctx, initiative.ID)
}

// ListInitiativesByMilestone returns the milestone's initiatives
func (s *InitiativeService) ListInitiativesByMilestone(ctx context.Context, milestoneID uint64) ([]models.Initiative, error) {
	if _, err := s.milestones.FindByID(ctx, milestoneID); err != nil {
		return nil, lookupError(err, ErrMilestoneNotFound, "milestone")
	}
	initiatives, err := s.initiatives.ListByMilestone(ctx, milestoneID)
	if err != nil {
		return nil, fmt.Errorf("failed to list initiatives: %w", err)
	}
	return initiatives, nil
}

// ListInitiativesByUser returns initiatives assigned to the user
func (s *InitiativeService) ListInitiativesByUser(ctx context.Context, userID uint64) ([]models.Initiative, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, lookupError(err, ErrUserNotFound, "user")
	}
	initiatives, err := s.initiatives.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list initiatives: %w", err)
	}
	return initiatives, nil
}

// GetInitiative returns an initiative with its assignees
func (s *InitiativeService) GetInitiative(ctx context.Context, id uint64) (*models.Initiative, error) {
	initiative, err := s.initiatives.FindByID(ctx, id, "Assignments", "Assignments.User")
	if err != nil {
		return nil, lookupError(err, ErrInitiativeNotFound, "initiative")
	}
	return initiative, nil
}

// UpdateInitiative changes fields and status. Employees may only update
// initiatives assigned to them.
func (s *InitiativeService) UpdateInitiative(ctx context.Context, id uint64, input UpdateInitiativeInput, actor Actor) (*models.Initiative, error) {
	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return nil, ErrTitleEmpty
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		initiative, err := s.initiatives.FindByID(database.WithRowLocks(ctx), id)
		if err != nil {
			return lookupError(err, ErrInitiativeNotFound, "initiative")
		}
		if err := s.ensureCanWork(ctx, initiative.ID, actor); err != nil {
			return err
		}

		fields := map[string]interface{}{}
		var changed []string
		if input.Title != nil && strings.TrimSpace(*input.Title) != initiative.Title {
			initiative.Title = strings.TrimSpace(*input.Title)
			fields["title"] = initiative.Title
			changed = append(changed, "title")
		}
		if input.Description != nil && *input.Description != initiative.Description {
			initiative.Description = *input.Description
			fields["description"] = initiative.Description
			changed = append(changed, "description")
		}

		from := initiative.Status
		statusChanged := input.Status != nil && *input.Status != initiative.Status
		if statusChanged {
			if err := s.machine.Check(initiative.Status, *input.Status); err != nil {
				return err
			}
			initiative.Status = *input.Status
			fields["status"] = initiative.Status
		}

		if len(fields) == 0 {
			return nil
		}
		if err := updateFields(ctx, s.initiatives.UpdateFieldsIfStatus, initiative.ID, from, fields); err != nil {
			return fmt.Errorf("failed to update initiative: %w", err)
		}
		if len(changed) > 0 {
			if _, err := s.recorder.Record(ctx, audit.Updated(models.EntityInitiative, initiative.ID, actor.Identity(),
				"Initiative updated: "+strings.Join(changed, ", "))); err != nil {
				return err
			}
		}
		if statusChanged {
			if _, err := s.recorder.Record(ctx, audit.StatusChange(models.EntityInitiative, initiative.ID, from, initiative.Status,
				actor.Identity(), fmt.Sprintf("Initiative #%d status changed", initiative.ID))); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetInitiative(ctx, id)
}

// ReplaceAssignees swaps the assignee set. The new set must be non-empty and active.
func (s *InitiativeService) ReplaceAssignees(ctx context.Context, id uint64, assigneeIDs []uint64, actor Actor) (*models.Initiative, error) {
	assignees, err := s.validator.ValidateAssignees(ctx, assigneeIDs)
	if err != nil {
		return nil, err
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		initiative, err := s.initiatives.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, ErrInitiativeNotFound, "initiative")
		}
		if err := s.initiatives.ReplaceAssignments(ctx, initiative.ID, assignees); err != nil {
			return err
		}
		_, err = s.recorder.Record(ctx, audit.Updated(models.EntityInitiative, initiative.ID, actor.Identity(),
			fmt.Sprintf("Initiative assignees replaced: %v", assignees)))
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetInitiative(ctx, id)
}

// ReactivateInitiative moves a cancelled initiative back to ACTIVE when its milestone is still open.
func (s *InitiativeService) ReactivateInitiative(ctx context.Context, id uint64, actor Actor) (*models.Initiative, error) {
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		initiative, err := s.initiatives.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, ErrInitiativeNotFound, "initiative")
		}

		// parent before child, the order cascades lock in
		if err := s.ensureParentOpen(ctx, initiative.MilestoneID); err != nil {
			return err
		}
		if initiative, err = s.initiatives.FindByID(database.WithRowLocks(ctx), id); err != nil {
			return lookupError(err, ErrInitiativeNotFound, "initiative")
		}
		if err := s.machine.CheckReactivate(initiative.Status); err != nil {
			return err
		}

		if err := reactivate(ctx, s.initiatives.UpdateStatusIfCurrent, initiative.ID); err != nil {
			return err
		}
		_, err = s.recorder.Record(ctx, audit.StatusChange(models.EntityInitiative, initiative.ID, initiative.Status, models.StatusActive,
			actor.Identity(), fmt.Sprintf("Initiative #%d reactivated", initiative.ID)))
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetInitiative(ctx, id)
}

// DeleteInitiative hard deletes an initiative with its comments and assignments
func (s *InitiativeService) DeleteInitiative(ctx context.Context, id uint64, actor Actor) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		initiative, err := s.initiatives.FindByID(database.WithRowLocks(ctx), id)
		if err != nil {
			return lookupError(err, ErrInitiativeNotFound, "initiative")
		}
		if err := s.initiatives.Delete(ctx, initiative.ID); err != nil {
			return fmt.Errorf("failed to delete initiative: %w", err)
		}
		_, err = s.recorder.Record(ctx, audit.Deleted(models.EntityInitiative, initiative.ID, statusPtr(initiative.Status),
			actor.Identity(), fmt.Sprintf("Initiative deleted: %s", initiative.Title)))
		return err
	})
}

// SuggestInitiativesInput represents input for AI initiative drafting
type SuggestInitiativesInput struct {
	MilestoneID uint64
	Text        string
}

// SuggestInitiatives drafts initiatives for a milestone from free text. Nothing is stored.
func (s *InitiativeService) SuggestInitiatives(ctx context.Context, input SuggestInitiativesInput) ([]GeneratedInitiative, error) {
	if s.aiService == nil {
		return nil, ErrAIServiceNotConfigured
	}

	milestone, err := s.milestones.FindByID(ctx, input.MilestoneID)
	if err != nil {
		return nil, lookupError(err, ErrMilestoneNotFound, "milestone")
	}

	drafts, err := s.aiService.GenerateInitiativesFromText(ctx, milestone.Title, input.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate initiatives: %w", err)
	}
	if len(drafts) == 0 {
		return nil, ErrAINoInitiativesGenerated
	}
	if len(drafts) > constants.MaxAIGeneratedInitiatives {
		return nil, fmt.Errorf("AI generated too many initiatives (max %d)", constants.MaxAIGeneratedInitiatives)
	}

	valid := make([]GeneratedInitiative, 0, len(drafts))
	for _, d := range drafts {
		if strings.TrimSpace(d.Title) == "" {
			continue
		}
		valid = append(valid, d)
	}
	if len(valid) == 0 {
		return nil, ErrAINoValidInitiatives
	}
	return valid, nil
}

// ensureCanWork lets managers and admins through and requires employees to be assigned.
func (s *InitiativeService) ensureCanWork(ctx context.Context, initiativeID uint64, actor Actor) error {
	if actor.Role.CanManage() {
		return nil
	}
	assigned, err := s.initiatives.IsAssigned(ctx, initiativeID, actor.ID)
	if err != nil {
		return fmt.Errorf("failed to verify assignment: %w", err)
	}
	if !assigned {
		return ErrForbidden
	}
	return nil
}

// ensureParentOpen locks the milestone and rejects it once it is terminal.
func (s *InitiativeService) ensureParentOpen(ctx context.Context, milestoneID uint64) error {
	milestone, err := s.milestones.FindByID(database.WithRowLocks(ctx), milestoneID)
	if err != nil {
		return lookupError(err, ErrMilestoneNotFound, "milestone")
	}
	if milestone.Status.IsTerminal() {
		return fmt.Errorf("%w: milestone %d is %s", ErrParentClosed, milestone.ID, milestone.Status)
	}
	return nil
}
