package cascade

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/anand-fs/plantrack/internal/lifecycle"
	"github.com/anand-fs/plantrack/internal/models"
	"github.com/anand-fs/plantrack/internal/repository"
)

// Planner computes cascade plans. It never writes and is safe for concurrent use.
type Planner struct {
	machine     *lifecycle.Machine
	plans       repository.PlanRepository
	milestones  repository.MilestoneRepository
	initiatives repository.InitiativeRepository
}

func NewPlanner(
	machine *lifecycle.Machine,
	plans repository.PlanRepository,
	milestones repository.MilestoneRepository,
	initiatives repository.InitiativeRepository,
) *Planner {
	return &Planner{
		machine:     machine,
		plans:       plans,
		milestones:  milestones,
		initiatives: initiatives,
	}
}

// Plan walks the hierarchy below the root depth first: the root, then each
// milestone by (sequence, id) followed by its initiatives by id. Entities that
// are already terminal are listed as unaffected; any other rejected transition
// aborts the whole plan.
func (p *Planner) Plan(ctx context.Context, rootType models.EntityType, rootID uint64, target models.Status) (*Plan, error) {
	if !target.IsTerminal() {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidTarget, target)
	}

	plan := newPlan(rootType, rootID, target)

	switch rootType {
	case models.EntityPlan:
		root, err := p.plans.FindByID(ctx, rootID)
		if err != nil {
			return nil, notFound(err, rootType, rootID)
		}
		if err := p.visit(plan, models.EntityPlan, root.ID, root.Status); err != nil {
			return nil, err
		}
		milestones, err := p.milestones.ListByPlan(ctx, root.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load milestones of plan %d: %w", root.ID, err)
		}
		for _, m := range milestones {
			if err := p.visitMilestone(ctx, plan, m); err != nil {
				return nil, err
			}
		}

	case models.EntityMilestone:
		root, err := p.milestones.FindByID(ctx, rootID)
		if err != nil {
			return nil, notFound(err, rootType, rootID)
		}
		if err := p.visitMilestone(ctx, plan, *root); err != nil {
			return nil, err
		}

	case models.EntityInitiative:
		root, err := p.initiatives.FindByID(ctx, rootID)
		if err != nil {
			return nil, notFound(err, rootType, rootID)
		}
		if err := p.visit(plan, models.EntityInitiative, root.ID, root.Status); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("%w: got %s", ErrUnsupportedRoot, rootType)
	}

	plan.seal()
	return plan, nil
}

func (p *Planner) visitMilestone(ctx context.Context, plan *Plan, m models.Milestone) error {
	if err := p.visit(plan, models.EntityMilestone, m.ID, m.Status); err != nil {
		return err
	}
	initiatives, err := p.initiatives.ListByMilestone(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("failed to load initiatives of milestone %d: %w", m.ID, err)
	}
	for _, i := range initiatives {
		if err := p.visit(plan, models.EntityInitiative, i.ID, i.Status); err != nil {
			return err
		}
	}
	return nil
}

func (p *Planner) visit(plan *Plan, entityType models.EntityType, id uint64, current models.Status) error {
	err := p.machine.Check(current, plan.TargetStatus)
	if err == nil {
		plan.addChange(entityType, id, current)
		return nil
	}

	var te *lifecycle.TransitionError
	if errors.As(err, &te) && te.Reason == lifecycle.ReasonAlreadyTerminal {
		plan.addUnaffected(entityType, id, current, te.Reason)
		return nil
	}
	return fmt.Errorf("%s #%d: %w", entityType.Label(), id, err)
}

func notFound(err error, entityType models.EntityType, id uint64) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s #%d", ErrNotFound, entityType.Label(), id)
	}
	return fmt.Errorf("failed to load %s %d: %w", entityType.Label(), id, err)
}

// Preview is Plan for callers that only display the result.
func (p *Planner) Preview(ctx context.Context, rootType models.EntityType, rootID uint64, target models.Status) (*Plan, error) {
	plan, err := p.Plan(ctx, rootType, rootID, target)
	if err != nil {
		return nil, err
	}
	recordPreview(rootType)
	return plan, nil
}
