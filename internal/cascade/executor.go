package cascade

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anand-fs/plantrack/internal/audit"
	"github.com/anand-fs/plantrack/internal/database"
	"github.com/anand-fs/plantrack/internal/logging"
	"github.com/anand-fs/plantrack/internal/models"
)

// Transactor runs fn inside one database transaction carried by ctx.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AppliedStep is a Step after execution, with the audit row that records it.
type AppliedStep struct {
	Step
	Applied    bool   `json:"applied"`
	AuditLogID uint64 `json:"auditLogId"`
}

// Result mirrors the executed Plan.
type Result struct {
	RootType     models.EntityType `json:"rootType"`
	RootID       uint64            `json:"rootId"`
	TargetStatus models.Status     `json:"targetStatus"`
	Changes      []AppliedStep     `json:"changes"`
	Unaffected   []Skipped         `json:"unaffected"`
	Summary      Summary           `json:"summary"`
	Fingerprint  string            `json:"fingerprint"`
	PerformedBy  string            `json:"performedBy"`
	ExecutedAt   time.Time         `json:"executedAt"`
}

// Executor applies cascade plans atomically: every status change and every
// audit row commit together or not at all.
type Executor struct {
	planner  *Planner
	tx       Transactor
	recorder audit.Recorder
	now      func() time.Time
}

func NewExecutor(planner *Planner, tx Transactor, recorder audit.Recorder) *Executor {
	return &Executor{
		planner:  planner,
		tx:       tx,
		recorder: recorder,
		now:      time.Now,
	}
}

// Execute applies a plan produced earlier by the planner. The hierarchy is
// re-read under row locks first; if it no longer matches the plan nothing is
// written and ErrConcurrentModification is returned.
func (e *Executor) Execute(ctx context.Context, plan *Plan, actor string) (*Result, error) {
	if plan == nil {
		return nil, errors.New("cascade plan is required")
	}
	return e.run(ctx, plan.RootType, plan.RootID, plan.TargetStatus, actor, plan.Fingerprint)
}

// Run plans and applies a cascade in a single transaction. When
// expectedFingerprint is set it must match the fresh plan.
func (e *Executor) Run(ctx context.Context, rootType models.EntityType, rootID uint64, target models.Status, actor, expectedFingerprint string) (*Result, error) {
	return e.run(ctx, rootType, rootID, target, actor, expectedFingerprint)
}

func (e *Executor) run(ctx context.Context, rootType models.EntityType, rootID uint64, target models.Status, actor, expectedFingerprint string) (*Result, error) {
	log := logging.WithContext(ctx).WithFields(logrus.Fields{
		"root_type": rootType,
		"root_id":   rootID,
		"target":    target,
		"actor":     actor,
	})

	if strings.TrimSpace(actor) == "" {
		return nil, ErrActorRequired
	}

	var result *Result
	err := e.tx.InTx(ctx, func(txCtx context.Context) error {
		fresh, err := e.planner.Plan(database.WithRowLocks(txCtx), rootType, rootID, target)
		if err != nil {
			return err
		}
		if expectedFingerprint != "" && fresh.Fingerprint != expectedFingerprint {
			return ErrConcurrentModification
		}

		result, err = e.apply(txCtx, fresh, actor)
		return err
	})
	if err != nil {
		outcome := "error"
		switch {
		case errors.Is(err, ErrConcurrentModification):
			outcome = "conflict"
			log.Warn("Cascade aborted: hierarchy changed since it was planned")
		case errors.Is(err, ErrNotFound):
			outcome = "not_found"
		default:
			log.WithError(err).Error("Cascade rolled back")
		}
		recordExecution(rootType, outcome)
		return nil, err
	}

	recordExecution(rootType, "applied")
	recordTransitions(result.Summary)
	log.WithFields(logrus.Fields{
		"transitioned": result.Summary.Total,
		"unaffected":   result.Summary.Unaffected,
	}).Info("Cascade applied")
	return result, nil
}

type group struct {
	entityType models.EntityType
	from       models.Status
	ids        []uint64
}

// apply runs one conditional bulk update per (entity type, current status)
// group, then writes one audit row per transitioned entity.
func (e *Executor) apply(ctx context.Context, plan *Plan, actor string) (*Result, error) {
	for _, g := range groupChanges(plan.Changes) {
		affected, err := e.updateStatus(ctx, g, plan.TargetStatus)
		if err != nil {
			return nil, fmt.Errorf("failed to update %s status: %w", g.entityType.Label(), err)
		}
		if affected != int64(len(g.ids)) {
			return nil, fmt.Errorf("%w: %s expected %d rows in %s, updated %d",
				ErrConcurrentModification, g.entityType.Label(), len(g.ids), g.from, affected)
		}
	}

	applied := make([]AppliedStep, 0, len(plan.Changes))
	for _, step := range plan.Changes {
		entry := audit.StatusChange(step.EntityType, step.EntityID, step.CurrentStatus, step.PlannedStatus,
			actor, describe(plan, step))
		log, err := e.recorder.Record(ctx, entry)
		if err != nil {
			return nil, fmt.Errorf("failed to audit %s #%d: %w", step.EntityType.Label(), step.EntityID, err)
		}
		applied = append(applied, AppliedStep{Step: step, Applied: true, AuditLogID: log.ID})
	}

	return &Result{
		RootType:     plan.RootType,
		RootID:       plan.RootID,
		TargetStatus: plan.TargetStatus,
		Changes:      applied,
		Unaffected:   plan.Unaffected,
		Summary:      plan.Summary,
		Fingerprint:  plan.Fingerprint,
		PerformedBy:  actor,
		ExecutedAt:   e.now().UTC(),
	}, nil
}

func (e *Executor) updateStatus(ctx context.Context, g group, to models.Status) (int64, error) {
	switch g.entityType {
	case models.EntityPlan:
		return e.planner.plans.UpdateStatusIfCurrent(ctx, g.ids, g.from, to)
	case models.EntityMilestone:
		return e.planner.milestones.UpdateStatusIfCurrent(ctx, g.ids, g.from, to)
	case models.EntityInitiative:
		return e.planner.initiatives.UpdateStatusIfCurrent(ctx, g.ids, g.from, to)
	}
	return 0, fmt.Errorf("%w: got %s", ErrUnsupportedRoot, g.entityType)
}

// groupChanges keeps first-seen order so updates run root first.
func groupChanges(steps []Step) []group {
	var groups []group
	index := make(map[string]int)
	for _, s := range steps {
		key := string(s.EntityType) + "/" + string(s.CurrentStatus)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, group{entityType: s.EntityType, from: s.CurrentStatus})
		}
		groups[i].ids = append(groups[i].ids, s.EntityID)
	}
	return groups
}

// describe renders the audit detail, e.g. "cancelled via parent Plan #12 cascade".
func describe(plan *Plan, step Step) string {
	verb := strings.ToLower(string(plan.TargetStatus))
	if step.EntityType == plan.RootType && step.EntityID == plan.RootID {
		return fmt.Sprintf("%s #%d %s (cascade root)", plan.RootType.Label(), plan.RootID, verb)
	}
	return fmt.Sprintf("%s via parent %s #%d cascade", verb, plan.RootType.Label(), plan.RootID)
}
