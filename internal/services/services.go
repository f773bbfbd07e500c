package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/anand-fs/plantrack/internal/audit"
	"github.com/anand-fs/plantrack/internal/cascade"
	"github.com/anand-fs/plantrack/internal/database"
	"github.com/anand-fs/plantrack/internal/lifecycle"
	"github.com/anand-fs/plantrack/internal/models"
	"github.com/anand-fs/plantrack/internal/repository"
)

var (
	ErrPlanNotFound       = errors.New("plan not found")
	ErrMilestoneNotFound  = errors.New("milestone not found")
	ErrInitiativeNotFound = errors.New("initiative not found")
	ErrCommentNotFound    = errors.New("comment not found")
	ErrUserNotFound       = errors.New("user not found")

	ErrInvalidReference    = errors.New("invalid reference")
	ErrNoAssigneesProvided = errors.New("at least one assignee is required")
	ErrForbidden           = errors.New("user does not have permission to perform this action")
	ErrParentClosed        = errors.New("parent is closed")
	ErrHasOpenChildren     = errors.New("cannot delete while children are still open; cancel or complete them first")
	ErrCascadeRequired     = errors.New("terminal statuses must be set through cancel or complete")
	ErrTitleRequired       = errors.New("title is required")
	ErrTitleEmpty          = errors.New("title cannot be empty")
	ErrBodyRequired        = errors.New("comment body is required")
	ErrInvalidRole         = errors.New("invalid role")
	ErrInvalidUserStatus   = errors.New("invalid user status")
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID    uint64
	Email string
	Role  models.Role
}

// Identity is the value stored as performedBy in audit entries.
func (a Actor) Identity() string {
	if a.Email != "" {
		return a.Email
	}
	return fmt.Sprintf("user:%d", a.ID)
}

// Deps bundles the collaborators shared by the application services.
type Deps struct {
	Tx          cascade.Transactor
	Machine     *lifecycle.Machine
	Users       repository.UserRepository
	Plans       repository.PlanRepository
	Milestones  repository.MilestoneRepository
	Initiatives repository.InitiativeRepository
	Comments    repository.CommentRepository
	AuditLogs   repository.AuditLogRepository
	Recorder    audit.Recorder
	Planner     *cascade.Planner
	Executor    *cascade.Executor
	AI          *AIService
}

// NewDeps wires the repositories, recorder and cascade engine over one database handle.
func NewDeps(db *gorm.DB, policy lifecycle.Policy, ai *AIService) Deps {
	machine := lifecycle.NewMachine(policy)
	tx := database.NewTransactor(db)

	plans := repository.NewPlanRepository(db)
	milestones := repository.NewMilestoneRepository(db)
	initiatives := repository.NewInitiativeRepository(db)
	auditLogs := repository.NewAuditLogRepository(db)
	recorder := audit.NewLogRecorder(auditLogs)
	planner := cascade.NewPlanner(machine, plans, milestones, initiatives)

	return Deps{
		Tx:          tx,
		Machine:     machine,
		Users:       repository.NewUserRepository(db),
		Plans:       plans,
		Milestones:  milestones,
		Initiatives: initiatives,
		Comments:    repository.NewCommentRepository(db),
		AuditLogs:   auditLogs,
		Recorder:    recorder,
		Planner:     planner,
		Executor:    cascade.NewExecutor(planner, tx, recorder),
		AI:          ai,
	}
}

// lookupError maps a missing row to the domain sentinel and wraps anything else.
func lookupError(err error, notFound error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return fmt.Errorf("failed to find %s: %w", what, err)
}

func statusPtr(s models.Status) *models.Status {
	return &s
}

// uniqueUint64 removes duplicate values from a slice of uint64
func uniqueUint64(values []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(values))
	result := make([]uint64, 0, len(values))

	for _, v := range values {
		if _, exists := seen[v]; exists {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}

	return result
}
