package cascade

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/anand-fs/plantrack/internal/audit"
	"github.com/anand-fs/plantrack/internal/database"
	"github.com/anand-fs/plantrack/internal/lifecycle"
	"github.com/anand-fs/plantrack/internal/models"
	"github.com/anand-fs/plantrack/internal/repository"
)

const actor = "manager@example.com"

// failingRecorder fails on the nth Record call and delegates otherwise.
type failingRecorder struct {
	next  audit.Recorder
	failN int
	calls int
}

func (r *failingRecorder) Record(ctx context.Context, entry audit.Entry) (*models.AuditLog, error) {
	r.calls++
	if r.calls == r.failN {
		return nil, errors.New("audit store unavailable")
	}
	return r.next.Record(ctx, entry)
}

type tree struct {
	plan        *models.Plan
	milestone   *models.Milestone
	active      *models.Initiative
	completed   *models.Initiative
	second      *models.Milestone
	inProgress  *models.Initiative
	secondEmpty *models.Milestone
}

type CascadeTestSuite struct {
	suite.Suite
	db          *gorm.DB
	ctx         context.Context
	plans       repository.PlanRepository
	milestones  repository.MilestoneRepository
	initiatives repository.InitiativeRepository
	auditLogs   repository.AuditLogRepository
	planner     *Planner
	executor    *Executor
	user        *models.User
}

func (s *CascadeTestSuite) SetupTest() {
	db, err := database.OpenMemory()
	s.Require().NoError(err)
	s.db = db
	s.ctx = context.Background()

	s.plans = repository.NewPlanRepository(db)
	s.milestones = repository.NewMilestoneRepository(db)
	s.initiatives = repository.NewInitiativeRepository(db)
	s.auditLogs = repository.NewAuditLogRepository(db)

	s.planner = NewPlanner(lifecycle.NewMachine(lifecycle.Policy{}), s.plans, s.milestones, s.initiatives)
	s.executor = s.newExecutor(audit.NewLogRecorder(s.auditLogs))

	s.user = &models.User{Name: "Worker", Email: "worker@example.com", PasswordHash: "x", Role: models.RoleEmployee, Status: models.UserStatusActive}
	s.Require().NoError(db.Create(s.user).Error)
}

func (s *CascadeTestSuite) TearDownTest() {
	if sqlDB, err := s.db.DB(); err == nil {
		sqlDB.Close()
	}
}

func (s *CascadeTestSuite) newExecutor(recorder audit.Recorder) *Executor {
	return NewExecutor(s.planner, database.NewTransactor(s.db), recorder)
}

func (s *CascadeTestSuite) createPlan(status models.Status) *models.Plan {
	plan := &models.Plan{UserID: s.user.ID, Title: "Plan", Status: status}
	s.Require().NoError(s.plans.Create(s.ctx, plan))
	return plan
}

func (s *CascadeTestSuite) createMilestone(planID uint64, sequence int, status models.Status) *models.Milestone {
	m := &models.Milestone{PlanID: planID, Title: "Milestone", Sequence: sequence, Status: status}
	s.Require().NoError(s.milestones.Create(s.ctx, m))
	return m
}

func (s *CascadeTestSuite) createInitiative(milestoneID uint64, status models.Status) *models.Initiative {
	i := &models.Initiative{MilestoneID: milestoneID, Title: "Initiative", Status: status}
	s.Require().NoError(s.initiatives.Create(s.ctx, i, []uint64{s.user.ID}))
	return i
}

func itoa(v uint64) string {
	return strconv.FormatUint(v, 10)
}

// seedScenario builds Plan(ACTIVE) -> Milestone(ACTIVE) -> {Initiative ACTIVE, Initiative COMPLETED}.
func (s *CascadeTestSuite) seedScenario() tree {
	plan := s.createPlan(models.StatusActive)
	milestone := s.createMilestone(plan.ID, 1, models.StatusActive)
	return tree{
		plan:      plan,
		milestone: milestone,
		active:    s.createInitiative(milestone.ID, models.StatusActive),
		completed: s.createInitiative(milestone.ID, models.StatusCompleted),
	}
}

// seedWide adds a second milestone with mixed statuses and an empty milestone.
func (s *CascadeTestSuite) seedWide() tree {
	t := s.seedScenario()
	t.second = s.createMilestone(t.plan.ID, 2, models.StatusInProgress)
	t.inProgress = s.createInitiative(t.second.ID, models.StatusInProgress)
	t.secondEmpty = s.createMilestone(t.plan.ID, 3, models.StatusActive)
	return t
}

func (s *CascadeTestSuite) status(model interface{}, id uint64) models.Status {
	var row struct{ Status models.Status }
	s.Require().NoError(s.db.Model(model).Select("status").Where("id = ?", id).Scan(&row).Error)
	return row.Status
}

func (s *CascadeTestSuite) auditCount() int64 {
	var count int64
	s.Require().NoError(s.db.Model(&models.AuditLog{}).Count(&count).Error)
	return count
}

func (s *CascadeTestSuite) TestPreviewListsChangesAndUnaffected() {
	t := s.seedScenario()

	plan, err := s.planner.Plan(s.ctx, models.EntityPlan, t.plan.ID, models.StatusCancelled)
	s.Require().NoError(err)

	s.Equal([]Step{
		{EntityType: models.EntityPlan, EntityID: t.plan.ID, CurrentStatus: models.StatusActive, PlannedStatus: models.StatusCancelled},
		{EntityType: models.EntityMilestone, EntityID: t.milestone.ID, CurrentStatus: models.StatusActive, PlannedStatus: models.StatusCancelled},
		{EntityType: models.EntityInitiative, EntityID: t.active.ID, CurrentStatus: models.StatusActive, PlannedStatus: models.StatusCancelled},
	}, plan.Changes)
	s.Equal([]Skipped{
		{EntityType: models.EntityInitiative, EntityID: t.completed.ID, Status: models.StatusCompleted, Reason: lifecycle.ReasonAlreadyTerminal},
	}, plan.Unaffected)
	s.Equal(Summary{Plans: 1, Milestones: 1, Initiatives: 1, Total: 3, Unaffected: 1}, plan.Summary)
	s.NotEmpty(plan.Fingerprint)
	s.Zero(s.auditCount(), "preview must not write")
}

func (s *CascadeTestSuite) TestExecuteWritesOneAuditRowPerTransition() {
	t := s.seedScenario()

	plan, err := s.planner.Plan(s.ctx, models.EntityPlan, t.plan.ID, models.StatusCancelled)
	s.Require().NoError(err)

	result, err := s.executor.Execute(s.ctx, plan, actor)
	s.Require().NoError(err)
	s.Len(result.Changes, 3)
	for _, c := range result.Changes {
		s.True(c.Applied)
		s.NotZero(c.AuditLogID)
	}
	s.Equal(actor, result.PerformedBy)

	s.Equal(models.StatusCancelled, s.status(&models.Plan{}, t.plan.ID))
	s.Equal(models.StatusCancelled, s.status(&models.Milestone{}, t.milestone.ID))
	s.Equal(models.StatusCancelled, s.status(&models.Initiative{}, t.active.ID))
	s.Equal(models.StatusCompleted, s.status(&models.Initiative{}, t.completed.ID))

	var logs []models.AuditLog
	s.Require().NoError(s.db.Order("id ASC").Find(&logs).Error)
	s.Require().Len(logs, 3)
	for _, l := range logs {
		s.Equal(models.AuditActionStatusChange, l.Action)
		s.Equal(actor, l.PerformedBy)
		s.Equal(models.StatusActive, *l.OldStatus)
		s.Equal(models.StatusCancelled, *l.NewStatus)
		if l.EntityType == models.EntityInitiative {
			s.NotEqual(t.completed.ID, l.EntityID, "terminal initiative must not be audited")
		}
	}
	s.Contains(logs[0].Details, "cascade root")
	s.Equal("cancelled via parent Plan #"+itoa(t.plan.ID)+" cascade", logs[1].Details)
}

func (s *CascadeTestSuite) TestRepeatedPreviewAfterExecuteIsEmpty() {
	t := s.seedScenario()

	_, err := s.executor.Run(s.ctx, models.EntityPlan, t.plan.ID, models.StatusCancelled, actor, "")
	s.Require().NoError(err)

	plan, err := s.planner.Plan(s.ctx, models.EntityPlan, t.plan.ID, models.StatusCancelled)
	s.Require().NoError(err)
	s.True(plan.Empty())
	s.Equal(4, plan.Summary.Unaffected)

	result, err := s.executor.Run(s.ctx, models.EntityPlan, t.plan.ID, models.StatusCancelled, actor, "")
	s.Require().NoError(err, "cancelling a cancelled plan is not an error")
	s.Empty(result.Changes)
	s.Equal(int64(3), s.auditCount())
}

func (s *CascadeTestSuite) TestStalePlanIsRejected() {
	t := s.seedScenario()

	planCancel, err := s.planner.Plan(s.ctx, models.EntityPlan, t.plan.ID, models.StatusCancelled)
	s.Require().NoError(err)
	milestoneCancel, err := s.planner.Plan(s.ctx, models.EntityMilestone, t.milestone.ID, models.StatusCancelled)
	s.Require().NoError(err)

	_, err = s.executor.Execute(s.ctx, milestoneCancel, "other@example.com")
	s.Require().NoError(err)

	_, err = s.executor.Execute(s.ctx, planCancel, actor)
	s.ErrorIs(err, ErrConcurrentModification)

	s.Equal(models.StatusActive, s.status(&models.Plan{}, t.plan.ID), "loser writes nothing")
	s.Equal(int64(2), s.auditCount())
}

func (s *CascadeTestSuite) TestRunRejectsMismatchedFingerprint() {
	t := s.seedScenario()

	_, err := s.executor.Run(s.ctx, models.EntityPlan, t.plan.ID, models.StatusCancelled, actor, "deadbeef")
	s.ErrorIs(err, ErrConcurrentModification)
	s.Equal(models.StatusActive, s.status(&models.Plan{}, t.plan.ID))
}

func (s *CascadeTestSuite) TestPreviewIsDeterministic() {
	t := s.seedWide()

	first, err := s.planner.Plan(s.ctx, models.EntityPlan, t.plan.ID, models.StatusCancelled)
	s.Require().NoError(err)
	second, err := s.planner.Plan(s.ctx, models.EntityPlan, t.plan.ID, models.StatusCancelled)
	s.Require().NoError(err)

	a, err := json.Marshal(first)
	s.Require().NoError(err)
	b, err := json.Marshal(second)
	s.Require().NoError(err)
	s.Equal(string(a), string(b))
}

func (s *CascadeTestSuite) TestPreviewMatchesExecution() {
	t := s.seedWide()

	preview, err := s.planner.Preview(s.ctx, models.EntityPlan, t.plan.ID, models.StatusCancelled)
	s.Require().NoError(err)

	result, err := s.executor.Run(s.ctx, models.EntityPlan, t.plan.ID, models.StatusCancelled, actor, preview.Fingerprint)
	s.Require().NoError(err)

	s.Require().Len(result.Changes, len(preview.Changes))
	for i, step := range preview.Changes {
		s.Equal(step, result.Changes[i].Step)
	}
	s.Equal(preview.Unaffected, result.Unaffected)
	s.Equal(preview.Summary, result.Summary)
}

func (s *CascadeTestSuite) TestTraversalOrder() {
	t := s.seedWide()

	plan, err := s.planner.Plan(s.ctx, models.EntityPlan, t.plan.ID, models.StatusCancelled)
	s.Require().NoError(err)

	var order []string
	for _, c := range plan.Changes {
		order = append(order, string(c.EntityType)+"#"+itoa(c.EntityID))
	}
	s.Equal([]string{
		"PLAN#" + itoa(t.plan.ID),
		"MILESTONE#" + itoa(t.milestone.ID),
		"INITIATIVE#" + itoa(t.active.ID),
		"MILESTONE#" + itoa(t.second.ID),
		"INITIATIVE#" + itoa(t.inProgress.ID),
		"MILESTONE#" + itoa(t.secondEmpty.ID),
	}, order)
}

func (s *CascadeTestSuite) TestTerminalRootStillReachesOpenDescendants() {
	plan := s.createPlan(models.StatusCompleted)
	milestone := s.createMilestone(plan.ID, 1, models.StatusActive)

	p, err := s.planner.Plan(s.ctx, models.EntityPlan, plan.ID, models.StatusCancelled)
	s.Require().NoError(err)
	s.Require().Len(p.Changes, 1)
	s.Equal(milestone.ID, p.Changes[0].EntityID)
	s.Equal(models.EntityPlan, p.Unaffected[0].EntityType)
}

func (s *CascadeTestSuite) TestMilestoneWithoutInitiatives() {
	plan := s.createPlan(models.StatusActive)
	milestone := s.createMilestone(plan.ID, 1, models.StatusActive)

	p, err := s.planner.Plan(s.ctx, models.EntityMilestone, milestone.ID, models.StatusCancelled)
	s.Require().NoError(err)
	s.Require().Len(p.Changes, 1)
	s.Equal(models.EntityMilestone, p.Changes[0].EntityType)
	s.Empty(p.Unaffected)
}

func (s *CascadeTestSuite) TestMonotonicity() {
	t := s.seedWide()

	_, err := s.executor.Run(s.ctx, models.EntityPlan, t.plan.ID, models.StatusCancelled, actor, "")
	s.Require().NoError(err)

	_, err = s.executor.Run(s.ctx, models.EntityPlan, t.plan.ID, models.StatusCompleted, actor, "")
	s.Require().NoError(err)

	s.Equal(models.StatusCancelled, s.status(&models.Plan{}, t.plan.ID))
	s.Equal(models.StatusCancelled, s.status(&models.Initiative{}, t.inProgress.ID))
	s.Equal(models.StatusCompleted, s.status(&models.Initiative{}, t.completed.ID))
}

func (s *CascadeTestSuite) TestStoreFailureRollsBackEverything() {
	t := s.seedWide()

	injected := errors.New("injected initiative update failure")
	s.Require().NoError(s.db.Callback().Update().Before("gorm:update").Register("test:fail_initiatives", func(tx *gorm.DB) {
		if tx.Statement.Table == "initiatives" {
			tx.AddError(injected)
		}
	}))

	_, err := s.executor.Run(s.ctx, models.EntityPlan, t.plan.ID, models.StatusCancelled, actor, "")
	s.Require().ErrorIs(err, injected)

	s.Equal(models.StatusActive, s.status(&models.Plan{}, t.plan.ID))
	s.Equal(models.StatusActive, s.status(&models.Milestone{}, t.milestone.ID))
	s.Equal(models.StatusInProgress, s.status(&models.Milestone{}, t.second.ID))
	s.Zero(s.auditCount())
}

func (s *CascadeTestSuite) TestAuditFailureRollsBackEverything() {
	t := s.seedWide()

	executor := s.newExecutor(&failingRecorder{next: audit.NewLogRecorder(s.auditLogs), failN: 4})

	_, err := executor.Run(s.ctx, models.EntityPlan, t.plan.ID, models.StatusCancelled, actor, "")
	s.Require().Error(err)

	s.Equal(models.StatusActive, s.status(&models.Plan{}, t.plan.ID))
	s.Equal(models.StatusActive, s.status(&models.Initiative{}, t.active.ID))
	s.Equal(models.StatusInProgress, s.status(&models.Initiative{}, t.inProgress.ID))
	s.Zero(s.auditCount(), "audit rows written before the failure roll back too")
}

func (s *CascadeTestSuite) TestNotFoundRoot() {
	_, err := s.planner.Plan(s.ctx, models.EntityPlan, 999, models.StatusCancelled)
	s.ErrorIs(err, ErrNotFound)

	_, err = s.executor.Run(s.ctx, models.EntityMilestone, 999, models.StatusCancelled, actor, "")
	s.ErrorIs(err, ErrNotFound)
}

func (s *CascadeTestSuite) TestForwardSkipAbortsPlan() {
	t := s.seedScenario()
	planner := NewPlanner(lifecycle.NewMachine(lifecycle.Policy{RequireInProgressBeforeComplete: true}), s.plans, s.milestones, s.initiatives)

	_, err := planner.Plan(s.ctx, models.EntityPlan, t.plan.ID, models.StatusCompleted)
	s.Require().Error(err)
	s.True(lifecycle.IsReason(err, lifecycle.ReasonIllegalForwardSkip))
}

func TestCascadeTestSuite(t *testing.T) {
	suite.Run(t, new(CascadeTestSuite))
}

func TestPlanner_RejectsNonTerminalTarget(t *testing.T) {
	p := NewPlanner(lifecycle.NewMachine(lifecycle.Policy{}), nil, nil, nil)

	_, err := p.Plan(context.Background(), models.EntityPlan, 1, models.StatusInProgress)
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

func TestPlanner_RejectsUnknownRoot(t *testing.T) {
	p := NewPlanner(lifecycle.NewMachine(lifecycle.Policy{}), nil, nil, nil)

	_, err := p.Plan(context.Background(), models.EntityComment, 1, models.StatusCancelled)
	assert.ErrorIs(t, err, ErrUnsupportedRoot)
}

func TestExecutor_RequiresActor(t *testing.T) {
	e := NewExecutor(nil, nil, nil)

	_, err := e.Run(context.Background(), models.EntityPlan, 1, models.StatusCancelled, " ", "")
	require.ErrorIs(t, err, ErrActorRequired)
}

func TestGroupChanges(t *testing.T) {
	steps := []Step{
		{EntityType: models.EntityPlan, EntityID: 1, CurrentStatus: models.StatusActive},
		{EntityType: models.EntityMilestone, EntityID: 2, CurrentStatus: models.StatusActive},
		{EntityType: models.EntityMilestone, EntityID: 3, CurrentStatus: models.StatusInProgress},
		{EntityType: models.EntityMilestone, EntityID: 4, CurrentStatus: models.StatusActive},
	}

	groups := groupChanges(steps)
	require.Len(t, groups, 3)
	assert.Equal(t, models.EntityPlan, groups[0].entityType)
	assert.Equal(t, []uint64{2, 4}, groups[1].ids)
	assert.Equal(t, models.StatusInProgress, groups[2].from)
}
