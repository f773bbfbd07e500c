package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anand-fs/plantrack/internal/cascade"
	"github.com/anand-fs/plantrack/internal/dto"
	apierrors "github.com/anand-fs/plantrack/internal/errors"
	"github.com/anand-fs/plantrack/internal/models"
)

type hierarchy struct {
	plan       dto.PlanDTO
	milestone  dto.MilestoneDTO
	initiative dto.InitiativeDTO
}

func (e testEnv) buildHierarchy(t *testing.T, managerToken string, owner, assignee *models.User) hierarchy {
	t.Helper()
	var h hierarchy

	w := e.do(t, http.MethodPost, fmt.Sprintf("/api/users/%d/plans", owner.ID), map[string]string{"title": "Launch"}, managerToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &h.plan))

	w = e.do(t, http.MethodPost, fmt.Sprintf("/api/plans/%d/milestones", h.plan.ID), map[string]interface{}{"title": "Beta", "sequence": 1}, managerToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &h.milestone))

	w = e.do(t, http.MethodPost, fmt.Sprintf("/api/plans/%d/milestones/%d/initiatives", h.plan.ID, h.milestone.ID), map[string]interface{}{
		"title":       "Docs",
		"assigneeIds": []uint64{assignee.ID},
	}, managerToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &h.initiative))

	return h
}

func TestPlanHandler_CancelFlow(t *testing.T) {
	env := setupTestEnv(t, nil)
	manager, managerToken := env.createUser(t, "manager@example.com", models.RoleManager)
	worker, _ := env.createUser(t, "worker@example.com", models.RoleEmployee)
	h := env.buildHierarchy(t, managerToken, manager, worker)

	w := env.do(t, http.MethodGet, fmt.Sprintf("/api/plans/%d/cancel-preview", h.plan.ID), nil, managerToken)
	require.Equal(t, http.StatusOK, w.Code)

	var preview cascade.Plan
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &preview))
	assert.Equal(t, 3, preview.Summary.Total)
	require.NotEmpty(t, preview.Fingerprint)

	// preview writes nothing
	again := env.do(t, http.MethodGet, fmt.Sprintf("/api/plans/%d/cancel-preview", h.plan.ID), nil, managerToken)
	assert.Equal(t, w.Body.String(), again.Body.String())

	w = env.do(t, http.MethodPost, fmt.Sprintf("/api/plans/%d/cancel", h.plan.ID), map[string]string{"fingerprint": preview.Fingerprint}, managerToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result cascade.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Len(t, result.Changes, 3)
	assert.Equal(t, manager.Email, result.PerformedBy)

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/initiatives/%d", h.initiative.ID), nil, managerToken)
	require.Equal(t, http.StatusOK, w.Code)
	var initiative dto.InitiativeDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &initiative))
	assert.Equal(t, models.StatusCancelled, initiative.Status)

	// the same confirmed preview is now stale
	w = env.do(t, http.MethodPost, fmt.Sprintf("/api/plans/%d/cancel", h.plan.ID), map[string]string{"fingerprint": preview.Fingerprint}, managerToken)
	require.Equal(t, http.StatusConflict, w.Code)
	var apiErr apierrors.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Equal(t, apierrors.ErrCodeConcurrentModification, apiErr.Code)
	assert.Equal(t, retryMessage, apiErr.Message)

	// without a fingerprint a repeated cancel changes nothing
	w = env.do(t, http.MethodPost, fmt.Sprintf("/api/plans/%d/cancel", h.plan.ID), nil, managerToken)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Empty(t, result.Changes)
}

func TestPlanHandler_EmployeeCannotCancel(t *testing.T) {
	env := setupTestEnv(t, nil)
	manager, managerToken := env.createUser(t, "manager@example.com", models.RoleManager)
	worker, workerToken := env.createUser(t, "worker@example.com", models.RoleEmployee)
	h := env.buildHierarchy(t, managerToken, manager, worker)

	w := env.do(t, http.MethodGet, fmt.Sprintf("/api/plans/%d/cancel-preview", h.plan.ID), nil, workerToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, fmt.Sprintf("/api/plans/%d/cancel", h.plan.ID), nil, workerToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/plans/%d", h.plan.ID), nil, workerToken)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPlanHandler_NotFoundAndBadID(t *testing.T) {
	env := setupTestEnv(t, nil)
	_, managerToken := env.createUser(t, "manager@example.com", models.RoleManager)

	w := env.do(t, http.MethodGet, "/api/plans/999/cancel-preview", nil, managerToken)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/api/plans/999/cancel", nil, managerToken)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/plans/abc", nil, managerToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlanHandler_UpdateRules(t *testing.T) {
	env := setupTestEnv(t, nil)
	manager, managerToken := env.createUser(t, "manager@example.com", models.RoleManager)
	worker, _ := env.createUser(t, "worker@example.com", models.RoleEmployee)
	h := env.buildHierarchy(t, managerToken, manager, worker)
	url := fmt.Sprintf("/api/plans/%d", h.plan.ID)

	w := env.do(t, http.MethodPut, url, map[string]string{"status": "ARCHIVED"}, managerToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPut, url, map[string]string{"status": "CANCELLED"}, managerToken)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = env.do(t, http.MethodPut, url, map[string]string{"status": "IN_PROGRESS"}, managerToken)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPut, url, map[string]string{"status": "ACTIVE"}, managerToken)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var apiErr apierrors.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Equal(t, apierrors.ErrCodeTransitionRejected, apiErr.Code)

	w = env.do(t, http.MethodDelete, url, nil, managerToken)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestMilestoneHandler_CancelAndReactivate(t *testing.T) {
	env := setupTestEnv(t, nil)
	manager, managerToken := env.createUser(t, "manager@example.com", models.RoleManager)
	worker, _ := env.createUser(t, "worker@example.com", models.RoleEmployee)
	h := env.buildHierarchy(t, managerToken, manager, worker)

	w := env.do(t, http.MethodPost, fmt.Sprintf("/api/milestones/%d/cancel", h.milestone.ID), nil, managerToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodPost, fmt.Sprintf("/api/milestones/%d/initiatives", h.milestone.ID), map[string]interface{}{
		"title": "Late", "assigneeIds": []uint64{worker.ID},
	}, managerToken)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = env.do(t, http.MethodPost, fmt.Sprintf("/api/milestones/%d/reactivate", h.milestone.ID), nil, managerToken)
	require.Equal(t, http.StatusOK, w.Code)
	var milestone dto.MilestoneDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &milestone))
	assert.Equal(t, models.StatusActive, milestone.Status)

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/plans/%d", h.plan.ID), nil, managerToken)
	require.Equal(t, http.StatusOK, w.Code)
	var plan dto.PlanDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &plan))
	assert.Equal(t, models.StatusActive, plan.Status)
}
