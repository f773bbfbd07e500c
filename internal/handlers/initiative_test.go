package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anand-fs/plantrack/internal/dto"
	apierrors "github.com/anand-fs/plantrack/internal/errors"
	"github.com/anand-fs/plantrack/internal/models"
	"github.com/anand-fs/plantrack/internal/services"
)

type stubCompleter struct {
	content string
}

func (s stubCompleter) CreateChatCompletion(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: s.content}}},
	}, nil
}

func TestInitiativeHandler_CreateRejectsInvalidReferences(t *testing.T) {
	env := setupTestEnv(t, nil)
	manager, managerToken := env.createUser(t, "manager@example.com", models.RoleManager)
	worker, _ := env.createUser(t, "worker@example.com", models.RoleEmployee)
	h := env.buildHierarchy(t, managerToken, manager, worker)

	w := env.do(t, http.MethodPost, fmt.Sprintf("/api/milestones/%d/initiatives", h.milestone.ID), map[string]interface{}{
		"title": "Ghost work", "assigneeIds": []uint64{worker.ID, 999},
	}, managerToken)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var apiErr apierrors.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Equal(t, apierrors.ErrCodeInvalidReference, apiErr.Code)

	w = env.do(t, http.MethodPost, fmt.Sprintf("/api/plans/%d/milestones/%d/initiatives", h.plan.ID+1, h.milestone.ID), map[string]interface{}{
		"title": "Wrong plan", "assigneeIds": []uint64{worker.ID},
	}, managerToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, fmt.Sprintf("/api/milestones/%d/initiatives", h.milestone.ID), map[string]interface{}{
		"title": "Nobody",
	}, managerToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/milestones/%d/initiatives", h.milestone.ID), nil, managerToken)
	require.Equal(t, http.StatusOK, w.Code)
	var list []dto.InitiativeDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestInitiativeHandler_EmployeeUpdates(t *testing.T) {
	env := setupTestEnv(t, nil)
	manager, managerToken := env.createUser(t, "manager@example.com", models.RoleManager)
	worker, workerToken := env.createUser(t, "worker@example.com", models.RoleEmployee)
	_, outsiderToken := env.createUser(t, "outsider@example.com", models.RoleEmployee)
	h := env.buildHierarchy(t, managerToken, manager, worker)
	url := fmt.Sprintf("/api/initiatives/%d", h.initiative.ID)

	w := env.do(t, http.MethodPut, url, map[string]string{"status": "IN_PROGRESS"}, outsiderToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPut, url, map[string]string{"status": "IN_PROGRESS"}, workerToken)
	require.Equal(t, http.StatusOK, w.Code)
	var initiative dto.InitiativeDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &initiative))
	assert.Equal(t, models.StatusInProgress, initiative.Status)
	require.Len(t, initiative.Assignees, 1)
	assert.Equal(t, worker.ID, initiative.Assignees[0].ID)

	w = env.do(t, http.MethodDelete, url, nil, workerToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d/initiatives", worker.ID), nil, workerToken)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []dto.InitiativeDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	assert.Len(t, mine, 1)
}

func TestCommentHandler_Thread(t *testing.T) {
	env := setupTestEnv(t, nil)
	manager, managerToken := env.createUser(t, "manager@example.com", models.RoleManager)
	worker, workerToken := env.createUser(t, "worker@example.com", models.RoleEmployee)
	_, outsiderToken := env.createUser(t, "outsider@example.com", models.RoleEmployee)
	h := env.buildHierarchy(t, managerToken, manager, worker)
	url := fmt.Sprintf("/api/initiatives/%d/comments", h.initiative.ID)

	w := env.do(t, http.MethodPost, url, map[string]string{"body": "hello"}, outsiderToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, url, map[string]string{"body": "on it"}, workerToken)
	require.Equal(t, http.StatusCreated, w.Code)
	var comment dto.CommentDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &comment))
	require.NotNil(t, comment.Author)
	assert.Equal(t, worker.ID, comment.Author.ID)

	w = env.do(t, http.MethodPut, fmt.Sprintf("/api/comments/%d", comment.ID), map[string]string{"body": "edited"}, managerToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodGet, url, nil, outsiderToken)
	require.Equal(t, http.StatusOK, w.Code)
	var thread []dto.CommentDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &thread))
	assert.Len(t, thread, 1)

	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/comments/%d", comment.ID), nil, managerToken)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestInitiativeHandler_Generate(t *testing.T) {
	ai := services.NewAIServiceWithClient(stubCompleter{content: `[{"title":"Load test","description":"staging"}]`})
	env := setupTestEnv(t, ai)
	manager, managerToken := env.createUser(t, "manager@example.com", models.RoleManager)
	worker, _ := env.createUser(t, "worker@example.com", models.RoleEmployee)
	h := env.buildHierarchy(t, managerToken, manager, worker)

	w := env.do(t, http.MethodPost, fmt.Sprintf("/api/milestones/%d/initiatives/generate", h.milestone.ID),
		map[string]string{"text": "we need performance numbers"}, managerToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response struct {
		Initiatives []dto.DraftInitiativeDTO `json:"initiatives"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Initiatives, 1)
	assert.Equal(t, "Load test", response.Initiatives[0].Title)
}

func TestInitiativeHandler_GenerateWithoutAI(t *testing.T) {
	env := setupTestEnv(t, nil)
	manager, managerToken := env.createUser(t, "manager@example.com", models.RoleManager)
	worker, _ := env.createUser(t, "worker@example.com", models.RoleEmployee)
	h := env.buildHierarchy(t, managerToken, manager, worker)

	w := env.do(t, http.MethodPost, fmt.Sprintf("/api/milestones/%d/initiatives/generate", h.milestone.ID),
		map[string]string{"text": "anything"}, managerToken)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
