package services

import (
	"context"
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anand-fs/plantrack/internal/database"
	"github.com/anand-fs/plantrack/internal/lifecycle"
	"github.com/anand-fs/plantrack/internal/models"
)

type fakeCompleter struct {
	content string
	err     error
	request openai.ChatCompletionRequest
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.request = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: f.content}},
		},
	}, nil
}

func setupAITest(t *testing.T, completer ChatCompleter) (*InitiativeService, *models.Milestone) {
	t.Helper()

	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	owner := &models.User{Name: "Owner", Email: "owner@example.com", PasswordHash: "x", Role: models.RoleManager, Status: models.UserStatusActive}
	require.NoError(t, db.Create(owner).Error)
	plan := &models.Plan{UserID: owner.ID, Title: "Plan", Status: models.StatusActive}
	require.NoError(t, db.Create(plan).Error)
	milestone := &models.Milestone{PlanID: plan.ID, Title: "Public beta", Status: models.StatusActive}
	require.NoError(t, db.Create(milestone).Error)

	var ai *AIService
	if completer != nil {
		ai = NewAIServiceWithClient(completer)
	}
	return NewInitiativeService(NewDeps(db, lifecycle.Policy{}, ai)), milestone
}

func TestSuggestInitiatives(t *testing.T) {
	completer := &fakeCompleter{content: `[{"title":"Load test","description":"Run k6 against staging"},{"title":"  ","description":"blank"}]`}
	svc, milestone := setupAITest(t, completer)

	drafts, err := svc.SuggestInitiatives(context.Background(), SuggestInitiativesInput{MilestoneID: milestone.ID, Text: "we need perf numbers"})
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "Load test", drafts[0].Title)

	require.Len(t, completer.request.Messages, 1)
	assert.Contains(t, completer.request.Messages[0].Content, "Public beta")
	assert.Contains(t, completer.request.Messages[0].Content, "we need perf numbers")
}

func TestSuggestInitiativesFailures(t *testing.T) {
	ctx := context.Background()

	svc, milestone := setupAITest(t, nil)
	_, err := svc.SuggestInitiatives(ctx, SuggestInitiativesInput{MilestoneID: milestone.ID, Text: "x"})
	assert.ErrorIs(t, err, ErrAIServiceNotConfigured)

	svc, milestone = setupAITest(t, &fakeCompleter{content: `[]`})
	_, err = svc.SuggestInitiatives(ctx, SuggestInitiativesInput{MilestoneID: milestone.ID, Text: "x"})
	assert.ErrorIs(t, err, ErrAINoInitiativesGenerated)

	svc, milestone = setupAITest(t, &fakeCompleter{content: `[{"title":"","description":"d"}]`})
	_, err = svc.SuggestInitiatives(ctx, SuggestInitiativesInput{MilestoneID: milestone.ID, Text: "x"})
	assert.ErrorIs(t, err, ErrAINoValidInitiatives)

	svc, milestone = setupAITest(t, &fakeCompleter{content: `not json`})
	_, err = svc.SuggestInitiatives(ctx, SuggestInitiativesInput{MilestoneID: milestone.ID, Text: "x"})
	assert.Error(t, err)

	upstream := errors.New("rate limited")
	svc, milestone = setupAITest(t, &fakeCompleter{err: upstream})
	_, err = svc.SuggestInitiatives(ctx, SuggestInitiativesInput{MilestoneID: milestone.ID, Text: "x"})
	assert.ErrorIs(t, err, upstream)

	svc, _ = setupAITest(t, &fakeCompleter{content: `[]`})
	_, err = svc.SuggestInitiatives(ctx, SuggestInitiativesInput{MilestoneID: 999, Text: "x"})
	assert.ErrorIs(t, err, ErrMilestoneNotFound)
}
