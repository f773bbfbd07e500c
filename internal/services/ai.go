package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

var (
	ErrAIServiceNotConfigured   = errors.New("AI service is not configured")
	ErrAINoInitiativesGenerated = errors.New("AI did not generate any initiatives")
	ErrAINoValidInitiatives     = errors.New("no valid initiatives could be drafted from AI output")
)

// ChatCompleter is the part of the OpenAI client the service uses.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type AIService struct {
	client ChatCompleter
	model  string
}

type GeneratedInitiative struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func NewAIService(apiKey string) *AIService {
	return NewAIServiceWithClient(openai.NewClient(apiKey))
}

func NewAIServiceWithClient(client ChatCompleter) *AIService {
	return &AIService{
		client: client,
		model:  openai.GPT4o,
	}
}

// GenerateInitiativesFromText drafts initiatives for a milestone using OpenAI GPT
func (s *AIService) GenerateInitiativesFromText(ctx context.Context, milestoneTitle, text string) ([]GeneratedInitiative, error) {
	if s.client == nil {
		return nil, fmt.Errorf("OpenAI client not initialized")
	}

	prompt := fmt.Sprintf(`You help break a project milestone down into initiatives.

Milestone: %s

Notes:
%s

Return a JSON array of initiatives in this shape:
[
  {
    "title": "short initiative title",
    "description": "what needs to be done"
  }
]

Rules:
- Return [] when the notes contain no actionable work
- Return JSON only, without any explanation`, milestoneTitle, text)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: s.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.3,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	content := resp.Choices[0].Message.Content

	var drafts []GeneratedInitiative
	if err := json.Unmarshal([]byte(content), &drafts); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w (response: %s)", err, content)
	}

	return drafts, nil
}
