package services

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/elimu-hub/cbc-chatbot/config"
	"github.com/elimu-hub/cbc-chatbot/models"
)

// CompletionService synthesizes the final answer. This is the one pipeline
// stage whose failure is terminal for the request.
type CompletionService interface {
	Complete(ctx context.Context, systemPrompt string, history []models.ChatMessage) (string, error)
}

type completionServiceImpl struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewCompletionService creates a client for Groq's OpenAI-compatible chat
// completions endpoint.
func NewCompletionService(cfg *config.Config) CompletionService {
	clientConfig := openai.DefaultConfig(cfg.GroqAPIKey)
	if cfg.GroqBaseURL != "" {
		clientConfig.BaseURL = cfg.GroqBaseURL
	}
	return &completionServiceImpl{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     cfg.GroqModel,
		maxTokens: cfg.GroqMaxTokens,
	}
}

// Complete prepends the assembled system prompt to the conversation and asks
// the model for an answer. Low temperature favors factual consistency over
// creativity.
func (s *completionServiceImpl) Complete(ctx context.Context, systemPrompt string, history []models.ChatMessage) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, m := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    messages,
		Temperature: 0.2,
		MaxTokens:   s.maxTokens,
		TopP:        0.9,
	})
	if err != nil {
		return "", fmt.Errorf("completion call failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
