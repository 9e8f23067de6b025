// Package ai wraps the OpenAI chat-completion API behind the narrow contract
// the orchestrator needs.
package ai

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/novahq/nova/model"
)

// Turn is one role/content pair exchanged with the model.
type Turn struct {
	Role    string
	Content string
}

// CompletionRequest carries one model call: a system instruction, the prior
// history in order, and the new user content.
type CompletionRequest struct {
	Model       string
	System      string
	History     []Turn
	User        string
	Temperature float32
}

// Client calls the OpenAI chat-completion endpoint.
type Client struct {
	api *openai.Client
}

// NewClient creates a client for the given API key.
func NewClient(apiKey string) *Client {
	return &Client{api: openai.NewClient(apiKey)}
}

// Complete performs one chat completion. API failures (including their HTTP
// status codes, e.g. 401 or 429 inside *openai.APIError) are returned
// unchanged so callers can surface them as-is.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (Turn, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: req.System,
	})
	for _, t := range req.History {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    t.Role,
			Content: t.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.User,
	})

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
	})
	if err != nil {
		return Turn{}, err
	}

	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}
	return Turn{Role: model.RoleAssistant, Content: content}, nil
}
