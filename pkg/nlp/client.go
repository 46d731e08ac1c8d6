package nlp

import (
	"context"
	"fmt"
	"strings"

	"github.com/soundprediction/docgraph/pkg/types"
)

// Client defines the interface for language model operations.
type Client interface {
	// Chat sends a chat completion request and returns the response.
	Chat(ctx context.Context, messages []types.Message) (*types.Response, error)

	// GetCapabilities returns the list of capabilities supported by this client.
	GetCapabilities() []TaskCapability

	// Close cleans up any resources.
	Close() error
}

const (
	// RoleSystem represents a system message.
	RoleSystem types.Role = "system"
	// RoleUser represents a user message.
	RoleUser types.Role = "user"
	// RoleAssistant represents an assistant message.
	RoleAssistant types.Role = "assistant"
)

// Config holds per-client generation settings.
type Config struct {
	Model       string   `json:"model"`
	Temperature *float32 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	TopP        *float32 `json:"top_p,omitempty"`
	Stop        []string `json:"stop,omitempty"`
	BaseURL     string   `json:"base_url,omitempty"` // Custom base URL for OpenAI-compatible services
}

// NewMessage creates a new message with the specified role and content.
func NewMessage(role types.Role, content string) types.Message {
	return types.Message{Role: role, Content: content}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) types.Message {
	return NewMessage(RoleSystem, content)
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) types.Message {
	return NewMessage(RoleUser, content)
}

// Complete sends prompt as a single user message and returns the trimmed
// answer text. Failures and empty answers wrap types.ErrLLM.
func Complete(ctx context.Context, client Client, prompt string) (string, error) {
	if client == nil {
		return "", fmt.Errorf("%w: no client configured", types.ErrLLM)
	}
	resp, err := client.Chat(ctx, []types.Message{NewUserMessage(prompt)})
	if err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrLLM, err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", fmt.Errorf("%w: %w", types.ErrLLM, NewEmptyResponseError("the LLM returned an empty response"))
	}
	return strings.TrimSpace(resp.Content), nil
}
