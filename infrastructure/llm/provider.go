// Package llm provides the language-model invocation capability consumed by
// the translator and the agent loop.
package llm

import (
	"context"
	"fmt"
)

// Provider is the single model-facing capability: one request/response
// completion exchange, no streaming. It is stateless and injected once at
// startup, shared across requests.
type Provider interface {
	// Complete sends a chat completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

	// Name returns the provider name for logging.
	Name() string
}

// CompletionRequest is a chat completion request.
// Temperature is fixed to 0 by callers that require determinism.
type CompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// Message is a chat message.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// CompletionResponse is a chat completion response.
type CompletionResponse struct {
	Model   string `json:"model"`
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

// Usage carries token accounting.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ModelError indicates a transport or auth failure talking to the provider.
type ModelError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ModelError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: model invocation failed (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: model invocation failed: %s", e.Provider, e.Message)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// SystemMessage creates a system-role message.
func SystemMessage(content string) Message {
	return Message{Role: "system", Content: content}
}

// UserMessage creates a user-role message.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}
