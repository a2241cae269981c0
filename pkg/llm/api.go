// Package llm provides interfaces and types for text-generation client implementations.
package llm

import (
	"context"
	"fmt"
)

// CompletionRole represents the role of a message in a conversation.
type CompletionRole string

const (
	// RoleSystem indicates a system message that provides instructions or context.
	RoleSystem CompletionRole = "system"
	// RoleUser indicates a message from the human user.
	RoleUser CompletionRole = "user"
	// RoleAssistant indicates a message from the model.
	RoleAssistant CompletionRole = "assistant"
)

const (
	// TemperatureDefault is the sampling temperature for drafting and refining emails.
	TemperatureDefault = 0.7

	// MaxTokensDefault caps the length of a drafted or refined email.
	MaxTokensDefault = 1000

	// ProbeMaxTokens is the budget for credential probes.
	ProbeMaxTokens = 5

	// ProbeMessage is the user message sent by credential probes.
	ProbeMessage = "Hello"
)

// CompletionMessage represents a message in a completion request.
type CompletionMessage struct {
	Content string
	Role    CompletionRole
}

// CompletionRequest represents a request to generate a completion.
// A zero Temperature leaves the provider's own default in place.
type CompletionRequest struct {
	Messages    []CompletionMessage
	MaxTokens   int
	Temperature float32
}

// CompletionResponse represents a response from a completion request.
type CompletionResponse struct {
	Content    string // Main response text
	StopReason string // Why the response stopped, as reported by the provider
}

// LLMClient defines the interface for language model interactions.
type LLMClient interface { //nolint:revive // Name kept in line with the middleware packages
	// Complete generates a completion synchronously.
	Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error)

	// GetModelName returns the model name for this LLM client.
	GetModelName() string
}

// NewCompletionRequest creates a new completion request with default values.
func NewCompletionRequest(messages []CompletionMessage) CompletionRequest {
	return CompletionRequest{
		Messages:    messages,
		MaxTokens:   MaxTokensDefault,
		Temperature: TemperatureDefault,
	}
}

// NewProbeRequest creates the minimal request used to check that a credential works.
func NewProbeRequest() CompletionRequest {
	return CompletionRequest{
		Messages:  []CompletionMessage{NewUserMessage(ProbeMessage)},
		MaxTokens: ProbeMaxTokens,
	}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) CompletionMessage {
	return CompletionMessage{
		Role:    RoleSystem,
		Content: content,
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) CompletionMessage {
	return CompletionMessage{
		Role:    RoleUser,
		Content: content,
	}
}

// SplitSystem joins all system messages and returns them apart from the rest.
// Providers with a dedicated system parameter use this.
func SplitSystem(messages []CompletionMessage) (system string, rest []CompletionMessage) {
	rest = make([]CompletionMessage, 0, len(messages))
	for i := range messages {
		msg := &messages[i]
		if msg.Role != RoleSystem {
			rest = append(rest, *msg)
			continue
		}
		if system != "" {
			system += "\n\n"
		}
		system += msg.Content
	}
	return system, rest
}

// LLMConfig represents configuration for an LLM client.
type LLMConfig struct { //nolint:revive // Keep name for consistency with LLMClient
	APIKey    string
	BaseURL   string
	ModelName string
}

// Validate validates the LLM configuration.
func (c *LLMConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("API key cannot be empty")
	}
	if c.ModelName == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	return nil
}
