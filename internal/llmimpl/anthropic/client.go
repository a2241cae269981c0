// Package anthropic provides an Anthropic Claude client for the provider chain.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"outreach/pkg/llm"
	"outreach/pkg/llmerrors"
)

// DefaultModel is used when the configuration names none.
const DefaultModel = "claude-3-5-haiku-latest"

// ClaudeClient wraps the Anthropic API client to implement llm.LLMClient.
type ClaudeClient struct {
	client    anthropic.Client
	model     anthropic.Model
	configErr error
}

// NewClaudeClient creates a raw client (middleware applied at higher level).
func NewClaudeClient(cfg llm.LLMConfig, opts ...option.RequestOption) llm.LLMClient {
	if cfg.ModelName == "" {
		cfg.ModelName = DefaultModel
	}
	if err := cfg.Validate(); err != nil {
		return &ClaudeClient{model: anthropic.Model(cfg.ModelName), configErr: llmerrors.NewErrorWithCause(llmerrors.ErrorTypeNotConfigured, err, err.Error())}
	}
	base := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		base = append(base, option.WithBaseURL(cfg.BaseURL))
	}
	return &ClaudeClient{
		client: anthropic.NewClient(append(base, opts...)...),
		model:  anthropic.Model(cfg.ModelName),
	}
}

// Complete implements the llm.LLMClient interface.
func (c *ClaudeClient) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	if c.configErr != nil {
		return llm.CompletionResponse{}, c.configErr
	}
	systemPrompt, rest := llm.SplitSystem(in.Messages)
	if len(rest) == 0 {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeUnknown, "message list cannot be empty")
	}

	messages := make([]anthropic.MessageParam, 0, len(rest))
	for i := range rest {
		block := anthropic.NewTextBlock(rest[i].Content)
		if rest[i].Role == llm.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: int64(in.MaxTokens),
	}
	if in.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(in.Temperature))
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{
			Text: systemPrompt,
			Type: "text",
		}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}
	if resp == nil || len(resp.Content) == 0 {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeResponse, "received empty response from Claude API")
	}

	var responseText strings.Builder
	for i := range resp.Content {
		block := &resp.Content[i]
		if block.Type == "text" {
			responseText.WriteString(block.AsText().Text)
		}
	}
	if strings.TrimSpace(responseText.String()) == "" {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeResponse, "Claude response contained no text")
	}

	return llm.CompletionResponse{
		Content:    responseText.String(),
		StopReason: string(resp.StopReason),
	}, nil
}

// GetModelName returns the model name for this client.
func (c *ClaudeClient) GetModelName() string {
	return string(c.model)
}

// classifyError maps Anthropic SDK errors to our structured error types.
func classifyError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		errType, _ := llmerrors.ClassifyStatus(apiErr.StatusCode)
		return &llmerrors.Error{
			Type:       errType,
			StatusCode: apiErr.StatusCode,
			Message:    fmt.Sprintf("Claude API returned status %d", apiErr.StatusCode),
			Err:        err,
		}
	}
	return llmerrors.ClassifyTransport(err)
}
