// Package openaicompat provides a chat-completions client for OpenAI-compatible
// endpoints (DeepSeek, Groq) built on the official OpenAI Go package.
package openaicompat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"outreach/pkg/llm"
	"outreach/pkg/llmerrors"
)

// Well-known endpoints and models.
const (
	DeepSeekBaseURL = "https://api.deepseek.com/v1"
	DeepSeekModel   = "deepseek-chat"
	GroqBaseURL     = "https://api.groq.com/openai/v1"
	GroqModel       = "llama3-8b-8192"
)

// Client wraps the official OpenAI client to implement llm.LLMClient.
type Client struct {
	client    openai.Client
	model     string
	configErr error
}

// NewClient creates a raw client (middleware applied at higher level).
// SDK retries are disabled: fallback to the next provider replaces them.
func NewClient(cfg llm.LLMConfig, opts ...option.RequestOption) llm.LLMClient {
	if err := cfg.Validate(); err != nil {
		return &Client{model: cfg.ModelName, configErr: llmerrors.NewErrorWithCause(llmerrors.ErrorTypeNotConfigured, err, err.Error())}
	}
	base := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		base = append(base, option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"))
	}
	return &Client{
		client: openai.NewClient(append(base, opts...)...),
		model:  cfg.ModelName,
	}
}

// Complete implements llm.LLMClient with a single chat completion.
func (c *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	if c.configErr != nil {
		return llm.CompletionResponse{}, c.configErr
	}
	if len(in.Messages) == 0 {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeUnknown, "message list cannot be empty")
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: convertMessages(in.Messages),
	}
	if in.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(in.MaxTokens))
	}
	if in.Temperature > 0 {
		params.Temperature = openai.Float(float64(in.Temperature))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeResponse, "response contained no choices")
	}

	choice := resp.Choices[0]
	if strings.TrimSpace(choice.Message.Content) == "" {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeResponse, "response contained no message content")
	}

	return llm.CompletionResponse{
		Content:    choice.Message.Content,
		StopReason: string(choice.FinishReason),
	}, nil
}

// GetModelName returns the model name for this client.
func (c *Client) GetModelName() string {
	return c.model
}

func convertMessages(messages []llm.CompletionMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for i := range messages {
		msg := &messages[i]
		switch msg.Role {
		case llm.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case llm.RoleAssistant:
			out = append(out, openai.ChatCompletionMessageParamOfAssistant(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}

// classifyError maps SDK errors onto the provider error taxonomy.
func classifyError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		errType, _ := llmerrors.ClassifyStatus(apiErr.StatusCode)
		message := fmt.Sprintf("status %d", apiErr.StatusCode)
		if apiErr.Message != "" {
			message = fmt.Sprintf("status %d: %s", apiErr.StatusCode, apiErr.Message)
		}
		return &llmerrors.Error{
			Type:       errType,
			StatusCode: apiErr.StatusCode,
			Message:    message,
			Err:        err,
		}
	}
	return llmerrors.ClassifyTransport(err)
}
