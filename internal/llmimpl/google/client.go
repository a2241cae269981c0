// Package google provides a Google Gemini client for the provider chain.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"outreach/pkg/llm"
	"outreach/pkg/llmerrors"
)

// DefaultModel is used when the configuration names none.
const DefaultModel = "gemini-2.0-flash"

// GeminiClient wraps the Google GenAI client to implement llm.LLMClient.
type GeminiClient struct {
	mu      sync.Mutex
	client  *genai.Client
	apiKey  string
	baseURL string
	model   string

	configErr error
}

// NewGeminiClient creates a raw client. The SDK client needs a context to
// construct, so it is built on first use.
func NewGeminiClient(cfg llm.LLMConfig) llm.LLMClient {
	if cfg.ModelName == "" {
		cfg.ModelName = DefaultModel
	}
	g := &GeminiClient{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.ModelName,
	}
	if err := cfg.Validate(); err != nil {
		g.configErr = llmerrors.NewErrorWithCause(llmerrors.ErrorTypeNotConfigured, err, err.Error())
	}
	return g
}

func (g *GeminiClient) sdkClient(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client != nil {
		return g.client, nil
	}
	cc := &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if g.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: g.baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeNotConfigured, err, fmt.Sprintf("failed to create Gemini client: %v", err))
	}
	g.client = client
	return client, nil
}

// Complete implements the llm.LLMClient interface.
func (g *GeminiClient) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	if g.configErr != nil {
		return llm.CompletionResponse{}, g.configErr
	}
	contents, systemInstruction, err := convertMessagesToGemini(in.Messages)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeUnknown, fmt.Sprintf("message conversion error: %v", err))
	}

	client, err := g.sdkClient(ctx)
	if err != nil {
		return llm.CompletionResponse{}, err
	}

	//nolint:gosec // MaxTokens is bounded by the request constructors
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(in.MaxTokens),
	}
	if in.Temperature > 0 {
		temperature := in.Temperature
		config.Temperature = &temperature
	}
	if systemInstruction != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		}
	}

	result, err := client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}
	if result == nil || strings.TrimSpace(result.Text()) == "" {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeResponse, "empty response from Gemini API")
	}

	return llm.CompletionResponse{
		Content:    result.Text(),
		StopReason: getStopReason(result),
	}, nil
}

// GetModelName returns the model name for this client.
func (g *GeminiClient) GetModelName() string {
	return g.model
}

// convertMessagesToGemini converts messages to Gemini contents plus a system instruction.
func convertMessagesToGemini(messages []llm.CompletionMessage) ([]*genai.Content, string, error) {
	systemInstruction, rest := llm.SplitSystem(messages)
	if len(rest) == 0 {
		return nil, "", fmt.Errorf("message list cannot be empty")
	}

	contents := make([]*genai.Content, 0, len(rest))
	for i := range rest {
		msg := &rest[i]
		var role string
		switch msg.Role {
		case llm.RoleUser:
			role = "user"
		case llm.RoleAssistant:
			role = "model" // Gemini uses "model" instead of "assistant"
		default:
			return nil, "", fmt.Errorf("unsupported message role: %s", msg.Role)
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}
	return contents, systemInstruction, nil
}

func getStopReason(result *genai.GenerateContentResponse) string {
	if len(result.Candidates) == 0 || result.Candidates[0] == nil {
		return ""
	}
	return string(result.Candidates[0].FinishReason)
}

func classifyError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyAPIError(apiErr, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return classifyAPIError(*apiErrPtr, err)
	}
	return llmerrors.ClassifyTransport(err)
}

func classifyAPIError(apiErr genai.APIError, cause error) error {
	errType, _ := llmerrors.ClassifyStatus(apiErr.Code)
	// Gemini reports a bad key as 400 INVALID_ARGUMENT.
	if errType == llmerrors.ErrorTypeResponse && llmerrors.LooksLikeAuth(apiErr.Message) {
		errType = llmerrors.ErrorTypeAuth
	}
	return &llmerrors.Error{
		Type:       errType,
		StatusCode: apiErr.Code,
		Message:    fmt.Sprintf("Gemini API returned %d: %s", apiErr.Code, apiErr.Message),
		Err:        cause,
	}
}
