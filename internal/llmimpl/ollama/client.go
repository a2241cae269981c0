// Package ollama provides a client for a local Ollama runtime.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"outreach/pkg/llm"
	"outreach/pkg/llmerrors"
)

const (
	// DefaultHost is the address Ollama listens on out of the box.
	DefaultHost = "http://localhost:11434"
	// DefaultModel is used when the configuration names none.
	DefaultModel = "llama3.1:8b"
)

// Client wraps the Ollama API client to implement llm.LLMClient.
type Client struct {
	client *api.Client
	model  string
}

// NewOllamaClient creates a raw client. cfg.BaseURL is the Ollama server URL;
// an empty or unparsable URL falls back to DefaultHost. The API key is unused.
func NewOllamaClient(cfg llm.LLMConfig, httpClient *http.Client) llm.LLMClient {
	host := cfg.BaseURL
	if host == "" {
		host = DefaultHost
	}
	parsedURL, err := url.Parse(host)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		parsedURL, _ = url.Parse(DefaultHost)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	model := cfg.ModelName
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		client: api.NewClient(parsedURL, httpClient),
		model:  model,
	}
}

// Complete implements the llm.LLMClient interface.
func (o *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	if len(in.Messages) == 0 {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeUnknown, "message list cannot be empty")
	}

	messages := make([]api.Message, 0, len(in.Messages))
	for i := range in.Messages {
		messages = append(messages, api.Message{
			Role:    string(in.Messages[i].Role),
			Content: in.Messages[i].Content,
		})
	}

	options := map[string]any{"num_predict": in.MaxTokens}
	if in.Temperature > 0 {
		options["temperature"] = in.Temperature
	}

	stream := false
	req := &api.ChatRequest{
		Model:    o.model,
		Messages: messages,
		Stream:   &stream,
		Options:  options,
	}

	var response api.ChatResponse
	err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		response = resp
		return nil
	})
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}
	if strings.TrimSpace(response.Message.Content) == "" {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeResponse, "empty response from Ollama")
	}

	return llm.CompletionResponse{
		Content:    response.Message.Content,
		StopReason: getStopReason(&response),
	}, nil
}

// GetModelName returns the model name for this client.
func (o *Client) GetModelName() string {
	return o.model
}

// getStopReason converts Ollama's done_reason to our stop reason format.
func getStopReason(resp *api.ChatResponse) string {
	if !resp.Done {
		return "incomplete"
	}
	switch resp.DoneReason {
	case "stop", "":
		return "end_turn"
	case "length":
		return "max_tokens"
	default:
		return resp.DoneReason
	}
}

func classifyError(err error) error {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		errType, _ := llmerrors.ClassifyStatus(statusErr.StatusCode)
		return &llmerrors.Error{
			Type:       errType,
			StatusCode: statusErr.StatusCode,
			Message:    fmt.Sprintf("Ollama API returned %d: %s", statusErr.StatusCode, statusErr.ErrorMessage),
			Err:        err,
		}
	}

	errStr := err.Error()
	if strings.Contains(errStr, "model") && strings.Contains(errStr, "not found") {
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeResponse, err, fmt.Sprintf("Ollama model not found: %v", err))
	}
	return llmerrors.ClassifyTransport(err)
}
