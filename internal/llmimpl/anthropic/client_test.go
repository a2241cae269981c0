package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outreach/pkg/llm"
	"outreach/pkg/llmerrors"
)

func TestCompleteSendsSystemSeparately(t *testing.T) {
	var seen map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&seen)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-3-5-haiku-latest",
			"content": [{"type": "text", "text": "Subject: Quick idea"}],
			"stop_reason": "end_turn", "usage": {"input_tokens": 3, "output_tokens": 4}
		}`))
	}))
	defer srv.Close()

	client := NewClaudeClient(llm.LLMConfig{APIKey: "k", BaseURL: srv.URL})
	resp, err := client.Complete(context.Background(), llm.NewCompletionRequest([]llm.CompletionMessage{
		llm.NewSystemMessage("You are a copywriter."),
		llm.NewUserMessage("Draft it."),
	}))

	require.NoError(t, err)
	assert.Equal(t, "Subject: Quick idea", resp.Content)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, DefaultModel, client.GetModelName())

	messages, ok := seen["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 1)
	assert.NotNil(t, seen["system"])
	assert.InDelta(t, 1000, seen["max_tokens"], 0)
}

func TestCompleteUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer srv.Close()

	client := NewClaudeClient(llm.LLMConfig{APIKey: "bad", BaseURL: srv.URL, ModelName: "claude-x"})
	_, err := client.Complete(context.Background(), llm.NewProbeRequest())

	require.Error(t, err)
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeAuth))
}

func TestCompleteRejectsSystemOnly(t *testing.T) {
	client := NewClaudeClient(llm.LLMConfig{APIKey: "k"})
	_, err := client.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.CompletionMessage{llm.NewSystemMessage("only system")},
	})
	assert.Error(t, err)
}

func TestMissingKeyIsNotConfigured(t *testing.T) {
	client := NewClaudeClient(llm.LLMConfig{})
	_, err := client.Complete(context.Background(), llm.NewProbeRequest())

	require.Error(t, err)
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeNotConfigured))
	assert.Equal(t, DefaultModel, client.GetModelName())
}
