package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outreach/pkg/llm"
	"outreach/pkg/llmerrors"
)

func TestNewOllamaClient(t *testing.T) {
	tests := []struct {
		name      string
		cfg       llm.LLMConfig
		wantModel string
	}{
		{name: "defaults", cfg: llm.LLMConfig{}, wantModel: DefaultModel},
		{name: "custom model", cfg: llm.LLMConfig{BaseURL: "http://192.168.1.100:11434", ModelName: "phi4:latest"}, wantModel: "phi4:latest"},
		{name: "invalid URL falls back to default", cfg: llm.LLMConfig{BaseURL: "not-a-valid-url", ModelName: "mistral:7b"}, wantModel: "mistral:7b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewOllamaClient(tt.cfg, nil)
			require.NotNil(t, client)
			assert.Equal(t, tt.wantModel, client.GetModelName())
		})
	}
}

func TestCompleteAgainstServer(t *testing.T) {
	var got api.ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":       "phi4:latest",
			"message":     map[string]any{"role": "assistant", "content": "Subject: Hello"},
			"done":        true,
			"done_reason": "stop",
		})
	}))
	defer srv.Close()

	client := NewOllamaClient(llm.LLMConfig{BaseURL: srv.URL, ModelName: "phi4:latest"}, srv.Client())
	resp, err := client.Complete(context.Background(), llm.NewCompletionRequest([]llm.CompletionMessage{
		llm.NewSystemMessage("You are a copywriter."),
		llm.NewUserMessage("Draft it."),
	}))
	require.NoError(t, err)
	assert.Equal(t, "Subject: Hello", resp.Content)
	assert.Equal(t, "end_turn", resp.StopReason)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "phi4:latest", got.Model)
	require.NotNil(t, got.Stream)
	assert.False(t, *got.Stream)
}

func TestGetStopReason(t *testing.T) {
	tests := []struct {
		name string
		resp api.ChatResponse
		want string
	}{
		{name: "not done", resp: api.ChatResponse{Done: false}, want: "incomplete"},
		{name: "stop", resp: api.ChatResponse{Done: true, DoneReason: "stop"}, want: "end_turn"},
		{name: "length", resp: api.ChatResponse{Done: true, DoneReason: "length"}, want: "max_tokens"},
		{name: "empty reason", resp: api.ChatResponse{Done: true}, want: "end_turn"},
		{name: "other", resp: api.ChatResponse{Done: true, DoneReason: "load"}, want: "load"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, getStopReason(&tt.resp))
		})
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want llmerrors.ErrorType
	}{
		{name: "connection refused", err: errors.New("dial tcp 127.0.0.1:11434: connect: connection refused"), want: llmerrors.ErrorTypeTransport},
		{name: "model not found", err: errors.New(`model "foo" not found, try pulling it first`), want: llmerrors.ErrorTypeResponse},
		{name: "unauthorized status", err: api.StatusError{StatusCode: 401, ErrorMessage: "unauthorized"}, want: llmerrors.ErrorTypeAuth},
		{name: "server status", err: api.StatusError{StatusCode: 500, ErrorMessage: "boom"}, want: llmerrors.ErrorTypeResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, llmerrors.TypeOf(classifyError(tt.err)))
		})
	}
}
