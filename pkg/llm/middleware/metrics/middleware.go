package metrics

import (
	"context"
	"errors"
	"strings"
	"time"

	"outreach/pkg/llm"
	"outreach/pkg/llm/middleware/circuit"
	"outreach/pkg/llmerrors"
	"outreach/pkg/logx"
	"outreach/pkg/utils"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// UsageExtractor is a function that extracts token usage from a request and response.
type UsageExtractor func(req llm.CompletionRequest, resp llm.CompletionResponse) (promptTokens, completionTokens int)

// DefaultUsageExtractor estimates usage with the shared tiktoken codec.
func DefaultUsageExtractor(req llm.CompletionRequest, resp llm.CompletionResponse) (promptTokens, completionTokens int) {
	var promptText strings.Builder
	for i := range req.Messages {
		promptText.WriteString(req.Messages[i].Content)
		promptText.WriteString("\n")
	}
	return utils.CountTokensSimple(promptText.String()), utils.CountTokensSimple(resp.Content)
}

// Middleware returns a middleware that records latency, token usage and
// failures for every request made through the named provider.
func Middleware(provider string, recorder Recorder, usageExtractor UsageExtractor, logger *logx.Logger) llm.Middleware {
	if usageExtractor == nil {
		usageExtractor = DefaultUsageExtractor
	}

	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				start := time.Now()
				model := next.GetModelName()
				op := OperationFrom(ctx)

				resp, err := next.Complete(ctx, req)
				duration := time.Since(start)

				var promptTokens, completionTokens int
				errorType := ""
				if err == nil {
					promptTokens, completionTokens = usageExtractor(req, resp)
				} else {
					errorType = getErrorType(err)
				}

				recorder.ObserveRequest(provider, model, op, promptTokens, completionTokens, err == nil, errorType, duration)

				if logger != nil {
					status := statusSuccess
					if err != nil {
						status = statusError
					}
					logger.Debug("🎯 %s request: model=%s op=%s tokens=%d+%d status=%s duration=%dms",
						provider, model, op, promptTokens, completionTokens, status, duration.Milliseconds())
				}

				return resp, err //nolint:wrapcheck // Middleware should pass through errors unchanged
			},
			next.GetModelName,
		)
	}
}

// getErrorType classifies errors for metrics labeling.
func getErrorType(err error) string {
	if err == nil {
		return ""
	}
	var circuitErr *circuit.Error
	if errors.As(err, &circuitErr) {
		return "circuit_breaker"
	}
	return llmerrors.TypeOf(err).String()
}
