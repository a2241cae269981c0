package circuit

import (
	"context"

	"outreach/pkg/llm"
)

// Middleware skips the provider while breaker is open and reports every
// call it lets through.
func Middleware(breaker Breaker) llm.Middleware {
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				if err := breaker.Allow(); err != nil {
					return llm.CompletionResponse{}, err
				}

				resp, err := next.Complete(ctx, req)
				breaker.Record(err)
				return resp, err //nolint:wrapcheck // provider errors pass through unchanged
			},
			next.GetModelName,
		)
	}
}
