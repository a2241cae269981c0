// Package providers builds the ordered list of text-generation backends and
// runs generation and refinement across it.
package providers

import (
	"context"

	"outreach/pkg/llm"
	"outreach/pkg/llmerrors"
)

// Provider names.
const (
	NameDeepSeek  = "deepseek"
	NameGroq      = "groq"
	NameAnthropic = "anthropic"
	NameGemini    = "gemini"
	NameOllama    = "ollama"
)

// Provider is one backend in the chain.
type Provider interface {
	llm.LLMClient
	Name() string
}

type namedClient struct {
	llm.LLMClient
	name string
}

func (n namedClient) Name() string { return n.name }

// New names client as a chain provider.
func New(name string, client llm.LLMClient) Provider {
	return namedClient{LLMClient: client, name: name}
}

// unconfigured stands in for a provider with no credential. It fails without
// making a call.
type unconfigured struct {
	name string
}

func (u unconfigured) Name() string         { return u.name }
func (u unconfigured) GetModelName() string { return "" }

func (u unconfigured) Complete(context.Context, llm.CompletionRequest) (llm.CompletionResponse, error) {
	return llm.CompletionResponse{}, llmerrors.NotConfigured(u.name)
}

// Unconfigured returns a provider that always fails with a not-configured error.
func Unconfigured(name string) Provider {
	return unconfigured{name: name}
}

// Source yields the providers to try for one operation, in priority order.
type Source interface {
	Providers() []Provider
}

// List is a fixed Source.
type List []Provider

// Providers implements Source.
func (l List) Providers() []Provider { return l }
