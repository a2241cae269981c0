package providers

import (
	"net/http"
	"sync"

	"github.com/openai/openai-go/option"

	"outreach/internal/llmimpl/anthropic"
	"outreach/internal/llmimpl/google"
	"outreach/internal/llmimpl/ollama"
	"outreach/internal/llmimpl/openaicompat"
	"outreach/pkg/config"
	"outreach/pkg/llm"
	"outreach/pkg/llm/middleware/circuit"
	"outreach/pkg/llm/middleware/metrics"
	"outreach/pkg/llm/middleware/timeout"
	"outreach/pkg/logx"
)

// Factory builds the chain from the current credentials on every call, so a
// key update takes effect on the next turn. Circuit breakers and built
// clients persist across calls.
type Factory struct {
	creds    *config.Credentials
	cfg      config.ProvidersConfig
	recorder metrics.Recorder
	logger   *logx.Logger

	groqBaseURL string
	httpClient  *http.Client

	mu       sync.Mutex
	breakers map[string]circuit.Breaker
	clients  map[string]cachedClient
}

type cachedClient struct {
	key    string
	client llm.LLMClient
}

// FactoryOption customizes a Factory.
type FactoryOption func(*Factory)

// WithGroqBaseURL points the Groq provider at another OpenAI-compatible endpoint.
func WithGroqBaseURL(url string) FactoryOption {
	return func(f *Factory) { f.groqBaseURL = url }
}

// WithHTTPClient sets the HTTP client used by every provider SDK.
func WithHTTPClient(client *http.Client) FactoryOption {
	return func(f *Factory) { f.httpClient = client }
}

// NewFactory creates a factory reading keys from creds.
func NewFactory(creds *config.Credentials, cfg config.ProvidersConfig, recorder metrics.Recorder, opts ...FactoryOption) *Factory {
	if recorder == nil {
		recorder = metrics.Nop()
	}
	f := &Factory{
		creds:       creds,
		cfg:         cfg,
		recorder:    recorder,
		logger:      logx.NewLogger("providers"),
		groqBaseURL: openaicompat.GroqBaseURL,
		breakers:    make(map[string]circuit.Breaker),
		clients:     make(map[string]cachedClient),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Providers implements Source: DeepSeek, Groq, then the configured extras.
func (f *Factory) Providers() []Provider {
	snap := f.creds.Snapshot()

	out := []Provider{
		f.provider(NameDeepSeek, snap.DeepSeekKey, snap.DeepSeekKey+"|"+snap.DeepSeekBase, func() llm.LLMClient {
			return openaicompat.NewClient(llm.LLMConfig{
				APIKey:    snap.DeepSeekKey,
				BaseURL:   snap.DeepSeekBase,
				ModelName: openaicompat.DeepSeekModel,
			}, f.openAIOptions()...)
		}),
		f.provider(NameGroq, snap.GroqKey, snap.GroqKey, func() llm.LLMClient {
			return openaicompat.NewClient(llm.LLMConfig{
				APIKey:    snap.GroqKey,
				BaseURL:   f.groqBaseURL,
				ModelName: openaicompat.GroqModel,
			}, f.openAIOptions()...)
		}),
	}

	for _, extra := range f.cfg.Extra {
		out = append(out, f.extraProvider(extra, snap))
	}
	return out
}

func (f *Factory) extraProvider(extra config.ExtraProvider, snap config.Snapshot) Provider {
	switch extra.Name {
	case config.ProviderAnthropic:
		return f.provider(NameAnthropic, snap.AnthropicKey, snap.AnthropicKey, func() llm.LLMClient {
			return anthropic.NewClaudeClient(llm.LLMConfig{
				APIKey:    snap.AnthropicKey,
				BaseURL:   extra.BaseURL,
				ModelName: extra.Model,
			})
		})
	case config.ProviderGemini:
		return f.provider(NameGemini, snap.GeminiKey, snap.GeminiKey, func() llm.LLMClient {
			return google.NewGeminiClient(llm.LLMConfig{
				APIKey:    snap.GeminiKey,
				BaseURL:   extra.BaseURL,
				ModelName: extra.Model,
			})
		})
	case config.ProviderOllama:
		host := extra.BaseURL
		if host == "" {
			host = snap.OllamaHost
		}
		// Ollama needs no key; the host stands in as the cache key.
		return f.provider(NameOllama, "local", host, func() llm.LLMClient {
			return ollama.NewOllamaClient(llm.LLMConfig{BaseURL: host, ModelName: extra.Model}, f.httpClient)
		})
	default:
		return Unconfigured(extra.Name)
	}
}

// provider returns the wrapped client for name, rebuilding it only when
// cacheKey changes. An empty credential yields an unconfigured provider.
func (f *Factory) provider(name, credential, cacheKey string, build func() llm.LLMClient) Provider {
	if credential == "" {
		return Unconfigured(name)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if cached, ok := f.clients[name]; ok && cached.key == cacheKey {
		return New(name, cached.client)
	}

	breaker, ok := f.breakers[name]
	if !ok {
		breaker = circuit.New(f.cfg.Circuit)
		f.breakers[name] = breaker
	}
	// A new credential deserves a fresh chance.
	breaker.Reset()

	client := llm.Chain(build(),
		metrics.Middleware(name, f.recorder, nil, f.logger),
		circuit.Middleware(breaker),
		timeout.Middleware(f.cfg.Timeout),
	)
	f.clients[name] = cachedClient{key: cacheKey, client: client}
	f.logger.Debug("built %s provider (model %s)", name, client.GetModelName())
	return New(name, client)
}

func (f *Factory) openAIOptions() []option.RequestOption {
	if f.httpClient == nil {
		return nil
	}
	return []option.RequestOption{option.WithHTTPClient(f.httpClient)}
}

// BreakerState reports the circuit state for name. It implements
// verify.CircuitSource so /check-api shows which providers are being skipped.
func (f *Factory) BreakerState(name string) (circuit.State, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.breakers[name]
	if !ok {
		return circuit.Closed, false
	}
	return b.GetState(), true
}
