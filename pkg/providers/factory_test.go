package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outreach/pkg/config"
	"outreach/pkg/email"
	"outreach/pkg/llm"
	"outreach/pkg/llm/middleware/circuit"
	"outreach/pkg/llmerrors"
)

const completionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "deepseek-chat",
  "choices": [{
    "index": 0,
    "message": {"role": "assistant", "content": "Subject: Generated"},
    "finish_reason": "stop"
  }]
}`

type countingServer struct {
	*httptest.Server
	hits   atomic.Int32
	status atomic.Int32
}

func newCountingServer(t *testing.T) *countingServer {
	t.Helper()
	cs := &countingServer{}
	cs.status.Store(http.StatusOK)
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		cs.hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		status := int(cs.status.Load())
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte(completionBody))
			return
		}
		_, _ = w.Write([]byte(`{"error":{"message":"upstream unavailable","type":"server_error"}}`))
	}))
	t.Cleanup(cs.Close)
	return cs
}

func testProvidersConfig() config.ProvidersConfig {
	return config.ProvidersConfig{
		Timeout: 5 * time.Second,
		Circuit: circuit.Config{FailureThreshold: 2, SuccessThreshold: 1, Timeout: time.Minute},
	}
}

func names(ps []Provider) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Name())
	}
	return out
}

func TestFactoryOrderAndUnconfigured(t *testing.T) {
	creds := config.NewCredentials(config.Snapshot{DeepSeekKey: "sk-test"})
	cfg := testProvidersConfig()
	cfg.Extra = []config.ExtraProvider{{Name: config.ProviderAnthropic}, {Name: config.ProviderOllama, BaseURL: "http://127.0.0.1:11434"}}

	ps := NewFactory(creds, cfg, nil).Providers()

	assert.Equal(t, []string{NameDeepSeek, NameGroq, NameAnthropic, NameOllama}, names(ps))

	_, err := ps[1].Complete(context.Background(), llm.NewProbeRequest())
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeNotConfigured))
	_, err = ps[2].Complete(context.Background(), llm.NewProbeRequest())
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeNotConfigured))
}

func TestFactoryUsesCurrentCredentials(t *testing.T) {
	srv := newCountingServer(t)
	creds := config.NewCredentials(config.Snapshot{})
	factory := NewFactory(creds, testProvidersConfig(), nil, WithGroqBaseURL(srv.URL))
	chain := NewChain(factory, nil)

	env := chain.Generate(context.Background(), testRequest())
	assert.True(t, env.Degraded, "no keys configured")
	assert.Equal(t, int32(0), srv.hits.Load())

	creds.Update(func(s *config.Snapshot) { s.GroqKey = "gsk-test" })

	env = chain.Generate(context.Background(), testRequest())
	assert.Equal(t, email.Clean("Subject: Generated"), env)
	assert.Equal(t, int32(1), srv.hits.Load())
}

func TestFactoryCircuitOpensAndResetsOnNewKey(t *testing.T) {
	srv := newCountingServer(t)
	srv.status.Store(http.StatusServiceUnavailable)

	creds := config.NewCredentials(config.Snapshot{DeepSeekKey: "sk-1", DeepSeekBase: srv.URL})
	factory := NewFactory(creds, testProvidersConfig(), nil)

	for i := 0; i < 3; i++ {
		_, err := factory.Providers()[0].Complete(context.Background(), llm.NewProbeRequest())
		require.Error(t, err)
	}
	// The OpenAI SDK is built without retries, so each allowed call is one hit.
	assert.Equal(t, int32(2), srv.hits.Load(), "third call short-circuits")
	state, ok := factory.BreakerState(NameDeepSeek)
	require.True(t, ok)
	assert.Equal(t, circuit.Open, state)

	srv.status.Store(http.StatusOK)
	creds.Update(func(s *config.Snapshot) { s.DeepSeekKey = "sk-2" })

	resp, err := factory.Providers()[0].Complete(context.Background(), llm.NewProbeRequest())
	require.NoError(t, err)
	assert.Equal(t, "Subject: Generated", resp.Content)
	state, _ = factory.BreakerState(NameDeepSeek)
	assert.Equal(t, circuit.Closed, state)
}

func TestBreakerStateUnknownProvider(t *testing.T) {
	factory := NewFactory(config.NewCredentials(config.Snapshot{}), testProvidersConfig(), nil)
	state, ok := factory.BreakerState(NameGroq)
	assert.False(t, ok)
	assert.Equal(t, circuit.Closed, state)
}

func TestRejectedKeyKeepsAuthBannerAfterCircuitOpens(t *testing.T) {
	srv := newCountingServer(t)
	srv.status.Store(http.StatusUnauthorized)

	cfg := testProvidersConfig()
	cfg.Circuit = circuit.DefaultConfig
	creds := config.NewCredentials(config.Snapshot{DeepSeekKey: "sk-rejected", DeepSeekBase: srv.URL})
	factory := NewFactory(creds, cfg, nil)
	chain := NewChain(factory, nil)

	turns := cfg.Circuit.FailureThreshold + 2
	for i := 0; i < turns; i++ {
		env := chain.Generate(context.Background(), testRequest())
		require.True(t, env.Degraded, "turn %d", i+1)
		assert.True(t, strings.HasPrefix(env.Text, email.AuthBanner+"\n\n"), "turn %d: %q", i+1, env.Text)
	}

	state, ok := factory.BreakerState(NameDeepSeek)
	require.True(t, ok)
	assert.Equal(t, circuit.Open, state)
	assert.Equal(t, int32(cfg.Circuit.FailureThreshold), srv.hits.Load())
}
