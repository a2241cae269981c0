package providers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outreach/pkg/email"
	"outreach/pkg/llm"
	"outreach/pkg/llm/middleware/metrics"
	"outreach/pkg/llmerrors"
)

type fakeClient struct {
	content string
	err     error
	calls   int
	last    llm.CompletionRequest
}

func (f *fakeClient) Complete(_ context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return llm.CompletionResponse{}, f.err
	}
	return llm.CompletionResponse{Content: f.content}, nil
}

func (f *fakeClient) GetModelName() string { return "fake" }

func testRequest() email.Request {
	return email.NewRequest(map[email.Slot]string{
		email.SlotAudience:     "Heads of Sales",
		email.SlotOffering:     "a CRM add-on",
		email.SlotPainPoints:   "manual data entry",
		email.SlotTone:         "Friendly",
		email.SlotSpecialNotes: "N/A",
	})
}

func TestGeneratePrimarySucceeds(t *testing.T) {
	primary := &fakeClient{content: "Subject: From primary"}
	secondary := &fakeClient{content: "Subject: From secondary"}
	chain := NewChain(List{New(NameDeepSeek, primary), New(NameGroq, secondary)}, nil)

	env := chain.Generate(context.Background(), testRequest())

	assert.Equal(t, email.Clean("Subject: From primary"), env)
	assert.Equal(t, 0, secondary.calls, "chain stops at the first success")

	require.Len(t, primary.last.Messages, 2)
	assert.Equal(t, email.GenerateSystemPrompt, primary.last.Messages[0].Content)
	assert.Equal(t, email.GeneratePrompt(testRequest()), primary.last.Messages[1].Content)
	assert.InDelta(t, llm.TemperatureDefault, primary.last.Temperature, 0.0001)
	assert.Equal(t, llm.MaxTokensDefault, primary.last.MaxTokens)
}

func TestGenerateFallsBackToSecondary(t *testing.T) {
	primary := &fakeClient{err: llmerrors.NewError(llmerrors.ErrorTypeTransport, "connection refused")}
	secondary := &fakeClient{content: "Subject: From secondary"}
	chain := NewChain(List{New(NameDeepSeek, primary), New(NameGroq, secondary)}, nil)

	env := chain.Generate(context.Background(), testRequest())

	assert.False(t, env.Degraded)
	assert.Equal(t, "Subject: From secondary", env.Text)
	assert.Equal(t, 1, primary.calls)
}

func TestGenerateEmptyContentCountsAsFailure(t *testing.T) {
	primary := &fakeClient{content: "   "}
	secondary := &fakeClient{content: "Subject: ok"}
	chain := NewChain(List{New(NameDeepSeek, primary), New(NameGroq, secondary)}, nil)

	assert.Equal(t, "Subject: ok", chain.Generate(context.Background(), testRequest()).Text)
}

func TestGenerateDegradesWhenAllFail(t *testing.T) {
	tests := []struct {
		name       string
		primaryErr error
		wantBanner string
	}{
		{
			name:       "auth failure",
			primaryErr: llmerrors.NewErrorWithStatus(llmerrors.ErrorTypeAuth, 401, "OpenAI API returned 401: Authentication Fails"),
			wantBanner: email.AuthBanner,
		},
		{
			name:       "missing key reads as auth",
			primaryErr: llmerrors.NotConfigured(NameDeepSeek),
			wantBanner: email.AuthBanner,
		},
		{
			name:       "transport failure quotes the primary error",
			primaryErr: llmerrors.NewError(llmerrors.ErrorTypeTransport, "connection refused"),
			wantBanner: "⚠️ Error: connection refused",
		},
		{
			name:       "unclassified failure",
			primaryErr: errors.New("upstream exploded"),
			wantBanner: "⚠️ Error: upstream exploded",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary := &fakeClient{err: tt.primaryErr}
			secondary := &fakeClient{err: llmerrors.NewError(llmerrors.ErrorTypeResponse, "secondary down")}
			chain := NewChain(List{New(NameDeepSeek, primary), New(NameGroq, secondary)}, nil)

			env := chain.Generate(context.Background(), testRequest())

			require.True(t, env.Degraded)
			assert.True(t, strings.HasPrefix(env.Text, tt.wantBanner+"\n\n"+email.Marker+"\n\n"), env.Text)
			assert.True(t, strings.HasSuffix(env.Text, email.Template(testRequest())))
			assert.Equal(t, email.Template(testRequest()), env.CleanText())
			assert.Equal(t, 1, secondary.calls)
		})
	}
}

func TestGenerateWithUnconfiguredProviders(t *testing.T) {
	chain := NewChain(List{Unconfigured(NameDeepSeek), Unconfigured(NameGroq)}, nil)
	env := chain.Generate(context.Background(), testRequest())
	require.True(t, env.Degraded)
	assert.True(t, strings.HasPrefix(env.Text, email.AuthBanner))
}

func TestGenerateWithNoProviders(t *testing.T) {
	env := NewChain(List{}, nil).Generate(context.Background(), testRequest())
	assert.True(t, env.Degraded)
	assert.Equal(t, email.Template(testRequest()), env.CleanText())
}

func TestRefine(t *testing.T) {
	primary := &fakeClient{content: "Subject: Shorter"}
	chain := NewChain(List{New(NameDeepSeek, primary)}, nil)

	env := chain.Refine(context.Background(), "Subject: Long", "make it shorter")

	assert.Equal(t, email.Clean("Subject: Shorter"), env)
	require.Len(t, primary.last.Messages, 2)
	assert.Equal(t, email.RefineSystemPrompt, primary.last.Messages[0].Content)
	assert.Equal(t, email.RefinePrompt("Subject: Long", "make it shorter"), primary.last.Messages[1].Content)
}

func TestRefineApologyWhenAllFail(t *testing.T) {
	tests := []struct {
		instruction string
		want        string
	}{
		{instruction: "Make it SHORTER please", want: RefineShorterApology},
		{instruction: "more casual", want: RefineCasualApology},
		{instruction: "formal tone", want: RefineFormalApology},
		{instruction: "less formal, more casual", want: RefineCasualApology},
		{instruction: "add a P.S.", want: RefineGenericApology},
	}
	for _, tt := range tests {
		t.Run(tt.instruction, func(t *testing.T) {
			failing := &fakeClient{err: llmerrors.NewError(llmerrors.ErrorTypeTransport, "down")}
			chain := NewChain(List{New(NameDeepSeek, failing), Unconfigured(NameGroq)}, nil)

			env := chain.Refine(context.Background(), "Subject: Hi", tt.instruction)

			assert.Equal(t, email.Clean(tt.want), env)
		})
	}
}

type outcome struct {
	op       metrics.Operation
	source   string
	degraded bool
}

type outcomeRecorder struct {
	metrics.NoopRecorder
	outcomes []outcome
}

func (r *outcomeRecorder) ObserveOutcome(op metrics.Operation, source string, degraded bool) {
	r.outcomes = append(r.outcomes, outcome{op: op, source: source, degraded: degraded})
}

func TestChainRecordsOutcomes(t *testing.T) {
	recorder := &outcomeRecorder{}

	ok := NewChain(List{New(NameGroq, &fakeClient{content: "Subject: ok"})}, recorder)
	ok.Generate(context.Background(), testRequest())

	failing := NewChain(List{Unconfigured(NameDeepSeek)}, recorder)
	failing.Generate(context.Background(), testRequest())
	failing.Refine(context.Background(), "x", "shorter")

	assert.Equal(t, []outcome{
		{op: metrics.OperationGenerate, source: NameGroq},
		{op: metrics.OperationGenerate, source: "template", degraded: true},
		{op: metrics.OperationRefine, source: "apology"},
	}, recorder.outcomes)
}
