package conversation

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outreach/pkg/email"
	"outreach/pkg/llm"
	"outreach/pkg/llmerrors"
	"outreach/pkg/providers"
)

type fakeGenerator struct {
	generated     []email.Request
	refinedBase   []string
	refinedPrompt []string
	generate      func(email.Request) email.Envelope
}

func (f *fakeGenerator) Generate(_ context.Context, req email.Request) email.Envelope {
	f.generated = append(f.generated, req)
	if f.generate != nil {
		return f.generate(req)
	}
	return email.Clean("Subject: Draft")
}

func (f *fakeGenerator) Refine(_ context.Context, text, instruction string) email.Envelope {
	f.refinedBase = append(f.refinedBase, text)
	f.refinedPrompt = append(f.refinedPrompt, instruction)
	return email.Clean("Subject: Refined " + instruction)
}

var answers = []string{
	"Heads of Sales at B2B startups",
	"a pipeline analytics tool",
	"forecasts that miss by 30%",
	"Friendly",
	"N/A",
}

// collect runs the opening turn plus one turn per answer except the last.
func collect(t *testing.T, c *Controller, state *State) {
	t.Helper()
	reply := c.Handle(context.Background(), state, "")
	require.Equal(t, email.Questions[0], reply.Message)
	for i := 0; i < len(answers)-1; i++ {
		reply = c.Handle(context.Background(), state, answers[i])
		require.True(t, reply.IsQuestion)
		require.Equal(t, email.Questions[i+1], reply.Message)
	}
}

func TestFirstTurnAsksFirstQuestion(t *testing.T) {
	state := &State{}
	reply := NewController(&fakeGenerator{}).Handle(context.Background(), state, "")

	assert.Equal(t, Reply{Message: email.Questions[0], IsQuestion: true}, reply)
	assert.Equal(t, 1, state.Step)
	assert.Empty(t, state.Slots)
}

func TestCollectionStoresAnswersInOrder(t *testing.T) {
	gen := &fakeGenerator{}
	c := NewController(gen)
	state := &State{}

	collect(t, c, state)

	assert.Equal(t, email.QuestionCount(), state.Step)
	assert.Equal(t, Generating, state.Phase())
	require.Len(t, state.Slots, len(answers)-1)
	for i := 0; i < len(answers)-1; i++ {
		assert.Equal(t, answers[i], state.Slots[email.Slots[i]])
	}
	assert.Empty(t, gen.generated, "no generation while collecting")
}

func TestGenerationHappensOnce(t *testing.T) {
	gen := &fakeGenerator{}
	c := NewController(gen)
	state := &State{}
	collect(t, c, state)

	reply := c.Handle(context.Background(), state, "  "+answers[4]+"  ")

	require.Len(t, gen.generated, 1)
	assert.Equal(t, answers[4], gen.generated[0].Get(email.SlotSpecialNotes))
	assert.Equal(t, answers[0], gen.generated[0].Get(email.SlotAudience))
	assert.Equal(t, email.QuestionCount()+1, state.Step)
	assert.Equal(t, Refining, state.Phase())
	assert.True(t, reply.IsQuestion)
	assert.Equal(t, "Subject: Draft", reply.Email)
	assert.Equal(t, "Here's your generated email:\n\nSubject: Draft\n\nWould you like to refine it? For example, you can ask for:\n1. A more casual/formal tone\n2. A shorter/longer email\n3. More emphasis on specific benefits\n4. Any other changes", reply.Message)

	c.Handle(context.Background(), state, "shorter")
	assert.Len(t, gen.generated, 1, "refinement never regenerates")
	assert.Equal(t, email.QuestionCount()+1, state.Step)
}

func TestSatisfactionPhrases(t *testing.T) {
	for _, msg := range []string{"no", "No Thanks", "IT LOOKS GOOD", " looks good ", "Perfect"} {
		t.Run(msg, func(t *testing.T) {
			gen := &fakeGenerator{}
			c := NewController(gen)
			state := &State{}
			collect(t, c, state)
			c.Handle(context.Background(), state, answers[4])
			before := *state.Result

			reply := c.Handle(context.Background(), state, msg)

			assert.Equal(t, Reply{Message: ClosingMessage, IsQuestion: false}, reply)
			assert.Equal(t, before, *state.Result)
			assert.Empty(t, gen.refinedPrompt)
		})
	}
}

func TestNearSatisfactionPhrasesRefine(t *testing.T) {
	for _, msg := range []string{"perfect!", "no, make it shorter", "looks good."} {
		t.Run(msg, func(t *testing.T) {
			gen := &fakeGenerator{}
			c := NewController(gen)
			state := &State{Step: email.QuestionCount() + 1, Result: &email.Envelope{Text: "Subject: X"}}

			reply := c.Handle(context.Background(), state, msg)

			assert.True(t, reply.IsQuestion)
			assert.Equal(t, []string{msg}, gen.refinedPrompt)
		})
	}
}

func TestRefineUsesCleanTextOfDegradedResult(t *testing.T) {
	req := email.NewRequest(map[email.Slot]string{email.SlotAudience: "Founders"})
	degraded := email.Degrade(req, "connection refused", false)

	gen := &fakeGenerator{}
	state := &State{Step: email.QuestionCount() + 1, Result: &degraded}

	reply := NewController(gen).Handle(context.Background(), state, "make it shorter")

	require.Len(t, gen.refinedBase, 1)
	assert.Equal(t, email.Template(req), gen.refinedBase[0])
	assert.Equal(t, "I've refined your email:\n\nSubject: Refined make it shorter\n\nWould you like to refine it further?", reply.Message)
	assert.Equal(t, "Subject: Refined make it shorter", reply.Email)
	assert.Equal(t, email.Clean("Subject: Refined make it shorter"), *state.Result)
}

func TestRefineWithoutStoredResult(t *testing.T) {
	gen := &fakeGenerator{}
	state := &State{Step: email.QuestionCount() + 1}

	NewController(gen).Handle(context.Background(), state, "shorter")

	assert.Equal(t, []string{""}, gen.refinedBase)
	require.NotNil(t, state.Result)
}

func TestReset(t *testing.T) {
	c := NewController(&fakeGenerator{})
	state := &State{}
	collect(t, c, state)
	c.Handle(context.Background(), state, answers[4])

	state.Reset()

	assert.Equal(t, State{}, *state)
	assert.Equal(t, email.Questions[0], c.Handle(context.Background(), state, "ignored").Message)
	assert.Empty(t, state.Slots, "the opening turn stores nothing")
}

type failingClient struct{}

func (failingClient) Complete(context.Context, llm.CompletionRequest) (llm.CompletionResponse, error) {
	return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeTransport, "connection refused")
}

func (failingClient) GetModelName() string { return "down" }

func TestAllProvidersFailingEndsInTemplate(t *testing.T) {
	chain := providers.NewChain(providers.List{
		providers.New(providers.NameDeepSeek, failingClient{}),
		providers.New(providers.NameGroq, failingClient{}),
	}, nil)
	c := NewController(chain)
	state := &State{}
	collect(t, c, state)

	reply := c.Handle(context.Background(), state, answers[4])

	want := email.Template(email.NewRequest(map[email.Slot]string{
		email.SlotAudience:     answers[0],
		email.SlotOffering:     answers[1],
		email.SlotPainPoints:   answers[2],
		email.SlotTone:         answers[3],
		email.SlotSpecialNotes: answers[4],
	}))
	assert.True(t, strings.HasSuffix(reply.Email, want))
	assert.True(t, strings.HasPrefix(reply.Email, "⚠️ Error: connection refused\n\n"+email.Marker))
	require.NotNil(t, state.Result)
	assert.True(t, state.Result.Degraded)

	refined := c.Handle(context.Background(), state, "make it more casual")
	assert.Equal(t, providers.RefineCasualApology, refined.Email)
	assert.False(t, state.Result.Degraded)
}

func TestStateJSONAcceptsLegacyEmailString(t *testing.T) {
	req := email.NewRequest(nil)
	legacy := map[string]any{
		"step":        6,
		"user_inputs": map[string]string{"audience": "Founders"},
		"email":       email.Degrade(req, "boom", false).Text,
	}
	data, err := json.Marshal(legacy)
	require.NoError(t, err)

	var state State
	require.NoError(t, json.Unmarshal(data, &state))

	assert.Equal(t, Refining, state.Phase())
	assert.Equal(t, "Founders", state.Slots[email.SlotAudience])
	require.NotNil(t, state.Result)
	assert.True(t, state.Result.Degraded)
	assert.Equal(t, email.Template(req), state.Result.CleanText())
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "collecting", Collecting.String())
	assert.Equal(t, "generating", Generating.String())
	assert.Equal(t, "refining", Refining.String())
	assert.Equal(t, "unknown", Phase(9).String())
}
