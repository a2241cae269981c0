// Package conversation runs the question-then-refine dialogue that produces
// an outreach email.
package conversation

import (
	"context"
	"fmt"
	"strings"

	"outreach/pkg/email"
	"outreach/pkg/logx"
)

// Phase is derived from State.Step.
type Phase int

// Phases.
const (
	Collecting Phase = iota
	Generating
	Refining
)

func (p Phase) String() string {
	switch p {
	case Collecting:
		return "collecting"
	case Generating:
		return "generating"
	case Refining:
		return "refining"
	default:
		return "unknown"
	}
}

// Reply texts.
const (
	generatedFormat = "Here's your generated email:\n\n%s\n\nWould you like to refine it? For example, you can ask for:\n1. A more casual/formal tone\n2. A shorter/longer email\n3. More emphasis on specific benefits\n4. Any other changes"
	refinedFormat   = "I've refined your email:\n\n%s\n\nWould you like to refine it further?"

	// ClosingMessage answers a satisfied user.
	ClosingMessage = "Great! Feel free to use this email for your outreach. If you want to create a new email, just refresh the page."
)

// satisfied are the replies that end refinement, compared lowercased.
var satisfied = map[string]bool{
	"no":            true,
	"no thanks":     true,
	"it looks good": true,
	"looks good":    true,
	"perfect":       true,
}

// State is one session's progress. The zero value is a fresh session.
type State struct {
	Step   int                   `json:"step"`
	Slots  map[email.Slot]string `json:"user_inputs"`
	Result *email.Envelope       `json:"email,omitempty"`
}

// Phase reports where the next turn lands.
func (s *State) Phase() Phase {
	q := email.QuestionCount()
	switch {
	case s.Step < q:
		return Collecting
	case s.Step == q:
		return Generating
	default:
		return Refining
	}
}

// Reset returns the state to a fresh session.
func (s *State) Reset() {
	*s = State{}
}

func (s *State) store(i int, answer string) {
	if s.Slots == nil {
		s.Slots = make(map[email.Slot]string, len(email.Slots))
	}
	s.Slots[email.Slots[i]] = answer
}

// Reply is the answer to one turn.
type Reply struct {
	Message    string `json:"message"`
	IsQuestion bool   `json:"is_question"`
	Email      string `json:"email,omitempty"`
}

// Generator produces and refines emails. It must not fail.
type Generator interface {
	Generate(ctx context.Context, req email.Request) email.Envelope
	Refine(ctx context.Context, text, instruction string) email.Envelope
}

// Controller advances a State by one user message per call. It holds no
// per-session data; callers serialize turns of the same session.
type Controller struct {
	gen    Generator
	logger *logx.Logger
}

// NewController creates a controller backed by gen.
func NewController(gen Generator) *Controller {
	return &Controller{gen: gen, logger: logx.NewLogger("conversation")}
}

// Handle applies message to state and returns the reply.
func (c *Controller) Handle(ctx context.Context, state *State, message string) Reply {
	message = strings.TrimSpace(message)

	switch state.Phase() {
	case Collecting:
		if state.Step > 0 {
			state.store(state.Step-1, message)
		}
		question := email.Questions[state.Step]
		state.Step++
		return Reply{Message: question, IsQuestion: true}

	case Generating:
		state.store(state.Step-1, message)
		c.logger.Info("✉️ generating email from %d answers", len(state.Slots))
		env := c.gen.Generate(ctx, email.NewRequest(state.Slots))
		state.Result = &env
		state.Step++
		if env.Degraded {
			c.logger.Warn("generation degraded to the offline template")
		}
		return Reply{Message: fmt.Sprintf(generatedFormat, env.Text), IsQuestion: true, Email: env.Text}

	default:
		if satisfied[strings.ToLower(message)] {
			return Reply{Message: ClosingMessage, IsQuestion: false}
		}
		base := ""
		if state.Result != nil {
			base = state.Result.CleanText()
		}
		logx.Debug(ctx, "conversation", "refining %d chars with instruction %q", len(base), message)
		env := c.gen.Refine(ctx, base, message)
		state.Result = &env
		return Reply{Message: fmt.Sprintf(refinedFormat, env.Text), IsQuestion: true, Email: env.Text}
	}
}
