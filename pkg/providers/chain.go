package providers

import (
	"context"
	"strings"

	"outreach/pkg/email"
	"outreach/pkg/llm"
	"outreach/pkg/llm/middleware/metrics"
	"outreach/pkg/llmerrors"
	"outreach/pkg/logx"
)

// Refinement replies used when no provider can refine.
const (
	RefineShorterApology = "I've attempted to make the email shorter, but couldn't connect to any available APIs. Please try again later or edit the email manually."
	RefineCasualApology  = "I've attempted to make the email more casual, but couldn't connect to any available APIs. Please try again later or edit the email manually."
	RefineFormalApology  = "I've attempted to make the email more formal, but couldn't connect to any available APIs. Please try again later or edit the email manually."
	RefineGenericApology = "I couldn't refine the email due to API errors. Please try again later or edit the email manually."
)

// Sources recorded for chain outcomes that no provider produced.
const (
	sourceTemplate = "template"
	sourceApology  = "apology"
)

// Chain tries each provider in order and stops at the first usable answer.
// Generate and Refine never fail: provider errors end in the offline
// template or a canned reply.
type Chain struct {
	source   Source
	recorder metrics.Recorder
	logger   *logx.Logger
}

// NewChain creates a chain over source.
func NewChain(source Source, recorder metrics.Recorder) *Chain {
	if recorder == nil {
		recorder = metrics.Nop()
	}
	return &Chain{
		source:   source,
		recorder: recorder,
		logger:   logx.NewLogger("chain"),
	}
}

// Generate drafts an email for req.
func (c *Chain) Generate(ctx context.Context, req email.Request) email.Envelope {
	ctx = metrics.WithOperation(ctx, metrics.OperationGenerate)
	text, source, firstErr := c.run(ctx, email.GenerateSystemPrompt, email.GeneratePrompt(req))
	if firstErr == nil {
		c.recorder.ObserveOutcome(metrics.OperationGenerate, source, false)
		return email.Clean(text)
	}

	c.logger.Error("❌ all providers failed to generate, using offline template: %v", firstErr)
	c.recorder.ObserveOutcome(metrics.OperationGenerate, sourceTemplate, true)
	return email.Degrade(req, llmerrors.Description(firstErr), llmerrors.IsAuthFailure(firstErr))
}

// Refine rewrites text according to instruction.
func (c *Chain) Refine(ctx context.Context, text, instruction string) email.Envelope {
	ctx = metrics.WithOperation(ctx, metrics.OperationRefine)
	refined, source, firstErr := c.run(ctx, email.RefineSystemPrompt, email.RefinePrompt(text, instruction))
	if firstErr == nil {
		c.recorder.ObserveOutcome(metrics.OperationRefine, source, false)
		return email.Clean(refined)
	}

	c.logger.Error("❌ all providers failed to refine: %v", firstErr)
	c.recorder.ObserveOutcome(metrics.OperationRefine, sourceApology, false)
	return email.Clean(RefineApology(instruction))
}

// RefineApology picks the canned reply for an instruction no provider could serve.
func RefineApology(instruction string) string {
	lower := strings.ToLower(instruction)
	switch {
	case strings.Contains(lower, "shorter"):
		return RefineShorterApology
	case strings.Contains(lower, "casual"):
		return RefineCasualApology
	case strings.Contains(lower, "formal"):
		return RefineFormalApology
	default:
		return RefineGenericApology
	}
}

// run returns the first non-empty completion and the provider that made it.
// When every provider fails it returns the first failure.
func (c *Chain) run(ctx context.Context, system, prompt string) (text, source string, firstErr error) {
	req := llm.NewCompletionRequest([]llm.CompletionMessage{
		llm.NewSystemMessage(system),
		llm.NewUserMessage(prompt),
	})

	providers := c.source.Providers()
	for _, p := range providers {
		resp, err := p.Complete(ctx, req)
		if err == nil && strings.TrimSpace(resp.Content) == "" {
			err = llmerrors.NewError(llmerrors.ErrorTypeResponse, "empty completion")
		}
		if err == nil {
			if firstErr != nil {
				c.logger.Info("🔁 %s answered after an earlier provider failed", p.Name())
			}
			return resp.Content, p.Name(), nil
		}

		c.logger.Warn("⚠️ %s failed (%s): %v", p.Name(), llmerrors.TypeOf(err), err)
		if firstErr == nil {
			firstErr = err
		}
	}

	if firstErr == nil {
		firstErr = llmerrors.NewError(llmerrors.ErrorTypeNotConfigured, "no providers configured")
	}
	return "", "", firstErr
}
