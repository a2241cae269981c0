package email

import "fmt"

// System prompts for the two provider operations.
const (
	GenerateSystemPrompt = "You are a professional email copywriter expert in creating effective cold outreach emails."
	RefineSystemPrompt   = "You are a professional email copywriter expert in refining cold outreach emails."
)

const generatePromptFormat = `Create a cold outreach email based on the following information:

Target Audience: %s
Key Offering: %s
Pain Points: %s
Tone/Style: %s
Special Notes: %s

Format the response as follows:

Subject: [Subject Line]

[Email Body with clear Introduction, Value Proposition, Call-to-Action, and Sign-off]`

// GeneratePrompt builds the user prompt for a first draft.
func GeneratePrompt(req Request) string {
	return fmt.Sprintf(generatePromptFormat,
		req.Get(SlotAudience),
		req.Get(SlotOffering),
		req.Get(SlotPainPoints),
		req.Tone(),
		req.Get(SlotSpecialNotes),
	)
}

// RefinePrompt builds the user prompt for a refinement of text.
func RefinePrompt(text, instruction string) string {
	return fmt.Sprintf("Original email:\n\n%s\n\nPlease refine this email based on the following request: %s", text, instruction)
}
