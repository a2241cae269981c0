// Package email holds the cold-outreach email domain: the question slots a
// conversation fills, the generation request built from them, the offline
// template, and the envelope that carries a result between turns.
package email

// Slot names a collected answer.
type Slot string

// Slots in collection order.
const (
	SlotAudience     Slot = "audience"
	SlotOffering     Slot = "offering"
	SlotPainPoints   Slot = "pain_points"
	SlotTone         Slot = "tone"
	SlotSpecialNotes Slot = "special_notes"
)

// NotAvailable stands in for a slot that was never collected.
const NotAvailable = "N/A"

// DefaultTone is what the provider prompt uses when no tone was collected.
const DefaultTone = "Professional"

// Slots is the fixed collection order. Questions[i] fills Slots[i].
var Slots = []Slot{SlotAudience, SlotOffering, SlotPainPoints, SlotTone, SlotSpecialNotes}

// Questions asked in order during collection.
var Questions = []string{
	"Who is your target audience? (job title, industry, company size, etc.)",
	"What is the key offering, product, or service?",
	"What pain points are you addressing?",
	"What tone or style should the email have? (Formal, Friendly, etc.)",
	"Any special promotions, deadlines, or prior relationships to mention?",
}

// QuestionCount is the number of collection turns before generation.
func QuestionCount() int {
	return len(Questions)
}

// Request is the typed bundle of collected answers handed to generation.
// An empty answer is kept as given; only an absent slot reads as N/A.
type Request struct {
	values map[Slot]string
}

// NewRequest copies the collected answers into a request.
func NewRequest(answers map[Slot]string) Request {
	values := make(map[Slot]string, len(answers))
	for k, v := range answers {
		values[k] = v
	}
	return Request{values: values}
}

// Get returns the answer for slot, or NotAvailable when it was never collected.
func (r Request) Get(slot Slot) string {
	if v, ok := r.values[slot]; ok {
		return v
	}
	return NotAvailable
}

// Tone returns the tone for the provider prompt.
func (r Request) Tone() string {
	if v, ok := r.values[SlotTone]; ok {
		return v
	}
	return DefaultTone
}
