package email

import (
	"fmt"
	"strings"
)

// Template renders the offline email used when every provider fails.
// The output depends only on req.
func Template(req Request) string {
	audience := req.Get(SlotAudience)
	offering := req.Get(SlotOffering)
	painPoints := req.Get(SlotPainPoints)
	specialNotes := req.Get(SlotSpecialNotes)

	var b strings.Builder
	fmt.Fprintf(&b, "Subject: Introducing %s for %s\n\n", offering, audience)
	fmt.Fprintf(&b, "Dear %s,\n\n", salutation(audience))
	fmt.Fprintf(&b, "I hope this email finds you well. I'm reaching out because I understand that %s can be challenging in your industry.\n\n", painPoints)
	fmt.Fprintf(&b, "Our %s is specifically designed to address these challenges by providing a solution that helps you overcome %s.\n\n", offering, painPoints)
	if specialNotes != NotAvailable {
		fmt.Fprintf(&b, "Additionally, %s\n\n", specialNotes)
	}
	b.WriteString("Would you be available for a quick 15-minute call next week to discuss how we can help?\n\n")
	b.WriteString("Best regards,\n[Your Name]\n[Your Position]\n[Your Company]")
	return b.String()
}

// salutation is the first word of the audience when it contains a space.
func salutation(audience string) string {
	if !strings.Contains(audience, " ") {
		return audience
	}
	if fields := strings.Fields(audience); len(fields) > 0 {
		return fields[0]
	}
	return audience
}
