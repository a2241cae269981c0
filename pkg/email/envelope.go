package email

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Marker separates the banner of a degraded result from its template.
const Marker = "Here's a basic email template instead:"

// Banners shown above the template in a degraded result.
const (
	AuthBanner        = "⚠️ Authentication Error: API authentication failed."
	errorBannerPrefix = "⚠️ Error: "
	authBannerPrefix  = "⚠️ Authentication Error:"
)

// Envelope is a generated result plus whether it is the degraded fallback.
type Envelope struct {
	Text     string `json:"text"`
	Degraded bool   `json:"degraded"`
}

// Clean wraps provider output.
func Clean(text string) Envelope {
	return Envelope{Text: text}
}

// Degrade builds the fallback result for req. When auth is set the banner
// reports an authentication failure; otherwise it quotes description.
func Degrade(req Request, description string, auth bool) Envelope {
	banner := AuthBanner
	if !auth {
		banner = errorBannerPrefix + description
	}
	return Envelope{
		Text:     fmt.Sprintf("%s\n\n%s\n\n%s", banner, Marker, Template(req)),
		Degraded: true,
	}
}

// CleanText is the text safe to show, download, or refine: the embedded
// template for a degraded result, the text itself otherwise.
func (e Envelope) CleanText() string {
	if !e.Degraded {
		return e.Text
	}
	if i := strings.Index(e.Text, Marker); i >= 0 {
		return strings.TrimSpace(e.Text[i+len(Marker):])
	}
	return e.Text
}

// ParseEnvelope recovers an envelope from bare wire text. Text is degraded
// when it opens with one of the banners and carries the marker.
func ParseEnvelope(text string) Envelope {
	hasBanner := strings.HasPrefix(text, errorBannerPrefix) || strings.HasPrefix(text, authBannerPrefix)
	return Envelope{
		Text:     text,
		Degraded: hasBanner && strings.Contains(text, Marker),
	}
}

// UnmarshalJSON accepts both the object form and a bare string stored
// before the degraded flag existed.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*e = ParseEnvelope(text)
		return nil
	}
	type plain Envelope
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode email envelope: %w", err)
	}
	*e = Envelope(p)
	return nil
}
