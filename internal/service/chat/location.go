package chat

import (
	"fmt"
	"regexp"
	"strings"
)

const annotationPrefix = "\n\n(User location: "

var annotationSuffix = regexp.MustCompile(`\n\n\(User location: [^\n]*\)$`)

// LocationHint is the user's position as reported by the browser or a geocoded address.
type LocationHint struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Source    string   `json:"source,omitempty"`
	Label     string   `json:"label,omitempty"`
}

// Annotate appends the location to text as it is submitted to the runtime.
func (h *LocationHint) Annotate(text string) string {
	if h == nil {
		return text
	}

	var b strings.Builder
	b.WriteString(text)
	b.WriteString(annotationPrefix)
	fmt.Fprintf(&b, "latitude=%.6f, longitude=%.6f", h.Latitude, h.Longitude)
	if h.Accuracy != nil {
		fmt.Fprintf(&b, ", accuracy=%.0fm", *h.Accuracy)
	}
	if h.Label != "" {
		fmt.Fprintf(&b, ", near %q", h.Label)
	}
	if h.Source != "" {
		fmt.Fprintf(&b, ", source=%s", h.Source)
	}
	b.WriteString(")")
	return b.String()
}

// StripAnnotation removes the suffix added by Annotate, so a user turn read
// back from the runtime shows what the user typed.
func StripAnnotation(text string) string {
	return annotationSuffix.ReplaceAllString(text, "")
}
