// Package render formats sessions and restaurant cards for the terminal.
package render

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/zhouzirui/whats-eat/backend/internal/model/chat"
)

var (
	dollarsPattern = regexp.MustCompile(`^\$+$`)

	genericTypes = map[string]bool{
		"point_of_interest": true,
		"establishment":     true,
		"food":              true,
		"store":             true,
		"health":            true,
		"gym":               true,
	}

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	nameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	tagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	whyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135"))
)

// PriceLevel turns "PRICE_LEVEL_MODERATE" into "Moderate"; "$$" is kept as is.
func PriceLevel(value string) string {
	switch {
	case value == "":
		return "-"
	case dollarsPattern.MatchString(value):
		return value
	case strings.HasPrefix(value, "PRICE_LEVEL_"):
		return titleWords(strings.ToLower(strings.TrimPrefix(value, "PRICE_LEVEL_")))
	default:
		return value
	}
}

// PrimaryType is the first non-generic place type, as a label.
func PrimaryType(card chat.RestaurantCard) string {
	if len(card.Types) == 0 {
		return "Restaurant"
	}
	for _, t := range card.Types {
		if !genericTypes[strings.ToLower(t)] {
			return label(t)
		}
	}
	return label(card.Types[0])
}

// Rating renders "4.5 / 5 · 1,234 reviews". The second result is false when
// the card carries no rating.
func Rating(card chat.RestaurantCard) (string, bool) {
	if card.Rating == nil {
		return "", false
	}
	if card.UserRatingCount != nil && *card.UserRatingCount > 0 {
		return fmt.Sprintf("%.1f / 5 · %s reviews", *card.Rating, humanize.Comma(int64(*card.UserRatingCount))), true
	}
	return fmt.Sprintf("%.1f / 5", *card.Rating), true
}

// OpenStatus renders today's opening state.
func OpenStatus(card chat.RestaurantCard) (string, bool) {
	if card.Opens == nil {
		return "", false
	}
	if card.Opens.TodayIsOpen != nil && *card.Opens.TodayIsOpen {
		if card.Opens.ClosesAt != "" {
			return "Open now · Closes at " + card.Opens.ClosesAt, true
		}
		return "Open now", true
	}
	return "Closed now", true
}

// Distance renders "1.2 km away".
func Distance(card chat.RestaurantCard) (string, bool) {
	if card.DistanceKm == nil {
		return "", false
	}
	return fmt.Sprintf("%.1f km away", *card.DistanceKm), true
}

// Card renders one recommendation as a bordered block.
func Card(card chat.RestaurantCard) string {
	lines := []string{
		typeStyle.Render(strings.ToUpper(PrimaryType(card))),
		nameStyle.Render(card.Name),
	}
	if card.Address != "" {
		lines = append(lines, card.Address)
	}
	if rating, ok := Rating(card); ok {
		lines = append(lines, field("Rating", rating))
	}
	lines = append(lines, field("Price", PriceLevel(card.PriceLevel)))
	if distance, ok := Distance(card); ok {
		lines = append(lines, field("Distance", distance))
	}
	if status, ok := OpenStatus(card); ok {
		lines = append(lines, field("Status", status))
	}
	if len(card.Types) > 0 {
		types := make([]string, 0, len(card.Types))
		for _, t := range card.Types {
			types = append(types, label(t))
		}
		lines = append(lines, field("Types", strings.Join(types, " · ")))
	}
	if len(card.Tags) > 0 {
		lines = append(lines, tagStyle.Render("#"+strings.Join(card.Tags, " #")))
	}
	for _, reason := range card.Why {
		lines = append(lines, whyStyle.Render("+ "+reason))
	}
	if link := mapsLink(card); link != "" {
		lines = append(lines, labelStyle.Render(link))
	}
	return cardStyle.Render(strings.Join(lines, "\n"))
}

func mapsLink(card chat.RestaurantCard) string {
	if card.GoogleMapsURI != "" {
		return card.GoogleMapsURI
	}
	return card.Deeplink
}

func field(name, value string) string {
	return labelStyle.Render(name+":") + " " + value
}

func label(s string) string {
	return titleWords(strings.ReplaceAll(s, "_", " "))
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
