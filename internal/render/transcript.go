package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zhouzirui/whats-eat/backend/internal/model/chat"
)

var (
	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	assistantStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	pendingStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("243"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	statusStyles = map[chat.Status]lipgloss.Style{
		chat.StatusInitializing: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		chat.StatusReady:        lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		chat.StatusStreaming:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		chat.StatusUnavailable:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

// Status renders the status label, with the active node while streaming.
func Status(s chat.Snapshot) string {
	text := "● " + s.Status.Label()
	if s.Status == chat.StatusStreaming && s.ActiveNode != "" {
		text += " (" + s.ActiveNode + ")"
	}
	return statusStyles[s.Status].Render(text)
}

// Message renders one transcript entry and, when present, its cards.
func Message(m chat.Message) string {
	var b strings.Builder
	switch m.Role {
	case chat.RoleUser:
		b.WriteString(userStyle.Render("you"))
	default:
		b.WriteString(assistantStyle.Render("what'seat"))
		if m.Pending() {
			b.WriteString(" " + pendingStyle.Render("typing…"))
		}
	}
	b.WriteString("\n")
	if m.Content != "" {
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	if m.Payload != nil {
		for _, card := range m.Payload.Cards {
			b.WriteString(Card(card))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Snapshot renders the whole session: transcript, then status and error.
func Snapshot(s chat.Snapshot) string {
	var b strings.Builder
	for _, m := range s.Messages {
		b.WriteString(Message(m))
		b.WriteString("\n")
	}
	b.WriteString(Status(s))
	if s.Error != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(s.Error))
	}
	b.WriteString("\n")
	return b.String()
}
