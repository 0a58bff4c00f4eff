package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	Base     = lipgloss.Color("#1e1e2e")
	Text     = lipgloss.Color("#cdd6f4")
	Subtext0 = lipgloss.Color("#a6adc8")
	Surface0 = lipgloss.Color("#313244")

	Pink     = lipgloss.Color("#f5c2e7")
	Red      = lipgloss.Color("#f38ba8")
	Yellow   = lipgloss.Color("#f9e2af")
	Green    = lipgloss.Color("#a6e3a1")
	Teal     = lipgloss.Color("#94e2d5")
	Sapphire = lipgloss.Color("#74c7ec")
	Lavender = lipgloss.Color("#b4befe")
)

var (
	ErrorStyle = lipgloss.NewStyle().
			Foreground(Base).
			Background(Red).
			Padding(0, 1)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Base).
			Background(Green).
			Padding(0, 1)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Lavender).
			BorderBottom(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(Surface0)

	KeyStyle   = lipgloss.NewStyle().Foreground(Sapphire).Bold(true)
	ValueStyle = lipgloss.NewStyle().Foreground(Text)

	StatusAccepted = lipgloss.NewStyle().Foreground(Green).Bold(true)
	StatusRejected = lipgloss.NewStyle().Foreground(Red).Bold(true)
	StatusRedirect = lipgloss.NewStyle().Foreground(Yellow).Bold(true)

	FooterStyle = lipgloss.NewStyle().
			Foreground(Subtext0)

	RequestStyle = lipgloss.NewStyle().
			Foreground(Teal).
			BorderLeft(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(Pink).
			PaddingLeft(1)
)

// Verdict renders the outcome of a range check.
func Verdict(err error) string {
	if err == nil {
		return StatusAccepted.Render("ACCEPT") + " " + FooterStyle.Render("append to written bytes")
	}

	return StatusRejected.Render("REJECT") + " " + FooterStyle.Render(err.Error()+", restart segment")
}

// Field renders one "key: value" line.
func Field(key, value string) string {
	return KeyStyle.Render(key+":") + " " + ValueStyle.Render(value)
}

// Request renders a request header block with the CRLF endings made visible.
func Request(text string) string {
	text = strings.TrimSuffix(text, "\r\n\r\n")
	lines := strings.Split(text, "\r\n")

	return RequestStyle.Render(strings.Join(lines, "\\r\\n\n") + "\\r\\n\n\\r\\n")
}
