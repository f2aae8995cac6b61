package ui

import (
	"github.com/charmbracelet/lipgloss"

	"iifvs/internal/model"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFF")).
			Background(lipgloss.Color("#7D56F4")).
			Bold(true).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	severityStyles = map[model.Severity]lipgloss.Style{
		model.SeverityCritical: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		model.SeverityHigh:     lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true),
		model.SeverityMedium:   lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		model.SeverityLow:      lipgloss.NewStyle().Foreground(lipgloss.Color("46")),
	}
)

// SeverityLabel pads and colours a tier for table output.
func SeverityLabel(s model.Severity, width int) string {
	text := padRight(string(s), width)
	if style, ok := severityStyles[s]; ok {
		return style.Render(text)
	}
	return mutedStyle.Render(text)
}

func padRight(s string, width int) string {
	for len(s) < width {
		s += " "
	}
	return s
}
