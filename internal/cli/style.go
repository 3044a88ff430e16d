package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

var (
	colorRed    = lipgloss.Color("#fb4934")
	colorYellow = lipgloss.Color("#fabd2f")
	colorGreen  = lipgloss.Color("#8ec07c")
	colorDim    = lipgloss.Color("#928374")
	colorHeader = lipgloss.Color("#fe8019")
)

var (
	styleCritical = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	styleWarning  = lipgloss.NewStyle().Foreground(colorYellow)
	styleOK       = lipgloss.NewStyle().Foreground(colorGreen)
	styleDim      = lipgloss.NewStyle().Foreground(colorDim)
	styleHeader   = lipgloss.NewStyle().Foreground(colorHeader).Bold(true)
)

func severityStyle(severity models.Severity) lipgloss.Style {
	switch severity {
	case models.SeverityCritical:
		return styleCritical
	case models.SeverityWarning:
		return styleWarning
	default:
		return styleDim
	}
}

func header(text string) string {
	upper := strings.ToUpper(text)
	return fmt.Sprintf("%s\n%s", styleHeader.Render(upper), styleDim.Render(strings.Repeat("─", len(upper))))
}

func conflictLine(c models.Conflict) string {
	badge := severityStyle(c.Severity).Render(fmt.Sprintf("● %-8s", c.Severity))
	line := fmt.Sprintf("%s %-24s %s", badge, c.Type, c.Description)
	if c.Resolved {
		line += " " + styleDim.Render("(resolved)")
	}
	return line
}
