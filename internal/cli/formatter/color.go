package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/flowdesk/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

// Predefined lipgloss styles.
var (
	StyleGreen      = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow     = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleYellowBold = lipgloss.NewStyle().Foreground(ColorYellow).Bold(true)
	StyleRed        = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue       = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple     = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim        = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg         = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader     = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold       = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// StatusColor returns the style used for a container status.
func StatusColor(status domain.Status) lipgloss.Style {
	switch status {
	case domain.StatusDone:
		return StyleGreen
	case domain.StatusInProgress:
		return StyleYellow
	case domain.StatusPlanning:
		return StyleBlue
	case domain.StatusCustom:
		return StylePurple
	default:
		return StyleDim
	}
}

// StatusPill returns a colored status indicator such as "● In progress".
// Custom statuses show their own text.
func StatusPill(status domain.Status, custom string) string {
	switch status {
	case "":
		return ""
	case domain.StatusNotStarted:
		return StyleDim.Render("○ Not started")
	case domain.StatusPlanning:
		return StyleBlue.Render("◌ Planning")
	case domain.StatusInProgress:
		return StyleYellow.Render("● In progress")
	case domain.StatusDone:
		return StyleGreen.Render("✔ Done")
	case domain.StatusCustom:
		if custom == "" {
			custom = "Custom"
		}
		return StylePurple.Render("◆ " + custom)
	default:
		return StyleDim.Render(string(status))
	}
}

// TypeBadge returns a short colored tag for a node type.
func TypeBadge(t domain.NodeType) string {
	switch t {
	case domain.NodePhase:
		return StyleHeader.Render("PHASE")
	case domain.NodeTask:
		return StyleBlue.Render("TASK")
	case domain.NodeArrow:
		return StyleDim.Render("ARROW")
	default:
		return StylePurple.Render(strings.ToUpper(string(t)))
	}
}

// Header renders a section header with the orange header style and an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", lipgloss.Width(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

// Dim renders text in the muted/dim color.
func Dim(text string) string {
	return StyleDim.Render(text)
}

// Bold renders text in bold with the foreground color.
func Bold(text string) string {
	return StyleBold.Render(text)
}
