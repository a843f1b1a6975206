package cli

import (
	"errors"
	"strings"

	"github.com/alexanderramin/flowdesk/internal/cli/formatter"
	"github.com/alexanderramin/flowdesk/internal/domain"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// flowdeskHuhTheme returns a huh theme matching the formatter palette.
func flowdeskHuhTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(formatter.ColorHeader).Bold(true)
	t.Focused.SelectSelector = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(formatter.ColorGreen)
	t.Focused.UnselectedOption = lipgloss.NewStyle().Foreground(formatter.ColorFg)
	t.Focused.FocusedButton = lipgloss.NewStyle().Foreground(formatter.ColorFg).Background(formatter.ColorHeader).Padding(0, 1)
	t.Focused.BlurredButton = lipgloss.NewStyle().Foreground(formatter.ColorDim).Padding(0, 1)
	t.Focused.TextInput.Cursor = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.TextInput.Prompt = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.TextInput.Text = lipgloss.NewStyle().Foreground(formatter.ColorFg)
	t.Focused.TextInput.Placeholder = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Focused.Description = lipgloss.NewStyle().Foreground(formatter.ColorDim)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.SelectSelector = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.SelectedOption = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.UnselectedOption = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.TextInput.Prompt = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.TextInput.Text = lipgloss.NewStyle().Foreground(formatter.ColorDim)

	return t
}

// confirmForm asks a yes/no question.
func confirmForm(title string, result *bool) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Yes").
				Negative("No").
				Value(result),
		),
	).WithTheme(flowdeskHuhTheme()).WithShowHelp(false)
}

// labelForm edits a node label.
func labelForm(title string, value *string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				Value(value).
				CharLimit(200),
		),
	).WithTheme(flowdeskHuhTheme()).WithShowHelp(false)
}

// addNodeForm picks a node type and an optional label for a new node.
func addNodeForm(nodeType *string, label *string) *huh.Form {
	options := []huh.Option[string]{
		huh.NewOption("Phase", string(domain.NodePhase)),
		huh.NewOption("Task", string(domain.NodeTask)),
		huh.NewOption("Sub-flow", string(domain.NodeSubFlow)),
		huh.NewOption("Iterative", string(domain.NodeIterative)),
		huh.NewOption("Note", string(domain.NodeNote)),
		huh.NewOption("Extra", string(domain.NodeExtra)),
		huh.NewOption("Arrow", string(domain.NodeArrow)),
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Node type").
				Options(options...).
				Value(nodeType),
			huh.NewInput().
				Title("Label (blank for the default)").
				Value(label).
				Validate(func(s string) error {
					if *nodeType == string(domain.NodeArrow) && strings.TrimSpace(s) != "" {
						return errors.New("arrows carry no label")
					}
					return nil
				}),
		),
	).WithTheme(flowdeskHuhTheme()).WithShowHelp(false)
}
