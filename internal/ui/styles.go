package ui

import (
	"strings"

	"autoupdater/internal/ui/theme"
	"autoupdater/internal/update"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

// Styles are built on demand so a theme switch takes effect on the next frame.

func styleHeader() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("#ffffff")).
		Background(theme.Current().Primary()).
		Bold(true).
		Padding(0, 1)
}

func styleField() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(theme.Current().Secondary()).
		Bold(true).
		Width(18)
}

func styleVersion() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(theme.Current().Accent()).Bold(true)
}

func styleStatus(text string) lipgloss.Style {
	t := theme.Current()
	s := lipgloss.NewStyle().Foreground(t.Text())
	switch {
	case strings.HasPrefix(text, "Error:"), strings.HasPrefix(text, "Update check failed"),
		strings.HasPrefix(text, "Previous update failed"), text == update.StatusCheckFailed, text == update.StatusInvalidManifest:
		return s.Foreground(t.Error())
	case text == update.StatusUpToDate, strings.HasPrefix(text, "Updated to"):
		return s.Foreground(t.Success())
	case text == update.StatusPostponed:
		return s.Foreground(t.Warning())
	}
	return s
}

func styleMuted() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(theme.Current().TextMuted())
}

func stylePane() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Current().BorderNormal()).
		Padding(0, 1)
}

func styleDialog() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Current().BorderFocused()).
		Padding(0, 1)
}

func styleNotice() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Current().Warning()).
		Foreground(theme.Current().Warning()).
		Padding(0, 1)
}

func styleToast() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(theme.Current().Info()).Italic(true)
}

func styleWarning() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(theme.Current().Warning()).Bold(true)
}

// buildMarkdownRenderer returns a renderer for the configured output format.
// "plain" and any glamour failure fall back to word wrapping.
func buildMarkdownRenderer(format string, width int) func(string) string {
	fallback := func(input string) string {
		return wordwrap.String(input, width)
	}

	style := strings.ToLower(strings.TrimSpace(format))
	if style == "" || style == "rich" || style == "dark" {
		style = "dark"
	}
	if style == "plain" {
		return fallback
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return fallback
	}
	return func(input string) string {
		out, err := renderer.Render(input)
		if err != nil {
			return fallback(input)
		}
		return strings.TrimSpace(out)
	}
}
