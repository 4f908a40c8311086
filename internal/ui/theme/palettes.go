package theme

import "github.com/charmbracelet/lipgloss"

func c(dark, light string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Dark: dark, Light: light}
}

// TokyoNight is the default palette.
var TokyoNight = Palette{
	PrimaryColor:       c("#82aaff", "#2e7de9"),
	SecondaryColor:     c("#c099ff", "#9854f1"),
	AccentColor:        c("#ffc777", "#8c6c3e"),
	ErrorColor:         c("#ff757f", "#f52a65"),
	WarningColor:       c("#ff966c", "#b15c00"),
	SuccessColor:       c("#c3e88d", "#587539"),
	InfoColor:          c("#7dcfff", "#0db9d7"),
	TextColor:          c("#c8d3f5", "#3760bf"),
	TextMutedColor:     c("#636da6", "#848cb5"),
	BorderNormalColor:  c("#3b4261", "#a8aecb"),
	BorderFocusedColor: c("#82aaff", "#2e7de9"),
}

// Dracula follows https://draculatheme.com/contribute.
var Dracula = Palette{
	PrimaryColor:       c("#bd93f9", "#7e57c2"),
	SecondaryColor:     c("#8be9fd", "#0097a7"),
	AccentColor:        c("#f1fa8c", "#f9a825"),
	ErrorColor:         c("#ff5555", "#d32f2f"),
	WarningColor:       c("#ffb86c", "#ef6c00"),
	SuccessColor:       c("#50fa7b", "#388e3c"),
	InfoColor:          c("#8be9fd", "#1976d2"),
	TextColor:          c("#f8f8f2", "#212121"),
	TextMutedColor:     c("#6272a4", "#757575"),
	BorderNormalColor:  c("#6272a4", "#bdbdbd"),
	BorderFocusedColor: c("#bd93f9", "#7e57c2"),
}

// Nord follows https://www.nordtheme.com/docs/colors-and-palettes.
var Nord = Palette{
	PrimaryColor:       c("#88C0D0", "#5E81AC"),
	SecondaryColor:     c("#81A1C1", "#81A1C1"),
	AccentColor:        c("#8FBCBB", "#8FBCBB"),
	ErrorColor:         c("#BF616A", "#BF616A"),
	WarningColor:       c("#D08770", "#D08770"),
	SuccessColor:       c("#A3BE8C", "#A3BE8C"),
	InfoColor:          c("#88C0D0", "#5E81AC"),
	TextColor:          c("#ECEFF4", "#2E3440"),
	TextMutedColor:     c("#8B95A7", "#3B4252"),
	BorderNormalColor:  c("#434C5E", "#4C566A"),
	BorderFocusedColor: c("#4C566A", "#434C5E"),
}

func init() {
	RegisterTheme("tokyonight", TokyoNight)
	RegisterTheme("dracula", Dracula)
	RegisterTheme("nord", Nord)
}
