package ui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/reflow/wordwrap"
)

func stripANSI(s string) string {
	return ansi.Strip(s)
}

// truncate shortens s to width cells, keeping escape sequences intact.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if ansi.StringWidth(s) <= width {
		return s
	}
	return ansi.Truncate(s, width, "…")
}

// wrapLines word-wraps s and truncates any word that still overflows.
func wrapLines(s string, width int) []string {
	if width <= 0 {
		return strings.Split(s, "\n")
	}
	lines := strings.Split(wordwrap.String(s, width), "\n")
	for i, line := range lines {
		lines[i] = truncate(line, width)
	}
	return lines
}
