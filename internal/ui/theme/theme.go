// Package theme provides the semantic colors used by the updater shell.
package theme

import "github.com/charmbracelet/lipgloss"

// Theme defines the semantic colors of the UI.
// All methods return AdaptiveColor for automatic light/dark terminal support.
type Theme interface {
	Primary() lipgloss.AdaptiveColor   // Header background, progress fill
	Secondary() lipgloss.AdaptiveColor // Field labels
	Accent() lipgloss.AdaptiveColor    // Version numbers

	Error() lipgloss.AdaptiveColor
	Warning() lipgloss.AdaptiveColor
	Success() lipgloss.AdaptiveColor
	Info() lipgloss.AdaptiveColor

	Text() lipgloss.AdaptiveColor
	TextMuted() lipgloss.AdaptiveColor

	BorderNormal() lipgloss.AdaptiveColor
	BorderFocused() lipgloss.AdaptiveColor
}

// Palette is a Theme backed by plain color values.
type Palette struct {
	PrimaryColor       lipgloss.AdaptiveColor
	SecondaryColor     lipgloss.AdaptiveColor
	AccentColor        lipgloss.AdaptiveColor
	ErrorColor         lipgloss.AdaptiveColor
	WarningColor       lipgloss.AdaptiveColor
	SuccessColor       lipgloss.AdaptiveColor
	InfoColor          lipgloss.AdaptiveColor
	TextColor          lipgloss.AdaptiveColor
	TextMutedColor     lipgloss.AdaptiveColor
	BorderNormalColor  lipgloss.AdaptiveColor
	BorderFocusedColor lipgloss.AdaptiveColor
}

func (p Palette) Primary() lipgloss.AdaptiveColor       { return p.PrimaryColor }
func (p Palette) Secondary() lipgloss.AdaptiveColor     { return p.SecondaryColor }
func (p Palette) Accent() lipgloss.AdaptiveColor        { return p.AccentColor }
func (p Palette) Error() lipgloss.AdaptiveColor         { return p.ErrorColor }
func (p Palette) Warning() lipgloss.AdaptiveColor       { return p.WarningColor }
func (p Palette) Success() lipgloss.AdaptiveColor       { return p.SuccessColor }
func (p Palette) Info() lipgloss.AdaptiveColor          { return p.InfoColor }
func (p Palette) Text() lipgloss.AdaptiveColor          { return p.TextColor }
func (p Palette) TextMuted() lipgloss.AdaptiveColor     { return p.TextMutedColor }
func (p Palette) BorderNormal() lipgloss.AdaptiveColor  { return p.BorderNormalColor }
func (p Palette) BorderFocused() lipgloss.AdaptiveColor { return p.BorderFocusedColor }
