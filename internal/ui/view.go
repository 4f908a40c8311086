package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const unknownVersion = "unknown"

// View implements tea.Model.
func (m *App) View() string {
	if m.quitting && m.notice == "" {
		return ""
	}

	width := m.contentWidth()
	sections := []string{m.renderHeader(), m.renderMain(width)}

	if m.notice != "" {
		sections = append(sections, styleNotice().Width(width).Render(strings.Join(wrapLines(m.notice, width-4), "\n")))
	}
	if dialog := m.renderDialog(width); dialog != "" {
		sections = append(sections, dialog)
	}
	if m.showHistory {
		sections = append(sections, m.renderHistoryPane(width))
	}
	sections = append(sections, m.renderFooter())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *App) contentWidth() int {
	return clampInt(m.width-2, 30, 100)
}

func (m *App) renderHeader() string {
	title := "AUTOUPDATER"
	if m.cfg.AppVersion != "" {
		title = fmt.Sprintf("AUTOUPDATER v%s", m.cfg.AppVersion)
	}
	header := styleHeader().Render(title)
	if m.paused {
		header += " " + styleWarning().Render("maintenance")
	}
	return header
}

func (m *App) renderMain(width int) string {
	inner := width - 4
	valueWidth := inner - styleField().GetWidth()

	latest := unknownVersion
	if m.latestKnown {
		latest = m.latest.String()
	}

	status := m.status
	if m.busyIndicator() {
		status = m.spinner.View() + " " + status
	}

	lines := []string{
		styleField().Render("Current version:") + styleVersion().Render(truncate(m.current.String(), valueWidth)),
		styleField().Render("Latest version:") + styleVersion().Render(truncate(latest, valueWidth)),
		styleField().Render("Status:") + styleStatus(m.status).Render(truncate(status, valueWidth)),
	}
	if m.updating {
		lines = append(lines, "", m.progress.ViewAs(float64(m.percent)/100))
	}
	if m.cfg.ManifestURL != "" {
		lines = append(lines, styleMuted().Render(truncate("Source: "+m.cfg.ManifestURL, inner)))
	}
	return stylePane().Width(width).Render(strings.Join(lines, "\n"))
}

func (m *App) busyIndicator() bool {
	return m.checking || m.updating
}

func (m *App) renderDialog(width int) string {
	switch {
	case m.consent != nil:
		body := fmt.Sprintf("A major update (v%s) is available.\nCurrent version: %s\n\nUpdate now?",
			m.consent.latest, m.current)
		return styleDialog().Width(width).Render(body + "\n\n" + styleMuted().Render("[y] Yes  [n] No"))
	case m.confirmCancel:
		return styleDialog().Width(width).Render(cancelPrompt + "\n\n" + styleMuted().Render("[y] Yes  [n] No"))
	}
	return ""
}

func (m *App) renderHistoryPane(width int) string {
	content := m.historyContent
	if content == "" {
		content = styleMuted().Render("Loading history...")
	}
	return stylePane().Width(width).Render(content)
}

func (m *App) renderFooter() string {
	var b strings.Builder
	if m.toast != "" {
		b.WriteString(styleToast().Render(m.toast))
		b.WriteString("\n")
	}
	m.help.ShowAll = m.showHelp
	b.WriteString(m.help.View(m.keys))
	return b.String()
}
