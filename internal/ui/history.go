package ui

import (
	"fmt"
	"strings"

	"autoupdater/internal/update"
)

const historyTimeLayout = "2006-01-02 15:04:05"

var eventLabels = map[update.EventKind]string{
	update.EventCheckFailed:       "Check failed",
	update.EventInvalidManifest:   "Invalid manifest",
	update.EventUpToDate:          "Up to date",
	update.EventDeclined:          "Major update postponed",
	update.EventUpdateStarted:     "Update started",
	update.EventUpdateFailed:      "Update failed",
	update.EventUpdateCancelled:   "Update cancelled",
	update.EventInstallerLaunched: "Installer launched",
	update.EventInstallSucceeded:  "Install succeeded",
	update.EventInstallFailed:     "Install failed",
}

func eventLabel(kind update.EventKind) string {
	if label, ok := eventLabels[kind]; ok {
		return label
	}
	return string(kind)
}

// HistoryMarkdown formats events as a markdown list.
func HistoryMarkdown(events []update.Event) string {
	var b strings.Builder
	b.WriteString("## Update history\n\n")
	if len(events) == 0 {
		b.WriteString("_No updates recorded yet._\n")
		return b.String()
	}
	for _, ev := range events {
		fmt.Fprintf(&b, "- `%s` **%s**", ev.At.Local().Format(historyTimeLayout), eventLabel(ev.Kind))
		switch {
		case ev.FromVersion != "" && ev.ToVersion != "" && ev.FromVersion != ev.ToVersion:
			fmt.Fprintf(&b, " %s → %s", ev.FromVersion, ev.ToVersion)
		case ev.ToVersion != "":
			fmt.Fprintf(&b, " %s", ev.ToVersion)
		case ev.FromVersion != "":
			fmt.Fprintf(&b, " %s", ev.FromVersion)
		}
		if ev.Detail != "" {
			fmt.Fprintf(&b, ": %s", escapeMarkdown(ev.Detail))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderHistory renders events for a terminal of the given width.
func RenderHistory(events []update.Event, format string, width int) string {
	return buildMarkdownRenderer(format, width)(HistoryMarkdown(events))
}

func (m *App) renderHistory(events []update.Event, err error) string {
	if err != nil {
		return styleStatus("Error:").Render("Error: could not load history: " + err.Error())
	}
	return RenderHistory(events, m.cfg.OutputFormat, m.contentWidth()-4)
}

func escapeMarkdown(s string) string {
	r := strings.NewReplacer("*", `\*`, "_", `\_`, "`", "'")
	return r.Replace(strings.ReplaceAll(s, "\n", " "))
}
