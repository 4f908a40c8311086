package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"autoupdater/internal/history"
	"autoupdater/internal/ui"
	"autoupdater/internal/update"

	"github.com/charmbracelet/x/ansi"
)

// progressStep limits console progress output to every n percent.
const progressStep = 10

// consoleNotifier prints engine output as plain lines for --check.
type consoleNotifier struct {
	mu           sync.Mutex
	w            io.Writer
	acceptMajor  bool
	lastReported int
	lastStatus   string
}

var _ update.Notifier = (*consoleNotifier)(nil)

func newConsoleNotifier(w io.Writer, acceptMajor bool) *consoleNotifier {
	return &consoleNotifier{w: w, acceptMajor: acceptMajor, lastReported: -1}
}

func (c *consoleNotifier) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.w, format, args...)
}

func (c *consoleNotifier) ShowVersions(current, latest update.Version) {
	c.printf("Current version: %s\nLatest version:  %s\n", current, latest)
}

func (c *consoleNotifier) SetStatus(text string) {
	c.mu.Lock()
	c.lastStatus = text
	c.mu.Unlock()
	c.printf("%s\n", ansi.Strip(text))
}

func (c *consoleNotifier) SetProgress(percent int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if percent == c.lastReported {
		return
	}
	if c.lastReported >= 0 && percent < 100 && percent-c.lastReported < progressStep {
		return
	}
	c.lastReported = percent
	_, _ = fmt.Fprintf(c.w, "  %3d%%\n", percent)
}

func (c *consoleNotifier) EnterUpdatingMode() {
	c.mu.Lock()
	c.lastReported = -1
	c.mu.Unlock()
}

func (c *consoleNotifier) ExitUpdatingMode() {}

func (c *consoleNotifier) PromptUserConsent(_ context.Context, latest update.Version) bool {
	if c.acceptMajor {
		c.printf("Major update %s accepted (--yes)\n", latest)
		return true
	}
	c.printf("Major update %s available; rerun with --yes to install it\n", latest)
	return false
}

func (c *consoleNotifier) status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastStatus
}

// runHeadlessCheck performs a single check and, when an update starts,
// waits for it to hand over to the helper. The helper relaunches with the
// same arguments, so the new version repeats the check and exits.
func runHeadlessCheck(ctx context.Context, opts runtimeOptions, store *history.Store, acceptMajor bool, args []string, stdout, stderr io.Writer) int {
	notifier := newConsoleNotifier(stdout, acceptMajor)
	terminated := make(chan struct{})
	var once sync.Once

	engine, err := buildEngine(opts, engineDeps{
		notifier:     notifier,
		recorder:     store,
		terminate:    func() { once.Do(func() { close(terminated) }) },
		relaunchArgs: args,
	})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	engine.ReportPreviousInstall(ctx)
	result := engine.CheckForUpdates(ctx)
	if result == update.CheckUpdateStarted {
		engine.Wait()
		select {
		case <-terminated:
			return 0
		default:
			_, _ = fmt.Fprintf(stderr, "Update did not complete: %s\n", notifier.status())
			return 1
		}
	}
	return checkExitCode(result)
}

func checkExitCode(result update.CheckResult) int {
	switch result {
	case update.CheckFailed, update.CheckInvalid, update.CheckUpdateRejected:
		return 1
	default:
		return 0
	}
}

func printHistory(ctx context.Context, store *history.Store, opts runtimeOptions, stdout, stderr io.Writer) int {
	if store == nil {
		_, _ = fmt.Fprintln(stderr, "Update history is disabled")
		return 1
	}
	events, err := store.Recent(ctx, history.DefaultLimit)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error reading history: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(stdout, ui.RenderHistory(events, opts.outputFormat, 80))
	return 0
}
