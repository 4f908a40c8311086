package ui

import (
	"context"
	"fmt"
	"time"

	"autoupdater/internal/config"
	"autoupdater/internal/control"
	"autoupdater/internal/debug"
	"autoupdater/internal/ui/theme"
	"autoupdater/internal/update"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Shell texts that are not engine statuses.
const (
	initialStatus      = "Checking for updates..."
	closeVetoWarning   = "Please wait until update completes"
	cancelPrompt       = "Cancel update?"
	cancellingStatus   = "Cancelling update..."
	controlsDisabled   = "Controls are disabled during maintenance"
	historyUnavailable = "Update history is disabled"
	historyLimit       = 20
)

// Engine is the part of update.Engine the shell drives.
type Engine interface {
	CheckForUpdates(ctx context.Context) update.CheckResult
	Cancel() bool
	IsBusy() bool
	CurrentVersion() update.Version
}

// HistorySource lists recorded update events, newest first.
type HistorySource interface {
	Recent(ctx context.Context, limit int) ([]update.Event, error)
}

// Config configures the shell.
type Config struct {
	Engine       Engine
	Notifier     *ProgramNotifier
	History      HistorySource
	AppVersion   string
	ManifestURL  string
	OutputFormat string
	Context      context.Context
	// Clipboard defaults to atotto/clipboard.
	Clipboard func(string) error
	// SaveTheme defaults to config.SaveTheme.
	SaveTheme func(string) error
}

// App is the bubbletea model presenting the update engine.
type App struct {
	cfg  Config
	ctx  context.Context
	keys KeyMap
	help help.Model

	width  int
	height int

	current     update.Version
	latest      update.Version
	latestKnown bool
	status      string

	checking bool
	updating bool
	percent  int
	progress progress.Model
	spinner  spinner.Model

	consent       *consentRequestMsg
	confirmCancel bool
	postponed     bool

	paused        bool
	notice        string
	stopRequested bool

	showHelp       bool
	showHistory    bool
	historyContent string

	toast      string
	toastUntil time.Time

	quitting bool
	now      func() time.Time
}

// NewApp builds the shell model.
func NewApp(cfg Config) (*App, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if cfg.Notifier == nil {
		cfg.Notifier = NewProgramNotifier()
	}
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}
	if cfg.Clipboard == nil {
		cfg.Clipboard = clipboard.WriteAll
	}
	if cfg.SaveTheme == nil {
		cfg.SaveTheme = config.SaveTheme
	}

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	return &App{
		cfg:      cfg,
		ctx:      cfg.Context,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		width:    80,
		current:  cfg.Engine.CurrentVersion(),
		status:   initialStatus,
		checking: true,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		spinner:  sp,
		now:      time.Now,
	}, nil
}

// Init implements tea.Model.
func (m *App) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.progress.Width = clampInt(msg.Width-10, 10, 60)
		if m.showHistory {
			return m, m.loadHistory()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case versionsMsg:
		m.current, m.latest, m.latestKnown = msg.current, msg.latest, true
		return m, nil

	case statusMsg:
		return m.handleStatus(msg.text)

	case progressMsg:
		if msg.percent > m.percent {
			m.percent = clampInt(msg.percent, 0, 100)
		}
		return m, nil

	case updatingModeMsg:
		// A check that started an update is over, whoever started it.
		m.checking = false
		m.updating = msg.active
		if msg.active {
			m.percent = 0
			m.postponed = false
			return m, nil
		}
		m.confirmCancel = false
		if m.stopRequested {
			return m, scheduleStop()
		}
		return m, nil

	case consentRequestMsg:
		m.answerConsent(false)
		m.consent = &msg
		return m, nil

	case checkDoneMsg:
		m.checking = false
		return m, nil

	case controlMsg:
		return m.handleControl(msg.change)

	case historyLoadedMsg:
		m.historyContent = m.renderHistory(msg.events, msg.err)
		return m, nil

	case closeVetoedMsg:
		return m, m.showToast(closeVetoWarning)

	case terminateMsg:
		m.quitting = true
		m.answerConsent(false)
		return m, tea.Quit

	case toastTickMsg:
		if m.toast != "" && m.now().After(m.toastUntil) {
			m.toast = ""
			return m, nil
		}
		if m.toast != "" {
			return m, scheduleToastTick()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *App) handleStatus(text string) (tea.Model, tea.Cmd) {
	m.status = text
	switch text {
	case update.StatusPostponed:
		m.postponed = true
		m.checking = false
	case update.StatusUpToDate:
		m.postponed = false
		m.checking = false
	case update.StatusCheckFailed, update.StatusInvalidManifest, update.StatusLockedElsewhere:
		m.checking = false
	}
	return m, nil
}

func (m *App) handleControl(change control.Change) (tea.Model, tea.Cmd) {
	switch change.State {
	case control.StateActive:
		m.paused = false
		m.notice = ""
	case control.StatePaused:
		m.paused = true
		if change.Notice != "" {
			m.notice = change.Notice
		}
	case control.StateStopped:
		m.notice = change.Notice
		if m.cfg.Engine.IsBusy() {
			debug.Log("ui: stop requested while updating, deferring exit")
			m.stopRequested = true
			return m, nil
		}
		return m, scheduleStop()
	}
	return m, nil
}

func (m *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.consent != nil {
		switch {
		case key.Matches(msg, m.keys.Yes):
			m.answerConsent(true)
		case key.Matches(msg, m.keys.No):
			m.answerConsent(false)
		case key.Matches(msg, m.keys.Quit):
			m.answerConsent(false)
			return m.requestQuit()
		}
		return m, nil
	}

	if m.confirmCancel {
		switch {
		case key.Matches(msg, m.keys.Yes):
			m.confirmCancel = false
			if m.cfg.Engine.Cancel() {
				m.status = cancellingStatus
			}
		case key.Matches(msg, m.keys.No):
			m.confirmCancel = false
		}
		return m, nil
	}

	if m.showHelp {
		switch {
		case key.Matches(msg, m.keys.Help), key.Matches(msg, m.keys.No), key.Matches(msg, m.keys.Quit):
			m.showHelp = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.requestQuit()
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		m.help.ShowAll = true
		return m, nil
	case key.Matches(msg, m.keys.History):
		m.showHistory = !m.showHistory
		if m.showHistory {
			return m, m.loadHistory()
		}
		return m, nil
	case m.showHistory && key.Matches(msg, m.keys.No):
		m.showHistory = false
		return m, nil
	case key.Matches(msg, m.keys.Recheck):
		return m.startCheck(false)
	case key.Matches(msg, m.keys.UpdateNow):
		if !m.postponed {
			return m, nil
		}
		return m.startCheck(true)
	case key.Matches(msg, m.keys.Cancel):
		if m.updating && m.cfg.Engine.IsBusy() {
			m.confirmCancel = true
		}
		return m, nil
	case key.Matches(msg, m.keys.Copy):
		return m.copyDetails()
	case key.Matches(msg, m.keys.Theme):
		name := theme.CycleTheme()
		if err := m.cfg.SaveTheme(name); err != nil {
			debug.Logf("ui: save theme: %v", err)
		}
		return m, m.showToast("Theme: " + name)
	}
	return m, nil
}

// requestQuit quits unless an update is running, in which case the close
// is vetoed with a warning.
func (m *App) requestQuit() (tea.Model, tea.Cmd) {
	if m.cfg.Engine.IsBusy() {
		return m, m.showToast(closeVetoWarning)
	}
	m.quitting = true
	return m, tea.Quit
}

func (m *App) startCheck(acceptConsent bool) (tea.Model, tea.Cmd) {
	if m.paused {
		return m, m.showToast(controlsDisabled)
	}
	if m.cfg.Engine.IsBusy() || m.checking {
		return m, nil
	}
	if acceptConsent {
		m.cfg.Notifier.AcceptNext()
	}
	m.checking = true
	m.status = initialStatus
	engine, ctx := m.cfg.Engine, m.ctx
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		return checkDoneMsg{result: engine.CheckForUpdates(ctx)}
	})
}

func (m *App) answerConsent(ok bool) {
	if m.consent == nil {
		return
	}
	m.consent.reply <- ok
	m.consent = nil
}

func (m *App) copyDetails() (tea.Model, tea.Cmd) {
	if err := m.cfg.Clipboard(m.versionDetails()); err != nil {
		debug.Logf("ui: copy to clipboard: %v", err)
		return m, m.showToast("Copy failed")
	}
	return m, m.showToast("Copied version details")
}

func (m *App) versionDetails() string {
	latest := "unknown"
	if m.latestKnown {
		latest = m.latest.String()
	}
	return fmt.Sprintf("Current version: %s\nLatest version: %s\nStatus: %s", m.current, latest, m.status)
}

func (m *App) showToast(text string) tea.Cmd {
	m.toast = text
	m.toastUntil = m.now().Add(toastDuration)
	return scheduleToastTick()
}

func (m *App) loadHistory() tea.Cmd {
	src, ctx := m.cfg.History, m.ctx
	if src == nil {
		m.historyContent = historyUnavailable
		return nil
	}
	return func() tea.Msg {
		events, err := src.Recent(ctx, historyLimit)
		return historyLoadedMsg{events: events, err: err}
	}
}

// QuitFilter vetoes quit requests that do not come from the shell itself,
// such as SIGTERM, while an update is running. Pass it to tea.WithFilter.
func QuitFilter(model tea.Model, msg tea.Msg) tea.Msg {
	switch msg.(type) {
	case tea.QuitMsg, tea.InterruptMsg:
	default:
		return msg
	}
	app, ok := model.(*App)
	if !ok || app.quitting || !app.cfg.Engine.IsBusy() {
		return msg
	}
	return closeVetoedMsg{}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
