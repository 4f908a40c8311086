// Package control polls a remote control file that lets operators pause or
// stop every running copy of the application.
//
// The file holds a single word. ACTIVE enables the update controls, PAUSED
// disables them and shows a maintenance notice once per pause, and STOPPED
// tells the shell to close. Anything else is ignored.
package control

import (
	"context"
	"strings"
	"time"

	"autoupdater/internal/debug"
)

// DefaultInterval matches the two second poll the control file was designed for.
const DefaultInterval = 2 * time.Second

// Notices shown to the user.
const (
	MaintenanceNotice  = "The application is currently under maintenance. Please try again later."
	OutOfServiceNotice = "This application is currently out of service. Please try again later."
)

// State is a parsed control file value.
type State int

const (
	StateUnknown State = iota
	StateActive
	StatePaused
	StateStopped
)

// String returns the control file token for s.
func (s State) String() string {
	switch s {
	case StateActive:
		return "ACTIVE"
	case StatePaused:
		return "PAUSED"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// ParseState trims and upper-cases raw before matching it.
func ParseState(raw string) State {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "ACTIVE":
		return StateActive
	case "PAUSED":
		return StatePaused
	case "STOPPED":
		return StateStopped
	default:
		return StateUnknown
	}
}

// Change is delivered to the handler when the control value changes.
// Notice is non-empty when the user should be told about it.
type Change struct {
	State  State
	Notice string
}

// Fetcher is the subset of update.Transport the monitor needs.
type Fetcher interface {
	FetchText(ctx context.Context, url string) string
}

// Monitor polls the control URL and reports changes.
type Monitor struct {
	url      string
	interval time.Duration
	fetcher  Fetcher
	handler  func(Change)

	last           string
	noticeShown    bool
	stopDispatched bool
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithInterval sets the poll interval.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// NewMonitor creates a monitor. handler is called from the monitor's goroutine.
func NewMonitor(url string, fetcher Fetcher, handler func(Change), opts ...Option) *Monitor {
	m := &Monitor{
		url:      url,
		interval: DefaultInterval,
		fetcher:  fetcher,
		handler:  handler,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Poll fetches the control file once and dispatches a change if the value
// differs from the previous poll. It reports whether a change was dispatched.
func (m *Monitor) Poll(ctx context.Context) (Change, bool) {
	raw := m.fetcher.FetchText(ctx, m.url)
	if strings.TrimSpace(raw) == "" {
		debug.Logf("control: no status from %s, keeping %q", m.url, m.last)
		return Change{}, false
	}

	status := strings.ToUpper(strings.TrimSpace(raw))
	if status == m.last {
		return Change{}, false
	}
	m.last = status

	change := Change{State: ParseState(status)}
	switch change.State {
	case StateStopped:
		change.Notice = OutOfServiceNotice
		m.stopDispatched = true
	case StatePaused:
		if !m.noticeShown {
			change.Notice = MaintenanceNotice
			m.noticeShown = true
		}
	case StateActive:
		m.noticeShown = false
	default:
		debug.Logf("control: ignoring unknown status %q", status)
		return Change{}, false
	}

	debug.Logf("control: status changed to %s", change.State)
	if m.handler != nil {
		m.handler(change)
	}
	return change, true
}

// Run polls immediately and then every interval until ctx is done or a
// STOPPED state has been dispatched.
func (m *Monitor) Run(ctx context.Context) {
	m.Poll(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for !m.stopDispatched {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Poll(ctx)
		}
	}
}
