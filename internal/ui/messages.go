package ui

import (
	"time"

	"autoupdater/internal/control"
	"autoupdater/internal/update"

	tea "github.com/charmbracelet/bubbletea"
)

// Messages sent by ProgramNotifier from engine goroutines.
type versionsMsg struct {
	current update.Version
	latest  update.Version
}

type statusMsg struct{ text string }

type progressMsg struct{ percent int }

type updatingModeMsg struct{ active bool }

// consentRequestMsg asks the user to approve a major update. The engine
// goroutine blocks until a value is sent on reply.
type consentRequestMsg struct {
	latest update.Version
	reply  chan<- bool
}

type controlMsg struct{ change control.Change }

// terminateMsg quits unconditionally; the update helper is waiting on us.
type terminateMsg struct{}

// closeVetoedMsg replaces a quit request that arrived while updating.
type closeVetoedMsg struct{}

type checkDoneMsg struct{ result update.CheckResult }

type historyLoadedMsg struct {
	events []update.Event
	err    error
}

type toastTickMsg struct{}

const toastDuration = 2 * time.Second

func scheduleToastTick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(time.Time) tea.Msg {
		return toastTickMsg{}
	})
}

// stopDelay leaves the out-of-service notice on screen before exiting.
const stopDelay = 2 * time.Second

func scheduleStop() tea.Cmd {
	return tea.Tick(stopDelay, func(time.Time) tea.Msg {
		return terminateMsg{}
	})
}
