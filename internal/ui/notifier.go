package ui

import (
	"context"
	"sync"
	"sync/atomic"

	"autoupdater/internal/control"
	"autoupdater/internal/update"

	tea "github.com/charmbracelet/bubbletea"
)

// Sender is satisfied by *tea.Program.
type Sender interface {
	Send(msg tea.Msg)
}

// ProgramNotifier implements update.Notifier by posting messages to the
// bubbletea event loop, so engine goroutines never touch UI state.
type ProgramNotifier struct {
	mu         sync.RWMutex
	sender     Sender
	acceptNext atomic.Bool
}

var _ update.Notifier = (*ProgramNotifier)(nil)

// NewProgramNotifier creates a notifier. Messages are dropped until Attach.
func NewProgramNotifier() *ProgramNotifier {
	return &ProgramNotifier{}
}

// Attach connects the notifier to a running program.
func (n *ProgramNotifier) Attach(s Sender) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sender = s
}

func (n *ProgramNotifier) send(msg tea.Msg) bool {
	n.mu.RLock()
	s := n.sender
	n.mu.RUnlock()
	if s == nil {
		return false
	}
	s.Send(msg)
	return true
}

func (n *ProgramNotifier) ShowVersions(current, latest update.Version) {
	n.send(versionsMsg{current: current, latest: latest})
}

func (n *ProgramNotifier) SetStatus(text string) {
	n.send(statusMsg{text: text})
}

func (n *ProgramNotifier) SetProgress(percent int) {
	n.send(progressMsg{percent: percent})
}

func (n *ProgramNotifier) EnterUpdatingMode() {
	n.send(updatingModeMsg{active: true})
}

func (n *ProgramNotifier) ExitUpdatingMode() {
	n.send(updatingModeMsg{active: false})
}

// PromptUserConsent shows the major-update prompt and waits for an answer.
// A pending AcceptNext answers yes without asking.
func (n *ProgramNotifier) PromptUserConsent(ctx context.Context, latest update.Version) bool {
	if n.acceptNext.CompareAndSwap(true, false) {
		return true
	}
	reply := make(chan bool, 1)
	if !n.send(consentRequestMsg{latest: latest, reply: reply}) {
		return false
	}
	select {
	case ok := <-reply:
		return ok
	case <-ctx.Done():
		return false
	}
}

// AcceptNext pre-approves the next consent prompt. Used by "update now"
// after the user postponed a major update.
func (n *ProgramNotifier) AcceptNext() {
	n.acceptNext.Store(true)
}

// ControlChanged forwards a control monitor change to the UI.
func (n *ProgramNotifier) ControlChanged(change control.Change) {
	n.send(controlMsg{change: change})
}

// Terminate asks the UI to exit even if an update is in progress.
func (n *ProgramNotifier) Terminate() {
	n.send(terminateMsg{})
}
