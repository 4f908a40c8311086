package update

import (
	"context"
	"time"
)

// EventKind names an outcome worth keeping in the update history.
type EventKind string

const (
	EventCheckFailed       EventKind = "check_failed"
	EventInvalidManifest   EventKind = "invalid_manifest"
	EventUpToDate          EventKind = "up_to_date"
	EventDeclined          EventKind = "declined"
	EventUpdateStarted     EventKind = "update_started"
	EventUpdateFailed      EventKind = "update_failed"
	EventUpdateCancelled   EventKind = "update_cancelled"
	EventInstallerLaunched EventKind = "installer_launched"
	EventInstallSucceeded  EventKind = "install_succeeded"
	EventInstallFailed     EventKind = "install_failed"
)

// Event is a single history record.
type Event struct {
	Kind        EventKind
	FromVersion string
	ToVersion   string
	Detail      string
	At          time.Time
}

// Recorder persists events. Implementations must be safe for concurrent use.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}
