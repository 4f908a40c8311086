package update

import "context"

// Notifier is the contract between the Engine and the shell presenting it.
// Implementations are called from background goroutines and must marshal
// onto their own event loop if they need single-threaded access.
type Notifier interface {
	ShowVersions(current, latest Version)
	SetStatus(text string)
	SetProgress(percent int)
	EnterUpdatingMode()
	ExitUpdatingMode()
	// PromptUserConsent blocks until the user answers or ctx is done.
	// A cancelled prompt counts as a refusal.
	PromptUserConsent(ctx context.Context, latest Version) bool
}

// Status texts emitted through Notifier.SetStatus.
const (
	StatusCheckFailed        = "Failed to check for updates"
	StatusInvalidManifest    = "Invalid update info format"
	StatusUpToDate           = "Your application is up to date"
	StatusPostponed          = "Update postponed by user."
	StatusAutoUpdating       = "Auto-Updating..."
	StatusDownloading        = "Downloading update..."
	StatusPreparingInstaller = "Preparing installer..."
	StatusRestarting         = "Restarting application..."
	StatusCancelled          = "Update cancelled"
	StatusLockedElsewhere    = "Another instance is already updating"
	statusErrorPrefix        = "Error: "
	statusCheckErrorPrefix   = "Update check failed: "
)

// NopNotifier discards every notification and declines every prompt.
type NopNotifier struct{}

func (NopNotifier) ShowVersions(Version, Version) {}
func (NopNotifier) SetStatus(string) {}
func (NopNotifier) SetProgress(int) {}
func (NopNotifier) EnterUpdatingMode() {}
func (NopNotifier) ExitUpdatingMode() {}
func (NopNotifier) PromptUserConsent(context.Context, Version) bool { return false }
