package update

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"autoupdater/internal/debug"

	"github.com/google/uuid"
)

// Default engine settings.
const (
	DefaultCheckInterval = 5 * time.Minute
	DefaultRestartDelay  = 500 * time.Millisecond
)

// Phase is the engine's position in the check/update state machine.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseChecking
	PhaseUpToDate
	PhaseAwaitingConsent
	PhaseDownloading
	PhaseInstalling
	PhaseRelaunching
)

// String returns the string representation of a Phase.
func (p Phase) String() string {
	switch p {
	case PhaseChecking:
		return "checking"
	case PhaseUpToDate:
		return "up-to-date"
	case PhaseAwaitingConsent:
		return "awaiting-consent"
	case PhaseDownloading:
		return "downloading"
	case PhaseInstalling:
		return "installing"
	case PhaseRelaunching:
		return "relaunching"
	default:
		return "idle"
	}
}

// CheckResult summarizes what a single CheckForUpdates call did.
type CheckResult int

const (
	// CheckSkipped means an update was already running, so nothing was fetched.
	CheckSkipped CheckResult = iota
	CheckFailed
	CheckInvalid
	CheckUpToDate
	CheckDeclined
	CheckUpdateStarted
	// CheckUpdateRejected means the single-flight guard refused a second update.
	CheckUpdateRejected
)

// String returns the string representation of a CheckResult.
func (r CheckResult) String() string {
	switch r {
	case CheckFailed:
		return "failed"
	case CheckInvalid:
		return "invalid"
	case CheckUpToDate:
		return "up-to-date"
	case CheckDeclined:
		return "declined"
	case CheckUpdateStarted:
		return "update-started"
	case CheckUpdateRejected:
		return "update-rejected"
	default:
		return "skipped"
	}
}

// Ticker abstracts time.Ticker so the periodic trigger can be driven by tests.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

func newRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// EngineConfig wires the engine's collaborators.
type EngineConfig struct {
	ManifestURL    string
	CurrentVersion Version
	Transport      Transport
	Installer      Installer
	Notifier       Notifier
	// Terminate asks the host to exit once the helper has been launched.
	Terminate func()

	// Optional.
	Recorder          Recorder
	Lock              ProcessLock
	CheckInterval     time.Duration
	RestartDelay      time.Duration
	DownloadDir       string
	InstallResultPath string
	NewTicker         func(time.Duration) Ticker
	Sleep             func(time.Duration)
	Now               func() time.Time
}

// session is the state of the single active download/install attempt.
type session struct {
	url        string
	tempPath   string
	cancel     context.CancelFunc
	progress   int
	installing bool
}

// Engine owns the check → classify → fetch → replace state machine.
type Engine struct {
	cfg EngineConfig

	updating  atomic.Bool
	prompting atomic.Bool
	phase     atomic.Int32

	mu      sync.Mutex
	session *session

	wg sync.WaitGroup
}

// NewEngine validates cfg and fills in defaults.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.ManifestURL == "" {
		return nil, fmt.Errorf("manifest url is required")
	}
	if cfg.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if cfg.Installer == nil {
		return nil, fmt.Errorf("installer is required")
	}
	if cfg.Terminate == nil {
		return nil, fmt.Errorf("terminate func is required")
	}
	if cfg.Notifier == nil {
		cfg.Notifier = NopNotifier{}
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultCheckInterval
	}
	if cfg.RestartDelay < 0 {
		cfg.RestartDelay = 0
	}
	if cfg.DownloadDir == "" {
		cfg.DownloadDir = os.TempDir()
	}
	if cfg.NewTicker == nil {
		cfg.NewTicker = newRealTicker
	}
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{cfg: cfg}, nil
}

// CurrentVersion returns the version the engine compares against.
func (e *Engine) CurrentVersion() Version {
	return e.cfg.CurrentVersion
}

// Phase returns the most recently entered phase.
func (e *Engine) Phase() Phase {
	return Phase(e.phase.Load())
}

// IsBusy reports whether an update is downloading or installing.
// Shells use it to veto closing the application.
func (e *Engine) IsBusy() bool {
	return e.updating.Load()
}

// Wait blocks until every background check and update has returned.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) setPhase(p Phase) {
	e.phase.Store(int32(p))
}

// Probe fetches and parses the manifest and reports whether it is newer than
// the running version. It has no side effects on the engine or notifier.
func (e *Engine) Probe(ctx context.Context) (Manifest, bool, error) {
	raw := e.cfg.Transport.FetchText(ctx, e.cfg.ManifestURL)
	if raw == "" {
		return Manifest{}, false, transportError("", ErrCheckFailed)
	}
	m, err := ParseManifest(raw)
	if err != nil {
		return Manifest{}, false, err
	}
	return m, e.cfg.CurrentVersion.LessThan(m.LatestVersion), nil
}

// CheckForUpdates runs one check cycle. It is safe to call concurrently and
// never panics into the caller; every failure becomes a status message.
func (e *Engine) CheckForUpdates(ctx context.Context) (result CheckResult) {
	if e.IsBusy() {
		debug.Logf("engine: check skipped, update in progress")
		return CheckSkipped
	}
	defer func() {
		if r := recover(); r != nil {
			debug.Logf("engine: check panicked: %v", r)
			e.cfg.Notifier.SetStatus(fmt.Sprintf("%s%v", statusCheckErrorPrefix, r))
			e.enterIdle()
			result = CheckFailed
		}
	}()

	e.setPhase(PhaseChecking)
	current := e.cfg.CurrentVersion

	m, newer, err := e.Probe(ctx)
	switch {
	case err != nil && IsFormatError(err):
		debug.Logf("engine: invalid manifest from %s: %v", e.cfg.ManifestURL, err)
		e.cfg.Notifier.SetStatus(StatusInvalidManifest)
		e.record(ctx, Event{Kind: EventInvalidManifest, FromVersion: current.String(), Detail: err.Error()})
		e.enterIdle()
		return CheckInvalid
	case err != nil:
		e.cfg.Notifier.SetStatus(StatusCheckFailed)
		e.record(ctx, Event{Kind: EventCheckFailed, FromVersion: current.String(), Detail: err.Error()})
		e.enterIdle()
		return CheckFailed
	}

	e.cfg.Notifier.ShowVersions(current, m.LatestVersion)

	if !newer {
		e.setPhase(PhaseUpToDate)
		e.cfg.Notifier.SetStatus(StatusUpToDate)
		e.record(ctx, Event{Kind: EventUpToDate, FromVersion: current.String(), ToVersion: m.LatestVersion.String()})
		e.enterIdle()
		return CheckUpToDate
	}

	if m.Kind == KindMajor {
		// Only one consent prompt may be open; a later check must not answer it.
		if !e.prompting.CompareAndSwap(false, true) {
			debug.Logf("engine: check skipped, consent prompt already open")
			e.setPhase(PhaseAwaitingConsent)
			return CheckSkipped
		}
		e.setPhase(PhaseAwaitingConsent)
		accepted := e.cfg.Notifier.PromptUserConsent(ctx, m.LatestVersion)
		e.prompting.Store(false)
		if !accepted {
			e.cfg.Notifier.SetStatus(StatusPostponed)
			e.record(ctx, Event{Kind: EventDeclined, FromVersion: current.String(), ToVersion: m.LatestVersion.String()})
			e.enterIdle()
			return CheckDeclined
		}
	}

	if !e.beginUpdate(m.DownloadURL, m.LatestVersion.String()) {
		e.enterIdle()
		return CheckUpdateRejected
	}
	return CheckUpdateStarted
}

// enterIdle returns to Idle unless an update took over the phase meanwhile.
func (e *Engine) enterIdle() {
	if !e.IsBusy() {
		e.setPhase(PhaseIdle)
	}
}

// BeginUpdate starts the download → install → relaunch sequence in the
// background. It returns false without doing anything when an update is
// already in progress.
func (e *Engine) BeginUpdate(url string) bool {
	return e.beginUpdate(url, "")
}

func (e *Engine) beginUpdate(url, toVersion string) bool {
	if !e.updating.CompareAndSwap(false, true) {
		debug.Logf("engine: update to %s rejected, %v", url, ErrUpdateInProgress)
		return false
	}

	if !e.acquireLock() {
		e.updating.Store(false)
		e.cfg.Notifier.SetStatus(StatusLockedElsewhere)
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{url: url, cancel: cancel}
	e.mu.Lock()
	e.session = s
	e.mu.Unlock()

	e.cfg.Notifier.EnterUpdatingMode()
	e.cfg.Notifier.SetStatus(StatusAutoUpdating)
	e.record(ctx, Event{Kind: EventUpdateStarted, FromVersion: e.cfg.CurrentVersion.String(), ToVersion: toVersion, Detail: url})

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer cancel()
		if err := e.runUpdate(ctx, s, toVersion); err != nil {
			e.failUpdate(s, toVersion, err)
		}
	}()
	return true
}

func (e *Engine) runUpdate(ctx context.Context, s *session, toVersion string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	e.setPhase(PhaseDownloading)
	e.cfg.Notifier.SetStatus(StatusDownloading)

	path := e.tempFilePath()
	e.mu.Lock()
	s.tempPath = path
	e.mu.Unlock()

	if err := e.cfg.Transport.FetchBinary(ctx, s.url, path, func(p int) {
		e.reportProgress(s, p)
	}); err != nil {
		return err
	}

	// Cancel is honoured up to this point; afterwards the helper owns the file.
	e.mu.Lock()
	if ctx.Err() != nil {
		e.mu.Unlock()
		return ErrCancelled
	}
	s.installing = true
	e.mu.Unlock()

	e.setPhase(PhaseInstalling)
	e.cfg.Notifier.SetStatus(StatusPreparingInstaller)
	if err := e.cfg.Installer.Install(path); err != nil {
		return err
	}
	e.record(ctx, Event{Kind: EventInstallerLaunched, FromVersion: e.cfg.CurrentVersion.String(), ToVersion: toVersion, Detail: path})

	e.setPhase(PhaseRelaunching)
	e.cfg.Notifier.SetStatus(StatusRestarting)
	e.cfg.Sleep(e.cfg.RestartDelay)
	e.cfg.Terminate()
	return nil
}

// reportProgress forwards download progress, never letting it go backwards.
func (e *Engine) reportProgress(s *session, p int) {
	if p > 100 {
		p = 100
	}
	if p < s.progress {
		return
	}
	s.progress = p
	e.cfg.Notifier.SetProgress(p)
}

func (e *Engine) failUpdate(s *session, toVersion string, err error) {
	kind := EventUpdateFailed
	status := statusErrorPrefix + err.Error()
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrCancelled) {
		kind = EventUpdateCancelled
		status = StatusCancelled
	}
	debug.Logf("engine: update from %s failed: %v", s.url, err)

	e.mu.Lock()
	tempPath := s.tempPath
	e.session = nil
	e.mu.Unlock()

	if tempPath != "" {
		if rmErr := os.Remove(tempPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			debug.Logf("engine: remove stray download %s: %v", tempPath, rmErr)
		}
	}

	e.cfg.Notifier.SetStatus(status)
	e.record(context.Background(), Event{Kind: kind, FromVersion: e.cfg.CurrentVersion.String(), ToVersion: toVersion, Detail: err.Error()})
	e.releaseLock()
	e.setPhase(PhaseIdle)
	e.updating.Store(false)
	e.cfg.Notifier.ExitUpdatingMode()
}

// acquireLock takes the cross-process update lock. A lock that cannot be
// checked at all does not block updates.
func (e *Engine) acquireLock() bool {
	if e.cfg.Lock == nil {
		return true
	}
	ok, err := e.cfg.Lock.TryLock()
	if err != nil {
		debug.Logf("engine: update lock unavailable, continuing: %v", err)
		return true
	}
	if !ok {
		debug.Logf("engine: update lock held by another process")
	}
	return ok
}

func (e *Engine) releaseLock() {
	if e.cfg.Lock == nil {
		return
	}
	if err := e.cfg.Lock.Unlock(); err != nil {
		debug.Logf("engine: release update lock: %v", err)
	}
}

// Cancel aborts an in-flight download. It returns false when nothing is
// downloading, including once the installer has taken over.
func (e *Engine) Cancel() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil || e.session.installing {
		return false
	}
	e.session.cancel()
	return true
}

// Run performs an initial check immediately and then one every
// CheckInterval until ctx is done. Ticks that arrive while an update is in
// progress or a consent prompt is open are ignored; a failed check never
// stops the loop.
func (e *Engine) Run(ctx context.Context) {
	e.spawnCheck(ctx)

	ticker := e.cfg.NewTicker(e.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if e.IsBusy() {
				debug.Logf("engine: periodic check suppressed while updating")
				continue
			}
			if e.prompting.Load() {
				debug.Logf("engine: periodic check suppressed while awaiting consent")
				continue
			}
			e.spawnCheck(ctx)
		}
	}
}

func (e *Engine) spawnCheck(ctx context.Context) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		result := e.CheckForUpdates(ctx)
		debug.Logf("engine: check finished: %s", result)
	}()
}

// ReportPreviousInstall surfaces the outcome written by the helper of a
// previous run, then removes the result file.
func (e *Engine) ReportPreviousInstall(ctx context.Context) (InstallResult, bool) {
	if e.cfg.InstallResultPath == "" {
		return InstallResult{}, false
	}
	res, ok, err := ReadInstallResult(e.cfg.InstallResultPath)
	if err != nil {
		debug.Logf("engine: read install result: %v", err)
		return InstallResult{}, false
	}
	if !ok {
		return InstallResult{}, false
	}
	if err := os.Remove(e.cfg.InstallResultPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		debug.Logf("engine: remove install result: %v", err)
	}

	current := e.cfg.CurrentVersion.String()
	if res.Success {
		e.cfg.Notifier.SetStatus("Updated to version " + current)
		e.record(ctx, Event{Kind: EventInstallSucceeded, ToVersion: current})
	} else {
		e.cfg.Notifier.SetStatus("Previous update failed: " + res.Detail)
		e.record(ctx, Event{Kind: EventInstallFailed, FromVersion: current, Detail: res.Detail})
	}
	return res, true
}

func (e *Engine) record(ctx context.Context, ev Event) {
	if e.cfg.Recorder == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = e.cfg.Now()
	}
	if err := e.cfg.Recorder.Record(ctx, ev); err != nil {
		debug.Logf("engine: record %s: %v", ev.Kind, err)
	}
}

// tempFilePath returns a fresh download path. UUIDv7 is time-ordered, so
// names never collide between runs.
func (e *Engine) tempFilePath() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	name := "update_" + id.String()
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(e.cfg.DownloadDir, name)
}
