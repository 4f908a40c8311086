package update

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeTransport struct {
	mu         sync.Mutex
	text       string
	textCalls  atomic.Int32
	binCalls   atomic.Int32
	onText     func()
	fetchBytes func(ctx context.Context, url, dst string, onProgress func(int)) error
}

func (f *fakeTransport) FetchText(ctx context.Context, url string) string {
	f.textCalls.Add(1)
	if f.onText != nil {
		f.onText()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text
}

func (f *fakeTransport) FetchBinary(ctx context.Context, url, dst string, onProgress func(int)) error {
	f.binCalls.Add(1)
	if f.fetchBytes != nil {
		return f.fetchBytes(ctx, url, dst, onProgress)
	}
	if err := os.WriteFile(dst, []byte("payload"), 0600); err != nil {
		return err
	}
	onProgress(100)
	return nil
}

type fakeInstaller struct {
	mu        sync.Mutex
	installed []string
	err       error
	hook      func()
}

func (f *fakeInstaller) Install(path string) error {
	if f.hook != nil {
		f.hook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.installed = append(f.installed, path)
	return f.err
}

func (f *fakeInstaller) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.installed)
}

type recordingNotifier struct {
	mu       sync.Mutex
	statuses []string
	progress []int
	current  Version
	latest   Version
	entered  int
	exited   int
	prompts  int
	consent  bool
}

func (n *recordingNotifier) ShowVersions(current, latest Version) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current, n.latest = current, latest
}

func (n *recordingNotifier) SetStatus(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, text)
}

func (n *recordingNotifier) SetProgress(p int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.progress = append(n.progress, p)
}

func (n *recordingNotifier) EnterUpdatingMode() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.entered++
}

func (n *recordingNotifier) ExitUpdatingMode() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.exited++
}

func (n *recordingNotifier) PromptUserConsent(ctx context.Context, latest Version) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.prompts++
	return n.consent
}

func (n *recordingNotifier) snapshot() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.statuses...)
}

type memoryRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *memoryRecorder) Record(ctx context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *memoryRecorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []EventKind
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

type fakeTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }
func (f *fakeTicker) Stop()               { f.stopped.Store(true) }

type harness struct {
	engine     *Engine
	transport  *fakeTransport
	installer  *fakeInstaller
	notifier   *recordingNotifier
	recorder   *memoryRecorder
	terminated atomic.Int32
	dir        string
}

func newHarness(t *testing.T, manifest string) *harness {
	t.Helper()
	h := &harness{
		transport: &fakeTransport{text: manifest},
		installer: &fakeInstaller{},
		notifier:  &recordingNotifier{},
		recorder:  &memoryRecorder{},
		dir:       t.TempDir(),
	}
	engine, err := NewEngine(EngineConfig{
		ManifestURL:    "http://updates.test/latest.txt",
		CurrentVersion: MustParseVersion("1.0.0.0"),
		Transport:      h.transport,
		Installer:      h.installer,
		Notifier:       h.notifier,
		Recorder:       h.recorder,
		DownloadDir:    h.dir,
		Terminate:      func() { h.terminated.Add(1) },
		Sleep:          func(time.Duration) {},
	})
	if err != nil {
		t.Fatalf("NewEngine() error: %v", err)
	}
	h.engine = engine
	return h
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestNewEngineValidatesConfig(t *testing.T) {
	base := EngineConfig{
		ManifestURL: "http://x",
		Transport:   &fakeTransport{},
		Installer:   &fakeInstaller{},
		Terminate:   func() {},
	}

	tests := []struct {
		name   string
		mutate func(*EngineConfig)
	}{
		{"missing url", func(c *EngineConfig) { c.ManifestURL = "" }},
		{"missing transport", func(c *EngineConfig) { c.Transport = nil }},
		{"missing installer", func(c *EngineConfig) { c.Installer = nil }},
		{"missing terminate", func(c *EngineConfig) { c.Terminate = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			if _, err := NewEngine(cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	e, err := NewEngine(base)
	if err != nil {
		t.Fatalf("NewEngine(base) error: %v", err)
	}
	if e.cfg.CheckInterval != DefaultCheckInterval {
		t.Errorf("CheckInterval = %v, want %v", e.cfg.CheckInterval, DefaultCheckInterval)
	}
	if _, ok := e.cfg.Notifier.(NopNotifier); !ok {
		t.Errorf("expected NopNotifier default, got %T", e.cfg.Notifier)
	}
}

func TestCheckUpToDateEmitsOnlyUpToDate(t *testing.T) {
	h := newHarness(t, "http://x/u.exe\n1.0.0.0\npatch\n")

	if got := h.engine.CheckForUpdates(context.Background()); got != CheckUpToDate {
		t.Fatalf("CheckForUpdates() = %s, want up-to-date", got)
	}
	h.engine.Wait()

	if got := h.notifier.snapshot(); !reflect.DeepEqual(got, []string{StatusUpToDate}) {
		t.Fatalf("statuses = %q", got)
	}
	if h.transport.binCalls.Load() != 0 {
		t.Fatal("up-to-date check must never download")
	}
	if h.notifier.latest != MustParseVersion("1.0.0.0") {
		t.Errorf("latest shown = %s", h.notifier.latest)
	}
	if h.engine.Phase() != PhaseIdle {
		t.Errorf("Phase() = %s, want idle", h.engine.Phase())
	}
}

func TestCheckOlderRemoteIsUpToDate(t *testing.T) {
	h := newHarness(t, "http://x/u.exe\n0.9\nmajor\n")
	if got := h.engine.CheckForUpdates(context.Background()); got != CheckUpToDate {
		t.Fatalf("CheckForUpdates() = %s", got)
	}
	if h.notifier.prompts != 0 {
		t.Fatal("must not prompt for an older version")
	}
}

func TestCheckFailures(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		result   CheckResult
		status   string
		event    EventKind
	}{
		{"empty response", "", CheckFailed, StatusCheckFailed, EventCheckFailed},
		{"two lines", "http://x/u.exe\n2.0\n", CheckInvalid, StatusInvalidManifest, EventInvalidManifest},
		{"bad version", "http://x/u.exe\nv2\npatch\n", CheckInvalid, StatusInvalidManifest, EventInvalidManifest},
		{"whitespace only", " \n\t\n", CheckInvalid, StatusInvalidManifest, EventInvalidManifest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.manifest)
			if got := h.engine.CheckForUpdates(context.Background()); got != tt.result {
				t.Fatalf("CheckForUpdates() = %s, want %s", got, tt.result)
			}
			if got := h.notifier.snapshot(); !reflect.DeepEqual(got, []string{tt.status}) {
				t.Fatalf("statuses = %q", got)
			}
			if got := h.recorder.kinds(); !reflect.DeepEqual(got, []EventKind{tt.event}) {
				t.Fatalf("events = %v", got)
			}
			if h.transport.binCalls.Load() != 0 {
				t.Fatal("failed check must not download")
			}
		})
	}
}

func TestPatchUpdateStartsWithoutPrompt(t *testing.T) {
	h := newHarness(t, "http://x/u.exe\n1.0.0.1\nPatch\n")

	if got := h.engine.CheckForUpdates(context.Background()); got != CheckUpdateStarted {
		t.Fatalf("CheckForUpdates() = %s", got)
	}
	h.engine.Wait()

	if h.notifier.prompts != 0 {
		t.Fatal("patch update must not prompt")
	}
	want := []string{StatusAutoUpdating, StatusDownloading, StatusPreparingInstaller, StatusRestarting}
	if got := h.notifier.snapshot(); !reflect.DeepEqual(got, want) {
		t.Fatalf("statuses = %q, want %q", got, want)
	}
	if h.installer.calls() != 1 {
		t.Fatalf("installer calls = %d, want 1", h.installer.calls())
	}
	if !strings.HasPrefix(filepath.Base(h.installer.installed[0]), "update_") {
		t.Errorf("unexpected temp name %q", h.installer.installed[0])
	}
	if filepath.Dir(h.installer.installed[0]) != h.dir {
		t.Errorf("download not placed in download dir: %q", h.installer.installed[0])
	}
	if h.terminated.Load() != 1 {
		t.Fatal("expected termination after the helper launched")
	}
	if h.notifier.entered != 1 {
		t.Errorf("EnterUpdatingMode calls = %d", h.notifier.entered)
	}
	if h.engine.Phase() != PhaseRelaunching {
		t.Errorf("Phase() = %s, want relaunching", h.engine.Phase())
	}
	if !h.engine.IsBusy() {
		t.Error("engine must stay busy until the process exits")
	}
}

func TestMajorUpdateRequiresConsent(t *testing.T) {
	t.Run("declined", func(t *testing.T) {
		h := newHarness(t, "http://x/u.exe\n2.0.0.0\nMAJOR\n")
		if got := h.engine.CheckForUpdates(context.Background()); got != CheckDeclined {
			t.Fatalf("CheckForUpdates() = %s", got)
		}
		if h.notifier.prompts != 1 {
			t.Fatalf("prompts = %d, want 1", h.notifier.prompts)
		}
		if got := h.notifier.snapshot(); !reflect.DeepEqual(got, []string{StatusPostponed}) {
			t.Fatalf("statuses = %q", got)
		}
		if h.transport.binCalls.Load() != 0 {
			t.Fatal("declined update must not download")
		}
		if h.engine.IsBusy() {
			t.Fatal("declined update must not mark the engine busy")
		}
	})

	t.Run("accepted", func(t *testing.T) {
		h := newHarness(t, "http://x/u.exe\n2.0.0.0\nmajor\n")
		h.notifier.consent = true
		if got := h.engine.CheckForUpdates(context.Background()); got != CheckUpdateStarted {
			t.Fatalf("CheckForUpdates() = %s", got)
		}
		h.engine.Wait()
		if h.notifier.prompts != 1 {
			t.Fatalf("prompts = %d, want 1", h.notifier.prompts)
		}
		if h.transport.binCalls.Load() != 1 {
			t.Fatalf("downloads = %d, want 1", h.transport.binCalls.Load())
		}
	})
}

func TestBeginUpdateIsSingleFlight(t *testing.T) {
	h := newHarness(t, "")
	release := make(chan struct{})
	h.transport.fetchBytes = func(ctx context.Context, url, dst string, onProgress func(int)) error {
		<-release
		return os.WriteFile(dst, []byte("x"), 0600)
	}

	var started atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if h.engine.BeginUpdate("http://x/u.exe") {
				started.Add(1)
			}
		}()
	}
	wg.Wait()
	close(release)
	h.engine.Wait()

	if started.Load() != 1 {
		t.Fatalf("BeginUpdate accepted %d times, want 1", started.Load())
	}
	if h.transport.binCalls.Load() != 1 {
		t.Fatalf("downloads = %d, want 1", h.transport.binCalls.Load())
	}
	if h.installer.calls() != 1 {
		t.Fatalf("installs = %d, want 1", h.installer.calls())
	}
}

func TestCheckSkippedWhileUpdating(t *testing.T) {
	h := newHarness(t, "http://x/u.exe\n1.0.0.1\npatch\n")
	release := make(chan struct{})
	h.transport.fetchBytes = func(ctx context.Context, url, dst string, onProgress func(int)) error {
		<-release
		return os.WriteFile(dst, []byte("x"), 0600)
	}

	if !h.engine.BeginUpdate("http://x/u.exe") {
		t.Fatal("BeginUpdate() = false")
	}
	if got := h.engine.CheckForUpdates(context.Background()); got != CheckSkipped {
		t.Fatalf("CheckForUpdates() while busy = %s, want skipped", got)
	}
	if h.transport.textCalls.Load() != 0 {
		t.Fatal("manifest fetched while an update was running")
	}
	close(release)
	h.engine.Wait()
}

func TestDownloadFailureCleansUp(t *testing.T) {
	h := newHarness(t, "")
	var partial string
	h.transport.fetchBytes = func(ctx context.Context, url, dst string, onProgress func(int)) error {
		partial = dst
		if err := os.WriteFile(dst, []byte("half"), 0600); err != nil {
			return err
		}
		onProgress(40)
		return transportError("download update", errors.New("connection reset"))
	}

	if !h.engine.BeginUpdate("http://x/u.exe") {
		t.Fatal("BeginUpdate() = false")
	}
	h.engine.Wait()

	if _, err := os.Stat(partial); !os.IsNotExist(err) {
		t.Fatalf("partial download should be removed, stat err = %v", err)
	}
	statuses := h.notifier.snapshot()
	last := statuses[len(statuses)-1]
	if !strings.HasPrefix(last, "Error: ") || !strings.Contains(last, "connection reset") {
		t.Fatalf("last status = %q", last)
	}
	if h.engine.IsBusy() {
		t.Fatal("engine should be idle after a failed update")
	}
	if h.terminated.Load() != 0 {
		t.Fatal("failed update must not terminate the application")
	}
	if h.notifier.exited != 1 {
		t.Fatalf("ExitUpdatingMode calls = %d, want 1", h.notifier.exited)
	}
	if got := h.recorder.kinds(); !reflect.DeepEqual(got, []EventKind{EventUpdateStarted, EventUpdateFailed}) {
		t.Fatalf("events = %v", got)
	}

	// A later attempt is accepted again.
	h.transport.fetchBytes = nil
	if !h.engine.BeginUpdate("http://x/u.exe") {
		t.Fatal("BeginUpdate() after failure = false")
	}
	h.engine.Wait()
}

func TestInstallFailureIsSurfaced(t *testing.T) {
	h := newHarness(t, "")
	h.installer.err = installError("launch helper script", errors.New("permission denied"))

	h.engine.BeginUpdate("http://x/u.exe")
	h.engine.Wait()

	statuses := h.notifier.snapshot()
	last := statuses[len(statuses)-1]
	if !strings.Contains(last, "permission denied") {
		t.Fatalf("last status = %q", last)
	}
	if h.terminated.Load() != 0 {
		t.Fatal("must not terminate when the helper failed to launch")
	}
	if _, err := os.Stat(h.installer.installed[0]); !os.IsNotExist(err) {
		t.Fatalf("downloaded file should be removed, stat err = %v", err)
	}
}

func TestCancelStopsDownload(t *testing.T) {
	h := newHarness(t, "")
	downloading := make(chan struct{})
	h.transport.fetchBytes = func(ctx context.Context, url, dst string, onProgress func(int)) error {
		if err := os.WriteFile(dst, []byte("half"), 0600); err != nil {
			return err
		}
		close(downloading)
		<-ctx.Done()
		return transportError("download update", ctx.Err())
	}

	if h.engine.Cancel() {
		t.Fatal("Cancel() with nothing running should return false")
	}
	h.engine.BeginUpdate("http://x/u.exe")
	<-downloading
	if !h.engine.Cancel() {
		t.Fatal("Cancel() during download = false")
	}
	h.engine.Wait()

	statuses := h.notifier.snapshot()
	if last := statuses[len(statuses)-1]; last != StatusCancelled {
		t.Fatalf("last status = %q, want %q", last, StatusCancelled)
	}
	if h.installer.calls() != 0 {
		t.Fatal("cancelled update must not install")
	}
	if h.engine.IsBusy() {
		t.Fatal("engine still busy after cancel")
	}
	kinds := h.recorder.kinds()
	if kinds[len(kinds)-1] != EventUpdateCancelled {
		t.Fatalf("events = %v", kinds)
	}
}

func TestCancelIgnoredOnceInstalling(t *testing.T) {
	h := newHarness(t, "")
	var cancelled atomic.Bool
	h.installer.hook = func() {
		cancelled.Store(h.engine.Cancel())
	}

	h.engine.BeginUpdate("http://x/u.exe")
	h.engine.Wait()

	if cancelled.Load() {
		t.Fatal("Cancel() should be refused while installing")
	}
	if h.terminated.Load() != 1 {
		t.Fatal("install should complete")
	}
}

func TestProgressNeverDecreases(t *testing.T) {
	h := newHarness(t, "")
	h.transport.fetchBytes = func(ctx context.Context, url, dst string, onProgress func(int)) error {
		for _, p := range []int{10, 50, 40, 50, 120} {
			onProgress(p)
		}
		return os.WriteFile(dst, []byte("x"), 0600)
	}

	h.engine.BeginUpdate("http://x/u.exe")
	h.engine.Wait()

	if want := []int{10, 50, 50, 100}; !reflect.DeepEqual(h.notifier.progress, want) {
		t.Fatalf("progress = %v, want %v", h.notifier.progress, want)
	}
}

func TestCheckRecoversFromPanic(t *testing.T) {
	h := newHarness(t, "http://x/u.exe\n1.0\npatch\n")
	h.transport.onText = func() { panic("boom") }

	if got := h.engine.CheckForUpdates(context.Background()); got != CheckFailed {
		t.Fatalf("CheckForUpdates() = %s", got)
	}
	if got := h.notifier.snapshot(); !reflect.DeepEqual(got, []string{"Update check failed: boom"}) {
		t.Fatalf("statuses = %q", got)
	}
}

func TestRunChecksImmediatelyAndOnTicks(t *testing.T) {
	h := newHarness(t, "http://x/u.exe\n1.0.0.0\npatch\n")
	ticker := &fakeTicker{ch: make(chan time.Time)}
	h.engine.cfg.NewTicker = func(d time.Duration) Ticker {
		if d != DefaultCheckInterval {
			t.Errorf("ticker interval = %v", d)
		}
		return ticker
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.engine.Run(ctx)
		close(done)
	}()

	eventually(t, func() bool { return h.transport.textCalls.Load() == 1 })

	ticker.ch <- time.Now()
	eventually(t, func() bool { return h.transport.textCalls.Load() == 2 })

	// Ticks are ignored while an update owns the engine.
	h.engine.updating.Store(true)
	ticker.ch <- time.Now()
	ticker.ch <- time.Now()

	cancel()
	<-done
	h.engine.Wait()
	if got := h.transport.textCalls.Load(); got != 2 {
		t.Fatalf("manifest fetched %d times, want 2", got)
	}
	if !ticker.stopped.Load() {
		t.Error("ticker not stopped when Run returned")
	}
}

// heldConsentNotifier keeps the consent prompt open until released.
type heldConsentNotifier struct {
	*recordingNotifier
	opened  chan struct{}
	release chan bool
}

func (n *heldConsentNotifier) PromptUserConsent(ctx context.Context, latest Version) bool {
	n.mu.Lock()
	n.prompts++
	n.mu.Unlock()
	n.opened <- struct{}{}
	return <-n.release
}

func TestOpenConsentPromptIsNotAnsweredByLaterChecks(t *testing.T) {
	h := newHarness(t, "http://x/u.exe\n2.0.0.0\nmajor\n")
	notifier := &heldConsentNotifier{
		recordingNotifier: h.notifier,
		opened:            make(chan struct{}, 1),
		release:           make(chan bool),
	}
	h.engine.cfg.Notifier = notifier
	ticker := &fakeTicker{ch: make(chan time.Time)}
	h.engine.cfg.NewTicker = func(time.Duration) Ticker { return ticker }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.engine.Run(ctx)
		close(done)
	}()

	<-notifier.opened
	ticker.ch <- time.Now()
	ticker.ch <- time.Now()
	cancel()
	<-done

	if got := h.engine.CheckForUpdates(context.Background()); got != CheckSkipped {
		t.Fatalf("CheckForUpdates() with prompt open = %s, want %s", got, CheckSkipped)
	}
	if got := h.engine.Phase(); got != PhaseAwaitingConsent {
		t.Fatalf("phase = %s, want %s", got, PhaseAwaitingConsent)
	}

	notifier.release <- false
	h.engine.Wait()

	if got := h.transport.textCalls.Load(); got != 2 {
		t.Fatalf("manifest fetched %d times, want 2", got)
	}
	if h.notifier.prompts != 1 {
		t.Fatalf("prompts = %d, want 1", h.notifier.prompts)
	}
	if got := h.notifier.snapshot(); !reflect.DeepEqual(got, []string{StatusPostponed}) {
		t.Fatalf("statuses = %q", got)
	}
	if got := h.recorder.kinds(); !reflect.DeepEqual(got, []EventKind{EventDeclined}) {
		t.Fatalf("events = %v", got)
	}

	// The prompt is closed, so the next check may ask again.
	go func() { <-notifier.opened; notifier.release <- false }()
	if got := h.engine.CheckForUpdates(context.Background()); got != CheckDeclined {
		t.Fatalf("CheckForUpdates() after prompt closed = %s, want %s", got, CheckDeclined)
	}
}

func TestRunSurvivesFailedChecks(t *testing.T) {
	h := newHarness(t, "")
	ticker := &fakeTicker{ch: make(chan time.Time)}
	h.engine.cfg.NewTicker = func(time.Duration) Ticker { return ticker }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.engine.Run(ctx)
		close(done)
	}()

	for i := 1; i <= 3; i++ {
		eventually(t, func() bool { return h.transport.textCalls.Load() == int32(i) })
		ticker.ch <- time.Now()
	}
	eventually(t, func() bool { return h.transport.textCalls.Load() == 4 })

	cancel()
	<-done
	h.engine.Wait()
}

func TestReportPreviousInstall(t *testing.T) {
	h := newHarness(t, "")
	resultPath := filepath.Join(h.dir, "app.update-result")
	h.engine.cfg.InstallResultPath = resultPath

	if _, ok := h.engine.ReportPreviousInstall(context.Background()); ok {
		t.Fatal("expected no result before the helper ran")
	}

	if err := os.WriteFile(resultPath, []byte("ok\n"), 0600); err != nil {
		t.Fatal(err)
	}
	res, ok := h.engine.ReportPreviousInstall(context.Background())
	if !ok || !res.Success {
		t.Fatalf("ReportPreviousInstall() = %+v, %v", res, ok)
	}
	if got := h.notifier.snapshot(); !reflect.DeepEqual(got, []string{"Updated to version 1.0.0.0"}) {
		t.Fatalf("statuses = %q", got)
	}
	if _, err := os.Stat(resultPath); !os.IsNotExist(err) {
		t.Fatal("result file should be consumed")
	}
	if got := h.recorder.kinds(); !reflect.DeepEqual(got, []EventKind{EventInstallSucceeded}) {
		t.Fatalf("events = %v", got)
	}
}

func TestProbeHasNoSideEffects(t *testing.T) {
	h := newHarness(t, "http://x/u.exe\n1.2\nmajor\n")

	m, newer, err := h.engine.Probe(context.Background())
	if err != nil {
		t.Fatalf("Probe() error: %v", err)
	}
	if !newer || m.Kind != KindMajor || m.LatestVersion != MustParseVersion("1.2") {
		t.Fatalf("Probe() = %+v, newer=%v", m, newer)
	}
	if len(h.notifier.snapshot()) != 0 || len(h.recorder.kinds()) != 0 {
		t.Fatal("Probe must not notify or record")
	}
}
