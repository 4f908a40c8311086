package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"autoupdater/internal/config"
	"autoupdater/internal/control"
	"autoupdater/internal/debug"
	"autoupdater/internal/history"
	"autoupdater/internal/ui"
	"autoupdater/internal/ui/theme"
	"autoupdater/internal/update"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

// historyRetention bounds how long update events are kept.
const historyRetention = 180 * 24 * time.Hour

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if err := config.Initialize(); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error initializing config: %v\n", err)
		return 1
	}

	fs := flag.NewFlagSet("autoupdater", flag.ContinueOnError)
	fs.SetOutput(stderr)
	flags := runtimeFlags{
		manifestURL:   fs.String("manifest-url", config.GetString(config.KeyManifestURL), "URL of the update manifest"),
		checkInterval: fs.Int("check-interval-seconds", config.GetInt(config.KeyCheckIntervalSeconds), "Seconds between periodic update checks"),
		version:       fs.String("current-version", config.GetString(config.KeyCurrentVersion), "Override the running version (defaults to the build version)"),
		themeName:     fs.String("theme", config.GetString(config.KeyTheme), "Colour theme ("+strings.Join(theme.Available(), ", ")+")"),
		outputFormat:  fs.String("output-format", config.GetString(config.KeyOutputFormat), "History markdown style (rich, light, plain)"),
		debug:         fs.Bool("debug", config.GetBool(config.KeyDebug), "Write a debug log to ~/.autoupdater/debug.log"),
	}
	versionFlag := fs.Bool("version", false, "Print version information and exit")
	checkFlag := fs.Bool("check", false, "Check for updates once without the UI and exit")
	yesFlag := fs.Bool("yes", false, "With --check, accept a major update without asking")
	historyFlag := fs.Bool("history", false, "Print recent update history and exit")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *versionFlag {
		printVersion(stdout)
		return 0
	}

	visited := map[string]struct{}{}
	fs.Visit(func(f *flag.Flag) {
		visited[f.Name] = struct{}{}
	})
	if err := config.ApplyOverrides(collectOverrides(flags, visited)); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error applying flags: %v\n", err)
		return 1
	}

	opts, err := computeRuntimeOptions()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if err := debug.Init(opts.debug); err != nil {
		_, _ = fmt.Fprintf(stderr, "Warning: debug log unavailable: %v\n", err)
	}
	defer debug.Close()

	if opts.themeName != "" && !theme.SetTheme(opts.themeName) {
		debug.Logf("main: unknown theme %q, keeping %s", opts.themeName, theme.CurrentName())
	}

	ctx := context.Background()
	store := openHistory(ctx, opts, stderr)
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	if !*historyFlag && !*checkFlag && !isTerminal(stdout) {
		_, _ = fmt.Fprintln(stderr, "Not a terminal, running a single update check")
		*checkFlag = true
	}

	switch {
	case *historyFlag:
		return printHistory(ctx, store, opts, stdout, stderr)
	case *checkFlag:
		// The interactive shell filters signals itself so it can veto them mid-update.
		sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runHeadlessCheck(sigCtx, opts, store, *yesFlag, args, stdout, stderr)
	}

	if err := runInteractive(ctx, opts, store, args); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func runInteractive(ctx context.Context, opts runtimeOptions, store *history.Store, args []string) error {
	notifier := ui.NewProgramNotifier()
	engine, err := buildEngine(opts, engineDeps{
		notifier:     notifier,
		recorder:     store,
		terminate:    notifier.Terminate,
		relaunchArgs: args,
	})
	if err != nil {
		return err
	}

	appCfg := ui.Config{
		Engine:       engine,
		Notifier:     notifier,
		AppVersion:   Version,
		ManifestURL:  opts.manifestURL,
		OutputFormat: opts.outputFormat,
		Context:      ctx,
	}
	if store != nil {
		appCfg.History = store
	}

	return runProgram(appCfg, ui.NewApp, func(app *ui.App) programRunner {
		prog := tea.NewProgram(app, tea.WithAltScreen(), tea.WithFilter(ui.QuitFilter))
		notifier.Attach(prog)

		bgCtx, cancel := context.WithCancel(ctx)
		runDone := make(chan struct{})
		return &backgroundRunner{
			program: prog,
			cancel:  cancel,
			wait: func() {
				<-runDone
				engine.Wait()
			},
			start: func() {
				// Sends block until the program loop is reading, so these run in goroutines.
				go func() {
					defer close(runDone)
					engine.ReportPreviousInstall(bgCtx)
					engine.Run(bgCtx)
				}()
				if opts.controlURL != "" {
					monitor := control.NewMonitor(opts.controlURL, update.NewHTTPTransport(transportOptions(opts)...),
						notifier.ControlChanged, control.WithInterval(opts.controlInterval))
					go monitor.Run(bgCtx)
				}
			},
		}
	})
}

// backgroundRunner starts the engine and control monitor alongside the
// program and stops them when the program exits.
type backgroundRunner struct {
	program programRunner
	start   func()
	cancel  context.CancelFunc
	wait    func()
}

func (r *backgroundRunner) Run() (tea.Model, error) {
	r.start()
	defer func() {
		r.cancel()
		r.wait()
	}()
	return r.program.Run()
}

type programRunner interface {
	Run() (tea.Model, error)
}

type programFactory func(*ui.App) programRunner

func runProgram(cfg ui.Config, builder func(ui.Config) (*ui.App, error), factory programFactory) error {
	app, err := builder(cfg)
	if err != nil {
		return fmt.Errorf("initialize UI: %w", err)
	}
	if factory == nil {
		return fmt.Errorf("program factory is nil")
	}
	prog := factory(app)
	if prog == nil {
		return fmt.Errorf("program is nil")
	}
	if _, err := prog.Run(); err != nil {
		return fmt.Errorf("run UI: %w", err)
	}
	return nil
}

type engineDeps struct {
	notifier     update.Notifier
	recorder     *history.Store
	terminate    func()
	relaunchArgs []string
}

func buildEngine(opts runtimeOptions, deps engineDeps) (*update.Engine, error) {
	installer := update.NewScriptInstaller(update.WithRelaunchArgs(deps.relaunchArgs...))
	cfg := update.EngineConfig{
		ManifestURL:       opts.manifestURL,
		CurrentVersion:    opts.currentVersion,
		Transport:         update.NewHTTPTransport(transportOptions(opts)...),
		Installer:         installer,
		Notifier:          deps.notifier,
		Terminate:         deps.terminate,
		CheckInterval:     opts.checkInterval,
		DownloadDir:       opts.downloadDir,
		InstallResultPath: installer.ResultPath(),
	}
	if deps.recorder != nil {
		cfg.Recorder = deps.recorder
	}
	if exe := installer.Executable(); exe != "" {
		cfg.Lock = update.NewFileLock(exe)
	}
	return update.NewEngine(cfg)
}

func transportOptions(opts runtimeOptions) []update.TransportOption {
	ua := opts.userAgent
	if ua == "" {
		ua = "autoupdater/" + Version
	}
	return []update.TransportOption{
		update.WithUserAgent(ua),
		update.WithTextTimeout(opts.httpTimeout),
	}
}

func openHistory(ctx context.Context, opts runtimeOptions, stderr io.Writer) *history.Store {
	if opts.historyDisabled || opts.historyPath == "" {
		return nil
	}
	store, err := history.Open(ctx, opts.historyPath)
	if err != nil {
		debug.Logf("main: open history: %v", err)
		_, _ = fmt.Fprintf(stderr, "Warning: update history unavailable: %v\n", err)
		return nil
	}
	if n, err := store.Prune(ctx, time.Now().Add(-historyRetention)); err != nil {
		debug.Logf("main: prune history: %v", err)
	} else if n > 0 {
		debug.Logf("main: pruned %d history events", n)
	}
	return store
}

type runtimeFlags struct {
	manifestURL   *string
	checkInterval *int
	version       *string
	themeName     *string
	outputFormat  *string
	debug         *bool
}

type runtimeOptions struct {
	manifestURL     string
	checkInterval   time.Duration
	currentVersion  update.Version
	downloadDir     string
	httpTimeout     time.Duration
	userAgent       string
	controlURL      string
	controlInterval time.Duration
	historyPath     string
	historyDisabled bool
	outputFormat    string
	themeName       string
	debug           bool
}

// collectOverrides maps explicitly set flags onto their config keys.
func collectOverrides(flags runtimeFlags, visited map[string]struct{}) map[string]any {
	overrides := map[string]any{}
	if flagWasExplicitlySet("manifest-url", visited) {
		overrides[config.KeyManifestURL] = strings.TrimSpace(*flags.manifestURL)
	}
	if flagWasExplicitlySet("check-interval-seconds", visited) {
		overrides[config.KeyCheckIntervalSeconds] = *flags.checkInterval
	}
	if flagWasExplicitlySet("current-version", visited) {
		overrides[config.KeyCurrentVersion] = strings.TrimSpace(*flags.version)
	}
	if flagWasExplicitlySet("theme", visited) {
		overrides[config.KeyTheme] = strings.TrimSpace(*flags.themeName)
	}
	if flagWasExplicitlySet("output-format", visited) {
		overrides[config.KeyOutputFormat] = strings.TrimSpace(*flags.outputFormat)
	}
	if flagWasExplicitlySet("debug", visited) {
		overrides[config.KeyDebug] = *flags.debug
	}
	return overrides
}

func flagWasExplicitlySet(name string, visited map[string]struct{}) bool {
	_, ok := visited[name]
	return ok
}

func computeRuntimeOptions() (runtimeOptions, error) {
	manifestURL := strings.TrimSpace(config.GetString(config.KeyManifestURL))
	if manifestURL == "" {
		return runtimeOptions{}, fmt.Errorf("no manifest URL configured (set %s)", config.KeyManifestURL)
	}

	rawVersion := strings.TrimSpace(config.GetString(config.KeyCurrentVersion))
	if rawVersion == "" {
		rawVersion = Version
	}
	current, err := update.ParseVersion(rawVersion)
	if err != nil {
		return runtimeOptions{}, fmt.Errorf("current version %q: %w", rawVersion, err)
	}

	return runtimeOptions{
		manifestURL:     manifestURL,
		checkInterval:   secondsOrDefault(config.GetInt(config.KeyCheckIntervalSeconds), config.DefaultCheckIntervalSeconds),
		currentVersion:  current,
		downloadDir:     strings.TrimSpace(config.GetString(config.KeyDownloadDir)),
		httpTimeout:     time.Duration(sanitizeSeconds(config.GetInt(config.KeyHTTPTimeoutSeconds))) * time.Second,
		userAgent:       strings.TrimSpace(config.GetString(config.KeyHTTPUserAgent)),
		controlURL:      strings.TrimSpace(config.GetString(config.KeyControlURL)),
		controlInterval: secondsOrDefault(config.GetInt(config.KeyControlIntervalSeconds), config.DefaultControlIntervalSeconds),
		historyPath:     strings.TrimSpace(config.GetString(config.KeyHistoryPath)),
		historyDisabled: config.GetBool(config.KeyHistoryDisabled),
		outputFormat:    strings.TrimSpace(config.GetString(config.KeyOutputFormat)),
		themeName:       strings.TrimSpace(config.GetString(config.KeyTheme)),
		debug:           config.GetBool(config.KeyDebug),
	}, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func secondsOrDefault(seconds, fallback int) time.Duration {
	if seconds <= 0 {
		seconds = fallback
	}
	return time.Duration(seconds) * time.Second
}

func sanitizeSeconds(seconds int) int {
	if seconds < 0 {
		return 0
	}
	return seconds
}
