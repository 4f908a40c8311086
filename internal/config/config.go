package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	apperrors "autoupdater/internal/errors"

	"github.com/spf13/viper"
)

const (
	KeyManifestURL          = "manifest-url"
	KeyCheckIntervalSeconds = "check-interval-seconds"
	KeyCurrentVersion       = "current-version"
	KeyDownloadDir          = "download-dir"

	KeyHTTPTimeoutSeconds = "http.timeout-seconds"
	KeyHTTPUserAgent      = "http.user-agent"

	KeyControlURL             = "control.url"
	KeyControlIntervalSeconds = "control.interval-seconds"

	KeyHistoryPath     = "history.path"
	KeyHistoryDisabled = "history.disabled"

	KeyOutputFormat = "output.format"
	KeyTheme        = "theme"
	KeyDebug        = "debug"

	// Keys from the older config.yaml layout, folded into the keys above.
	KeyLegacyUpdateURL       = "update.url"           // Deprecated: use KeyManifestURL.
	KeyLegacyUpdateInterval  = "update.check_interval" // Deprecated: use KeyCheckIntervalSeconds.
	KeyLegacyControlInterval = "control.check_interval" // Deprecated: use KeyControlIntervalSeconds.
)

const (
	// DefaultManifestURL is the update endpoint used when nothing else is configured.
	DefaultManifestURL = "https://keymaster-agni.vercel.app/api/vault/ellRHrNSMrcAvtnKsvHVqyOvgbT2/update.txt"
	// DefaultCheckIntervalSeconds is the periodic re-check interval.
	DefaultCheckIntervalSeconds = 300
	// DefaultControlIntervalSeconds is the control file poll interval.
	DefaultControlIntervalSeconds = 2

	dirName   = ".autoupdater"
	envPrefix = "AU"
)

type initSettings struct {
	workingDir        string
	projectConfigPath string
	userConfigPath    string
}

// Option configures Initialize behaviour. Useful for tests to override paths.
type Option func(*initSettings)

// WithWorkingDir overrides the directory used for project config discovery.
func WithWorkingDir(dir string) Option {
	return func(cfg *initSettings) {
		cfg.workingDir = dir
	}
}

// WithProjectConfig explicitly sets the project config path instead of discovery.
func WithProjectConfig(path string) Option {
	return func(cfg *initSettings) {
		cfg.projectConfigPath = path
	}
}

// WithUserConfig overrides the default user config path.
func WithUserConfig(path string) Option {
	return func(cfg *initSettings) {
		cfg.userConfigPath = path
	}
}

var (
	configOnce sync.Once
	configMu   sync.RWMutex
	configInst *viper.Viper
	initErr    error

	// userConfigPathOverride is used by tests to override the user config path.
	userConfigPathOverride string
)

// Initialize loads configuration using the precedence:
// defaults < user config < project config < environment variables < overrides.
func Initialize(opts ...Option) error {
	configOnce.Do(func() {
		settings := initSettings{}
		for _, opt := range opts {
			opt(&settings)
		}
		if err := configure(&settings); err != nil {
			initErr = apperrors.New(apperrors.CodeConfigurationError, "load configuration", err)
		}
	})
	return initErr
}

// ApplyOverrides injects values typically coming from CLI flags.
func ApplyOverrides(overrides map[string]any) error {
	if len(overrides) == 0 {
		return nil
	}
	if err := Initialize(); err != nil {
		return err
	}
	configMu.Lock()
	defer configMu.Unlock()
	if configInst == nil {
		return fmt.Errorf("configuration not initialized")
	}
	for k, v := range overrides {
		configInst.Set(k, v)
	}
	return nil
}

// GetString fetches a string configuration value, initializing on demand.
func GetString(key string) string {
	v, err := getViper()
	if err != nil {
		return ""
	}
	return v.GetString(key)
}

// GetBool fetches a bool configuration value, initializing on demand.
func GetBool(key string) bool {
	v, err := getViper()
	if err != nil {
		return false
	}
	return v.GetBool(key)
}

// GetInt fetches an integer configuration value, initializing on demand.
func GetInt(key string) int {
	v, err := getViper()
	if err != nil {
		return 0
	}
	return v.GetInt(key)
}

func configure(settings *initSettings) error {
	workingDir := strings.TrimSpace(settings.workingDir)
	if workingDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("determine working directory: %w", err)
		}
		workingDir = wd
	}

	userConfigPath := strings.TrimSpace(settings.userConfigPath)
	if userConfigPath == "" {
		path, err := defaultUserConfigPath()
		if err != nil {
			return err
		}
		userConfigPath = path
	}

	projectConfigPath := strings.TrimSpace(settings.projectConfigPath)
	if projectConfigPath == "" {
		path, err := findProjectConfig(workingDir)
		if err != nil {
			return err
		}
		projectConfigPath = path
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := mergeConfigFile(v, userConfigPath); err != nil {
		return fmt.Errorf("load user config: %w", err)
	}
	if err := mergeConfigFile(v, projectConfigPath); err != nil {
		return fmt.Errorf("load project config: %w", err)
	}
	applyLegacyConfig(v)

	configMu.Lock()
	defer configMu.Unlock()
	configInst = v
	return nil
}

func mergeConfigFile(v *viper.Viper, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("config path %s is a directory", path)
	}
	//nolint:gosec // G304: Config loader intentionally reads user and project config files
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// Dir returns the per-user directory holding config, logs and history.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determine user home: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

func defaultUserConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func defaultHistoryPath() string {
	dir, err := Dir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "history.db")
}

func findProjectConfig(startDir string) (string, error) {
	if strings.TrimSpace(startDir) == "" {
		return "", nil
	}
	dir := startDir
	for {
		candidate := filepath.Join(dir, dirName, "config.yaml")
		info, err := os.Stat(candidate)
		if err == nil {
			if info.IsDir() {
				return "", fmt.Errorf("config path %s is a directory", candidate)
			}
			return candidate, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("stat %s: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyManifestURL, DefaultManifestURL)
	v.SetDefault(KeyCheckIntervalSeconds, DefaultCheckIntervalSeconds)
	v.SetDefault(KeyCurrentVersion, "")
	v.SetDefault(KeyDownloadDir, "")
	v.SetDefault(KeyHTTPTimeoutSeconds, 0)
	v.SetDefault(KeyHTTPUserAgent, "")
	v.SetDefault(KeyControlURL, "")
	v.SetDefault(KeyControlIntervalSeconds, DefaultControlIntervalSeconds)
	v.SetDefault(KeyHistoryPath, defaultHistoryPath())
	v.SetDefault(KeyHistoryDisabled, false)
	v.SetDefault(KeyOutputFormat, "rich")
	v.SetDefault(KeyTheme, "tokyonight")
	v.SetDefault(KeyDebug, false)
}

func getViper() (*viper.Viper, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}
	configMu.RLock()
	defer configMu.RUnlock()
	if configInst == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}
	return configInst, nil
}

// reset clears package state for tests.
func reset() {
	configMu.Lock()
	defer configMu.Unlock()
	configInst = nil
	initErr = nil
	configOnce = sync.Once{}
	userConfigPathOverride = ""
}

// ResetForTesting clears package state for tests in other packages.
// Returns a cleanup function that should be deferred.
func ResetForTesting(t interface{ TempDir() string }) func() {
	reset()
	tmp := t.TempDir()
	userConfigPathOverride = filepath.Join(tmp, "user-config.yaml")
	_ = Initialize(WithWorkingDir(tmp), WithUserConfig(userConfigPathOverride))
	return reset
}

// applyLegacyConfig maps the update/control sections of the older layout
// onto the current keys unless the current keys were set explicitly.
func applyLegacyConfig(v *viper.Viper) {
	if v == nil {
		return
	}
	if !isExplicit(v, KeyManifestURL) && v.IsSet(KeyLegacyUpdateURL) {
		if url := strings.TrimSpace(v.GetString(KeyLegacyUpdateURL)); url != "" {
			v.Set(KeyManifestURL, url)
		}
	}
	if !isExplicit(v, KeyCheckIntervalSeconds) && v.IsSet(KeyLegacyUpdateInterval) {
		v.Set(KeyCheckIntervalSeconds, ceilSeconds(v.GetFloat64(KeyLegacyUpdateInterval)))
	}
	if !isExplicit(v, KeyControlIntervalSeconds) && v.IsSet(KeyLegacyControlInterval) {
		v.Set(KeyControlIntervalSeconds, ceilSeconds(v.GetFloat64(KeyLegacyControlInterval)))
	}
}

func isExplicit(v *viper.Viper, key string) bool {
	if v.InConfig(key) {
		return true
	}
	_, ok := os.LookupEnv(envKey(key))
	return ok
}

func envKey(key string) string {
	replacer := strings.NewReplacer(".", "_", "-", "_")
	return strings.ToUpper(envPrefix) + "_" + strings.ToUpper(replacer.Replace(key))
}

// ceilSeconds rounds fractional seconds up, never returning less than 1.
func ceilSeconds(s float64) int {
	if s <= 0 {
		return 1
	}
	return int(math.Ceil(s))
}

// SaveTheme persists the theme name to the appropriate config file.
// If a project config (.autoupdater/config.yaml) exists, it updates that file.
// Otherwise, it updates the user config (~/.autoupdater/config.yaml).
// The user config directory is auto-created if needed, but project config
// directories are never auto-created.
func SaveTheme(themeName string) error {
	targetPath, err := findWritableConfigPath()
	if err != nil {
		return fmt.Errorf("find config path: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(targetPath)

	// Read existing config (if any) to preserve other settings
	_ = v.ReadInConfig()

	v.Set(KeyTheme, themeName)

	dir := filepath.Dir(targetPath)
	//nolint:gosec // G301: User config directory needs standard permissions
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := v.WriteConfigAs(targetPath); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// findWritableConfigPath determines which config file to write to.
// Returns project config path if it exists, otherwise user config path.
func findWritableConfigPath() (string, error) {
	wd, err := os.Getwd()
	if err == nil {
		projectPath, err := findProjectConfig(wd)
		if err == nil && projectPath != "" {
			return projectPath, nil
		}
	}

	if userConfigPathOverride != "" {
		return userConfigPathOverride, nil
	}
	return defaultUserConfigPath()
}
