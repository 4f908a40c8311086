package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "autoupdater/internal/errors"
)

func TestInitializeLoadsDefaults(t *testing.T) {
	reset()
	t.Cleanup(reset)

	tmp := t.TempDir()
	userCfg := filepath.Join(tmp, "user.yaml")

	if err := Initialize(WithWorkingDir(tmp), WithUserConfig(userCfg)); err != nil {
		t.Fatalf("Initialize returned error: %v", err)
	}

	if got := GetString(KeyManifestURL); got != DefaultManifestURL {
		t.Fatalf("expected default %s, got %q", KeyManifestURL, got)
	}
	if got := GetInt(KeyCheckIntervalSeconds); got != DefaultCheckIntervalSeconds {
		t.Fatalf("expected default %s = %d, got %d", KeyCheckIntervalSeconds, DefaultCheckIntervalSeconds, got)
	}
	if got := GetInt(KeyControlIntervalSeconds); got != DefaultControlIntervalSeconds {
		t.Fatalf("expected default %s = %d, got %d", KeyControlIntervalSeconds, DefaultControlIntervalSeconds, got)
	}
	if got := GetString(KeyControlURL); got != "" {
		t.Fatalf("expected control monitor disabled by default, got %q", got)
	}
	if GetBool(KeyHistoryDisabled) {
		t.Fatalf("expected history enabled by default")
	}
	if got := GetString(KeyHistoryPath); !strings.HasSuffix(got, filepath.Join(".autoupdater", "history.db")) {
		t.Fatalf("unexpected default history path %q", got)
	}
	if got := GetString(KeyOutputFormat); got != "rich" {
		t.Fatalf("expected default %s to be rich, got %q", KeyOutputFormat, got)
	}
	if got := GetString(KeyTheme); got != "tokyonight" {
		t.Fatalf("expected default theme tokyonight, got %q", got)
	}
}

func TestProjectConfigOverridesUser(t *testing.T) {
	reset()
	t.Cleanup(reset)

	tmp := t.TempDir()
	projectDir := filepath.Join(tmp, "repo")
	nested := filepath.Join(projectDir, "sub", "dir")
	mustMkdir(t, nested)
	projectCfg := filepath.Join(projectDir, ".autoupdater", "config.yaml")
	writeFile(t, projectCfg, `
manifest-url: https://project.example/update.txt
history:
  path: /project/history.db
control:
  url: https://project.example/control.txt
`)

	userCfg := filepath.Join(tmp, "user.yaml")
	writeFile(t, userCfg, `
manifest-url: https://user.example/update.txt
check-interval-seconds: 60
history:
  path: /user/history.db
`)

	if err := Initialize(
		WithWorkingDir(nested),
		WithUserConfig(userCfg),
	); err != nil {
		t.Fatalf("Initialize returned error: %v", err)
	}

	if got := GetString(KeyManifestURL); got != "https://project.example/update.txt" {
		t.Fatalf("expected project config to win for %s, got %q", KeyManifestURL, got)
	}
	if got := GetString(KeyHistoryPath); got != "/project/history.db" {
		t.Fatalf("expected project history path, got %q", got)
	}
	if got := GetInt(KeyCheckIntervalSeconds); got != 60 {
		t.Fatalf("expected user interval to survive the merge, got %d", got)
	}
	if got := GetString(KeyControlURL); got != "https://project.example/control.txt" {
		t.Fatalf("unexpected control url %q", got)
	}
}

func TestEnvironmentAndOverridesPrecedence(t *testing.T) {
	reset()
	t.Cleanup(reset)

	tmp := t.TempDir()
	projectDir := filepath.Join(tmp, "repo")
	projectCfg := filepath.Join(projectDir, ".autoupdater", "config.yaml")
	writeFile(t, projectCfg, `
debug: false
http:
  timeout-seconds: 5
manifest-url: https://project.example/update.txt
`)

	t.Setenv("AU_DEBUG", "true")
	t.Setenv("AU_HTTP_TIMEOUT_SECONDS", "30")

	if err := Initialize(
		WithWorkingDir(projectDir),
		WithProjectConfig(projectCfg),
		WithUserConfig(filepath.Join(tmp, "missing.yaml")),
	); err != nil {
		t.Fatalf("Initialize returned error: %v", err)
	}

	if !GetBool(KeyDebug) {
		t.Fatalf("expected environment variable to override %s", KeyDebug)
	}
	if got := GetInt(KeyHTTPTimeoutSeconds); got != 30 {
		t.Fatalf("expected env override for %s, got %d", KeyHTTPTimeoutSeconds, got)
	}

	overrides := map[string]any{
		KeyDebug:       false,
		KeyManifestURL: "https://flag.example/update.txt",
	}
	if err := ApplyOverrides(overrides); err != nil {
		t.Fatalf("ApplyOverrides returned error: %v", err)
	}

	if GetBool(KeyDebug) {
		t.Fatalf("expected CLI override to set %s=false", KeyDebug)
	}
	if got := GetString(KeyManifestURL); got != "https://flag.example/update.txt" {
		t.Fatalf("expected override for %s, got %q", KeyManifestURL, got)
	}
}

func TestLegacyLayoutIsMapped(t *testing.T) {
	reset()
	t.Cleanup(reset)

	tmp := t.TempDir()
	userCfg := filepath.Join(tmp, "user.yaml")
	writeFile(t, userCfg, `
update:
  url: https://legacy.example/update.txt
  check_interval: 3600
control:
  url: https://legacy.example/control.txt
  check_interval: 2.5
`)

	if err := Initialize(WithWorkingDir(tmp), WithUserConfig(userCfg)); err != nil {
		t.Fatalf("Initialize returned error: %v", err)
	}

	if got := GetString(KeyManifestURL); got != "https://legacy.example/update.txt" {
		t.Fatalf("legacy update.url not mapped, got %q", got)
	}
	if got := GetInt(KeyCheckIntervalSeconds); got != 3600 {
		t.Fatalf("legacy update.check_interval not mapped, got %d", got)
	}
	if got := GetInt(KeyControlIntervalSeconds); got != 3 {
		t.Fatalf("expected fractional control interval to round up to 3, got %d", got)
	}
}

func TestExplicitKeysBeatLegacyLayout(t *testing.T) {
	reset()
	t.Cleanup(reset)

	tmp := t.TempDir()
	userCfg := filepath.Join(tmp, "user.yaml")
	writeFile(t, userCfg, `
manifest-url: https://current.example/update.txt
update:
  url: https://legacy.example/update.txt
  check_interval: 3600
`)
	t.Setenv("AU_CHECK_INTERVAL_SECONDS", "120")

	if err := Initialize(WithWorkingDir(tmp), WithUserConfig(userCfg)); err != nil {
		t.Fatalf("Initialize returned error: %v", err)
	}

	if got := GetString(KeyManifestURL); got != "https://current.example/update.txt" {
		t.Fatalf("explicit manifest-url should win, got %q", got)
	}
	if got := GetInt(KeyCheckIntervalSeconds); got != 120 {
		t.Fatalf("env interval should win over legacy value, got %d", got)
	}
}

func TestInitializeReportsConfigurationError(t *testing.T) {
	reset()
	t.Cleanup(reset)

	tmp := t.TempDir()
	userCfg := filepath.Join(tmp, "user.yaml")
	writeFile(t, userCfg, "manifest-url: [unterminated\n")

	err := Initialize(WithWorkingDir(tmp), WithUserConfig(userCfg))
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !apperrors.IsCode(err, apperrors.CodeConfigurationError) {
		t.Fatalf("expected configuration error code, got %v", err)
	}
}

func TestSaveThemeWritesUserConfig(t *testing.T) {
	cleanup := ResetForTesting(t)
	t.Cleanup(cleanup)

	target := userConfigPathOverride
	writeFile(t, target, "manifest-url: https://keep.example/update.txt\n")

	if err := SaveTheme("dracula"); err != nil {
		t.Fatalf("SaveTheme returned error: %v", err)
	}

	//nolint:gosec // test reads its own temp file
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read saved config: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "theme: dracula") {
		t.Fatalf("theme not persisted:\n%s", content)
	}
	if !strings.Contains(content, "https://keep.example/update.txt") {
		t.Fatalf("existing settings lost:\n%s", content)
	}
}

func TestCeilSeconds(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{0, 1},
		{-3, 1},
		{0.2, 1},
		{2, 2},
		{2.01, 3},
	}
	for _, tt := range tests {
		if got := ceilSeconds(tt.in); got != tt.want {
			t.Errorf("ceilSeconds(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func mustMkdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	mustMkdir(t, filepath.Dir(path))
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write file %s: %v", path, err)
	}
}
