package update

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"autoupdater/internal/debug"

	"github.com/alessio/shellescape"
	"github.com/google/uuid"
)

// Installer hands a downloaded executable over to whatever replaces the
// running binary. Install must return only after the replacement has been
// launched, so the caller may terminate once it returns nil.
type Installer interface {
	Install(newFilePath string) error
}

const (
	backupSuffix = ".bak"
	resultSuffix = ".update-result"
)

// ScriptInstaller writes a platform helper script and launches it detached.
// The helper waits for this process to exit, backs up the executable,
// moves the new file in, relaunches, records the outcome and deletes itself.
type ScriptInstaller struct {
	executable string
	scriptDir  string
	pid        int
	args       []string
	resolveErr error

	// start launches the generated script; swapped out in tests.
	start func(scriptPath string) error
}

// InstallerOption configures a ScriptInstaller.
type InstallerOption func(*ScriptInstaller)

// WithExecutable overrides the path of the binary being replaced.
func WithExecutable(path string) InstallerOption {
	return func(s *ScriptInstaller) {
		if path != "" {
			s.executable = path
			s.resolveErr = nil
		}
	}
}

// WithScriptDir sets where the helper script is written.
func WithScriptDir(dir string) InstallerOption {
	return func(s *ScriptInstaller) {
		if dir != "" {
			s.scriptDir = dir
		}
	}
}

// WithProcessID sets the process the helper waits on before replacing.
func WithProcessID(pid int) InstallerOption {
	return func(s *ScriptInstaller) {
		if pid > 0 {
			s.pid = pid
		}
	}
}

// WithRelaunchArgs sets the arguments passed to the relaunched executable.
func WithRelaunchArgs(args ...string) InstallerOption {
	return func(s *ScriptInstaller) {
		s.args = append([]string(nil), args...)
	}
}

// NewScriptInstaller creates an installer for the running executable.
func NewScriptInstaller(opts ...InstallerOption) *ScriptInstaller {
	s := &ScriptInstaller{
		scriptDir: os.TempDir(),
		pid:       os.Getpid(),
		start:     startDetached,
	}
	if exe, err := os.Executable(); err != nil {
		s.resolveErr = err
	} else {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		s.executable = exe
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Executable returns the path the helper will replace.
func (s *ScriptInstaller) Executable() string {
	return s.executable
}

// ResultPath returns where the helper records the outcome of an install.
func (s *ScriptInstaller) ResultPath() string {
	if s.executable == "" {
		return ""
	}
	return s.executable + resultSuffix
}

// Install generates the helper for newFilePath and launches it.
func (s *ScriptInstaller) Install(newFilePath string) error {
	if s.resolveErr != nil {
		return installError("locate current executable", s.resolveErr)
	}
	if _, err := os.Stat(newFilePath); err != nil {
		return installError("locate downloaded update", err)
	}

	params := helperParams{
		PID:        s.pid,
		ImageName:  filepath.Base(s.executable),
		Executable: s.executable,
		NewFile:    newFilePath,
		Backup:     s.executable + backupSuffix,
		Result:     s.ResultPath(),
		Args:       s.args,
	}

	script := filepath.Join(s.scriptDir, "autoupdater_helper_"+uuid.NewString()+scriptExt)
	params.Script = script

	//nolint:gosec // G306: helper must be executable by the user that runs it
	if err := os.WriteFile(script, []byte(buildScript(params)), 0700); err != nil {
		return installError("write helper script", err)
	}
	if err := s.start(script); err != nil {
		_ = os.Remove(script)
		return installError("launch helper script", err)
	}
	debug.Logf("installer: helper %s launched for %s (pid %d)", script, s.executable, s.pid)
	return nil
}

// helperParams is everything a generated helper script needs to know.
type helperParams struct {
	PID        int
	ImageName  string
	Executable string
	NewFile    string
	Backup     string
	Result     string
	Script     string
	Args       []string
}

// shellQuote quotes s for /bin/sh when it contains anything but safe characters.
func shellQuote(s string) string {
	return shellescape.Quote(s)
}

// batchQuote double-quotes s for cmd.exe and escapes percent expansion.
func batchQuote(s string) string {
	return `"` + strings.ReplaceAll(s, "%", "%%") + `"`
}

func buildShellScript(p helperParams) string {
	var args strings.Builder
	for _, a := range p.Args {
		args.WriteString(" ")
		args.WriteString(shellQuote(a))
	}

	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	fmt.Fprintf(&b, "while kill -0 %d 2>/dev/null; do\n  sleep 1\ndone\n", p.PID)
	fmt.Fprintf(&b, "rm -f %s\n", shellQuote(p.Backup))
	b.WriteString("status=ok\n")
	fmt.Fprintf(&b, "if mv -f %s %s; then\n", shellQuote(p.Executable), shellQuote(p.Backup))
	fmt.Fprintf(&b, "  if ! mv -f %s %s; then\n", shellQuote(p.NewFile), shellQuote(p.Executable))
	b.WriteString("    status='error install'\n")
	fmt.Fprintf(&b, "    mv -f %s %s\n", shellQuote(p.Backup), shellQuote(p.Executable))
	b.WriteString("  fi\n")
	b.WriteString("else\n  status='error backup'\nfi\n")
	fmt.Fprintf(&b, "chmod +x %s 2>/dev/null\n", shellQuote(p.Executable))
	fmt.Fprintf(&b, "printf '%%s\\n' \"$status\" > %s\n", shellQuote(p.Result))
	fmt.Fprintf(&b, "%s%s >/dev/null 2>&1 &\n", shellQuote(p.Executable), args.String())
	fmt.Fprintf(&b, "rm -f %s\n", shellQuote(p.Script))
	return b.String()
}

func buildBatchScript(p helperParams) string {
	var args strings.Builder
	for _, a := range p.Args {
		args.WriteString(" ")
		args.WriteString(batchQuote(a))
	}

	image := strings.ReplaceAll(p.ImageName, "%", "%%")
	lines := []string{
		"@echo off",
		"chcp 65001 >nul",
		":wait",
		fmt.Sprintf(`tasklist /fi "IMAGENAME eq %s" | find /i "%s" >nul`, image, image),
		"if %errorlevel%==0 (",
		"    timeout /t 1 /nobreak >nul",
		"    goto wait",
		")",
		fmt.Sprintf("del %s 2>nul", batchQuote(p.Backup)),
		"set status=ok",
		fmt.Sprintf("move /y %s %s >nul 2>nul", batchQuote(p.Executable), batchQuote(p.Backup)),
		"if errorlevel 1 (",
		"    set status=error backup",
		"    goto relaunch",
		")",
		fmt.Sprintf("move /y %s %s >nul 2>nul", batchQuote(p.NewFile), batchQuote(p.Executable)),
		"if errorlevel 1 (",
		"    set status=error install",
		fmt.Sprintf("    move /y %s %s >nul 2>nul", batchQuote(p.Backup), batchQuote(p.Executable)),
		")",
		":relaunch",
		fmt.Sprintf("> %s echo %%status%%", batchQuote(p.Result)),
		fmt.Sprintf(`start "" %s%s`, batchQuote(p.Executable), args.String()),
		`(goto) 2>nul & del "%~f0"`,
	}
	return strings.Join(lines, "\r\n") + "\r\n"
}

// InstallResult is the outcome a helper recorded for the previous run.
type InstallResult struct {
	Success bool
	Detail  string
}

// ReadInstallResult loads a helper result file. ok is false when the file
// does not exist.
func ReadInstallResult(path string) (InstallResult, bool, error) {
	//nolint:gosec // G304: path is derived from the executable location
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return InstallResult{}, false, nil
	}
	if err != nil {
		return InstallResult{}, false, err
	}

	line := strings.TrimSpace(string(data))
	switch {
	case line == "ok":
		return InstallResult{Success: true}, true, nil
	case line == "error backup":
		return InstallResult{Detail: "could not back up the current executable"}, true, nil
	case line == "error install":
		return InstallResult{Detail: "could not move the new executable into place"}, true, nil
	case line == "":
		return InstallResult{Detail: "helper recorded no result"}, true, nil
	default:
		return InstallResult{Detail: line}, true, nil
	}
}
