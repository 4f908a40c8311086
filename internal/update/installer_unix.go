//go:build !windows

package update

import (
	"os/exec"
	"syscall"
)

const scriptExt = ".sh"

func buildScript(p helperParams) string {
	return buildShellScript(p)
}

// startDetached runs the helper in its own session so it survives our exit.
func startDetached(scriptPath string) error {
	//nolint:gosec // G204: script path is generated by the installer
	cmd := exec.Command("/bin/sh", scriptPath)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}
