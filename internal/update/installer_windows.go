//go:build windows

package update

import (
	"os/exec"
	"syscall"
)

const (
	scriptExt = ".cmd"

	// DETACHED_PROCESS; not exported by package syscall.
	detachedProcess = 0x00000008
)

func buildScript(p helperParams) string {
	return buildBatchScript(p)
}

// startDetached runs the helper without a console and outside our process group.
func startDetached(scriptPath string) error {
	//nolint:gosec // G204: script path is generated by the installer
	cmd := exec.Command("cmd.exe", "/C", scriptPath)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP | detachedProcess,
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}
