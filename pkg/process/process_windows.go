//go:build windows

package process

import (
	"os/exec"
	"syscall"
)

// hideConsoleWindow keeps installer invocations from flashing console
// windows at the user.
func hideConsoleWindow(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: 0x08000000, // CREATE_NO_WINDOW
	}
}
