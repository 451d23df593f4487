//go:build !windows

package process

import "os/exec"

func hideConsoleWindow(_ *exec.Cmd) {}
