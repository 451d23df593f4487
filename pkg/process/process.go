// pkg/process/process.go - timed command execution for package managers,
// installers and post-install scripts.

package process

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// Result captures one command invocation. TimedOut distinguishes a killed
// run from an ordinary non-zero exit; both count as failures to callers,
// but they are logged differently.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
}

// Failed reports whether the invocation should be treated as unsuccessful.
func (r Result) Failed() bool {
	return r.TimedOut || r.ExitCode != 0
}

// Runner executes commands with a per-invocation timeout ceiling.
type Runner struct{}

// Run executes name with args, waiting at most timeout. A zero timeout
// means no ceiling. The returned error covers spawn failures (binary not
// found, permissions); exit status and timeouts are reported in Result.
func (Runner) Run(timeout time.Duration, name string, args ...string) (Result, error) {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	hideConsoleWindow(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if ctx.Err() == context.DeadlineExceeded {
		res.TimedOut = true
		res.ExitCode = -1
		return res, nil
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, err
	}

	res.ExitCode = cmd.ProcessState.ExitCode()
	return res, nil
}

// RunShell passes a script body to the command interpreter, the way
// post-install steps are executed.
func (r Runner) RunShell(timeout time.Duration, script string) (Result, error) {
	return r.Run(timeout, "powershell", "-NoProfile", "-Command", script)
}
