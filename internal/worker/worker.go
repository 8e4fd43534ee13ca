package worker

// The supervisor restarts the worker no matter how it exits. Nothing in
// this package branches on the workload's success or failure.

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// Result describes one completed worker invocation
type Result struct {
	PID        int
	ExitCode   int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns the wall-clock time of the run
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Runner spawns the worker program and waits for it to exit
type Runner struct {
	command []string
	dir     string
}

// New creates a Runner for the given command line, executed in dir
func New(command []string, dir string) (*Runner, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("empty worker command")
	}
	return &Runner{command: command, dir: dir}, nil
}

// Command returns the configured command line
func (r *Runner) Command() []string {
	return r.command
}

// Run starts the worker and blocks until it exits. The exit code is
// reported, never acted on: 0, nonzero and signal termination all come
// back as a Result with a nil error. The error return covers only a
// failure to start the process at all.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	cmd := exec.CommandContext(ctx, r.command[0], r.command[1:]...)
	cmd.Dir = r.dir

	// Own process group so the workload is independent of the supervisor
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
		Pgid:    0,
	}

	// Forward stdout/stderr
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	result := &Result{StartedAt: time.Now()}

	if err := cmd.Start(); err != nil {
		result.FinishedAt = time.Now()
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}

	result.PID = cmd.Process.Pid

	err := cmd.Wait()
	result.FinishedAt = time.Now()

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			// Covers nonzero exits and signal termination (negative code)
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
	}

	return result, nil
}
