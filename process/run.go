// Package process runs ffmpeg and ffprobe as subprocesses with captured
// output and process-group cancellation.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// ErrBinaryNotFound means the executable could not be resolved.
var ErrBinaryNotFound = errors.New("process: binary not found")

// Runner executes commands. Tests substitute scripted runners for Exec.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, cmd Command) (*Result, error)

func (f RunnerFunc) Run(ctx context.Context, cmd Command) (*Result, error) { return f(ctx, cmd) }

// Exec runs real subprocesses.
var Exec Runner = RunnerFunc(Run)

// ExitError is a non-zero exit. Stderr keeps the last stderrTail bytes.
type ExitError struct {
	Binary   string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExitError) Error() string {
	detail := e.Stderr
	if detail == "" {
		detail = e.Err.Error()
	}
	return fmt.Sprintf("process: %s exited with %d: %s", e.Binary, e.ExitCode, detail)
}

func (e *ExitError) Unwrap() error { return e.Err }

const stderrTail = 512

// Run starts cmd in its own process group and waits for it. Canceling
// ctx sends SIGTERM to the group, then SIGKILL after the grace period.
func Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Binary == "" {
		return nil, errors.New("process: binary is required")
	}
	path, err := exec.LookPath(cmd.Binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBinaryNotFound, cmd.Binary)
	}

	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(ctx, path, cmd.Args...) //nolint:gosec // running caller-chosen tools is the point
	c.Stdin = cmd.Stdin
	c.Stdout = &stdout
	c.Stderr = &stderr
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error { return syscall.Kill(-c.Process.Pid, syscall.SIGTERM) }
	c.WaitDelay = cmd.GracePeriod
	if c.WaitDelay <= 0 {
		c.WaitDelay = defaultGracePeriod
	}

	began := time.Now()
	runErr := c.Run()
	res := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: c.ProcessState.ExitCode(),
		Duration: time.Since(began),
	}

	switch {
	case runErr == nil:
		return res, nil
	case ctx.Err() != nil:
		return res, fmt.Errorf("process: %s stopped: %w", cmd.Binary, ctx.Err())
	case errors.Is(runErr, os.ErrNotExist):
		return res, fmt.Errorf("%w: %s", ErrBinaryNotFound, cmd.Binary)
	}
	msg := strings.TrimSpace(stderr.String())
	if len(msg) > stderrTail {
		msg = "..." + msg[len(msg)-stderrTail:]
	}
	return res, &ExitError{Binary: cmd.Binary, ExitCode: res.ExitCode, Stderr: msg, Err: runErr}
}
