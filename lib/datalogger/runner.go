package datalogger

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// DefaultTool is the device-management tool invoked for every operation
const DefaultTool = "mpremote"

// waitDelay bounds how long output pipes are drained after the tool is
// killed; children of the tool may keep them open
const waitDelay = time.Second

// Runner executes one invocation of the device-management tool
type Runner interface {
	Run(ctx context.Context, args ...string) Result
}

// RunnerFunc adapts a plain function to the Runner interface
type RunnerFunc func(ctx context.Context, args ...string) Result

// Run calls f(ctx, args...)
func (f RunnerFunc) Run(ctx context.Context, args ...string) Result {
	return f(ctx, args...)
}

// ExecRunner runs the tool as a child process. The process is killed when
// ctx is done.
type ExecRunner struct {
	Tool string // Executable name or path (defaults to mpremote)
}

// NewExecRunner creates an ExecRunner for the given tool
func NewExecRunner(tool string) *ExecRunner {
	if tool == "" {
		tool = DefaultTool
	}
	return &ExecRunner{Tool: tool}
}

// Run executes the tool and captures its output. Only the raw fields of the
// Result are filled in; classification is left to the caller.
func (r *ExecRunner) Run(ctx context.Context, args ...string) Result {
	tool := r.Tool
	if tool == "" {
		tool = DefaultTool
	}

	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.TimedOut = true
		res.Err = ctx.Err()
	case errors.Is(ctx.Err(), context.Canceled):
		res.Canceled = true
		res.Err = ctx.Err()
	case err != nil:
		res.Err = err
		if res.ExitCode == 0 {
			// Process never started (e.g. tool not installed)
			res.ExitCode = -1
		}
	}

	return res
}

// Exclusive wraps next so that only one invocation runs at a time. Callers
// waiting for their turn give up when their context is done. The tool owns
// the serial port for the duration of a call, so concurrent callers must
// share one Exclusive runner.
func Exclusive(next Runner) Runner {
	slot := make(chan struct{}, 1)

	return RunnerFunc(func(ctx context.Context, args ...string) Result {
		select {
		case slot <- struct{}{}:
		case <-ctx.Done():
			return Result{
				ExitCode: -1,
				TimedOut: errors.Is(ctx.Err(), context.DeadlineExceeded),
				Canceled: errors.Is(ctx.Err(), context.Canceled),
				Err:      ctx.Err(),
			}
		}
		defer func() { <-slot }()

		return next.Run(ctx, args...)
	})
}
