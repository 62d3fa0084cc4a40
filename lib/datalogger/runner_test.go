package datalogger

import (
	"context"
	"runtime"
	"strings"
	"testing"
	"time"
)

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
}

func TestExecRunnerCapturesOutput(t *testing.T) {
	skipWithoutShell(t)

	r := NewExecRunner("sh")
	res := classify(r.Run(context.Background(), "-c", "echo out; echo err >&2; exit 3"))

	if res.Kind != KindToolError || res.ExitCode != 3 {
		t.Fatalf("expected tool error with status 3, got %s/%d", res.Kind, res.ExitCode)
	}
	if strings.TrimSpace(res.Stdout) != "out" || strings.TrimSpace(res.Stderr) != "err" {
		t.Errorf("unexpected output %q / %q", res.Stdout, res.Stderr)
	}
}

func TestExecRunnerNoDevice(t *testing.T) {
	skipWithoutShell(t)

	r := NewExecRunner("sh")
	res := classify(r.Run(context.Background(), "-c", "echo 'mpremote: no device found'; exit 1"))

	if res.Kind != KindDeviceNotFound {
		t.Fatalf("expected %s, got %s", KindDeviceNotFound, res.Kind)
	}
}

func TestExecRunnerTimeout(t *testing.T) {
	skipWithoutShell(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	res := classify(NewExecRunner("sh").Run(ctx, "-c", "sleep 5"))

	if res.Kind != KindTimeout || !res.TimedOut {
		t.Fatalf("expected timeout, got %s", res.Kind)
	}
	if time.Since(start) > 3*time.Second {
		t.Errorf("process was not killed at the deadline")
	}
}

func TestExecRunnerMissingTool(t *testing.T) {
	res := classify(NewExecRunner("datalogger-no-such-tool").Run(context.Background()))

	if res.Kind != KindToolError || res.Err == nil {
		t.Fatalf("expected tool error, got %s", res.Kind)
	}
	if res.ExitCode != -1 {
		t.Errorf("expected exit code -1, got %d", res.ExitCode)
	}
}
