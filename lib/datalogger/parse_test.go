package datalogger

import (
	"context"
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		raw  Result
		want Kind
	}{
		{"success", Result{Stdout: "ok"}, KindSuccess},
		{"exit status", Result{ExitCode: 2}, KindToolError},
		{"exec error", Result{ExitCode: -1, Err: errors.New("executable file not found")}, KindToolError},
		{"no device stdout", Result{Stdout: "mpremote: no device found", ExitCode: 1}, KindDeviceNotFound},
		{"no device mixed case", Result{Stderr: "No Device Found"}, KindDeviceNotFound},
		{"timeout wins", Result{TimedOut: true, Stdout: "no device found"}, KindTimeout},
		{"cancel wins", Result{Canceled: true, TimedOut: true}, KindCanceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.raw).Kind; got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestParseListingCustomDir(t *testing.T) {
	out := "ls :logs/\n   10 logs/a.csv\n:logs/\n"

	files := parseListing(out, "logs/")
	if len(files) != 1 || files[0].Name != "a.csv" || files[0].Size != 10 {
		t.Fatalf("unexpected files %+v", files)
	}
}

func TestParseListingNameWithSpaces(t *testing.T) {
	files := parseListing("  2048 sd/field notes.txt\n", "sd/")
	if len(files) != 1 || files[0].Name != "field notes.txt" || files[0].Size != 2048 {
		t.Fatalf("unexpected files %+v", files)
	}
}

func TestParseClock(t *testing.T) {
	h, m, s, err := parseClock("device says 2024 14 30 05")
	if err != nil {
		t.Fatalf("parseClock: %v", err)
	}
	if h != 14 || m != 30 || s != 5 {
		t.Errorf("expected 14:30:05, got %d:%d:%d", h, m, s)
	}
}

func TestResultMessage(t *testing.T) {
	tests := []struct {
		res  Result
		want string
	}{
		{Result{Kind: KindDeviceNotFound}, "no device found"},
		{Result{Kind: KindTimeout}, "device communication timeout"},
		{Result{Kind: KindToolError, Stdout: " failed \n"}, "failed"},
		{Result{Kind: KindToolError, ExitCode: 3}, "tool exited with status 3"},
		{Result{Kind: KindParseError, Stdout: "garbage"}, "unexpected output: garbage"},
	}

	for _, tt := range tests {
		if got := tt.res.Message(); got != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.res.Kind, tt.want, got)
		}
	}
}

func TestExclusiveSerializes(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 2)

	runner := Exclusive(RunnerFunc(func(ctx context.Context, args ...string) Result {
		started <- struct{}{}
		<-release
		return Result{}
	}))

	go runner.Run(context.Background(), "first")
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := classify(runner.Run(ctx, "second"))
	if res.Kind != KindCanceled {
		t.Fatalf("expected %s while the slot is held, got %s", KindCanceled, res.Kind)
	}

	close(release)
}
