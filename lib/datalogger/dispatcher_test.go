package datalogger

import (
	"context"
	"testing"
	"time"
)

func TestDispatcherDeliversResults(t *testing.T) {
	d := NewDispatcher(context.Background())

	id := d.Submit("read-clock", func(ctx context.Context) any {
		return "14:30:05"
	})

	select {
	case res := <-d.Results():
		if res.ID != id || res.Op != "read-clock" || res.Value != "14:30:05" {
			t.Errorf("unexpected result %+v", res)
		}
	case <-time.After(time.Second):
		t.Fatal("no result delivered")
	}

	if d.Pending() != 0 {
		t.Errorf("expected no pending tasks, got %d", d.Pending())
	}
	if d.Cancel(id) {
		t.Error("Cancel succeeded on a finished task")
	}

	d.Close()
	if _, ok := <-d.Results(); ok {
		t.Error("results channel not closed")
	}
}

func TestDispatcherCancelKillsTask(t *testing.T) {
	d := NewDispatcher(context.Background())
	defer func() {
		go func() {
			for range d.Results() {
			}
		}()
		d.Close()
	}()

	started := make(chan struct{})
	device := New(RunnerFunc(func(ctx context.Context, args ...string) Result {
		close(started)
		<-ctx.Done()
		return Result{Canceled: true, Err: ctx.Err()}
	}), Options{})

	id := d.Submit("set-clock", func(ctx context.Context) any {
		return device.SetClock(ctx)
	})

	<-started
	if !d.Cancel(id) {
		t.Fatal("Cancel reported unknown task")
	}

	select {
	case res := <-d.Results():
		r, ok := res.Value.(Result)
		if !ok || r.Kind != KindCanceled {
			t.Fatalf("expected canceled result, got %+v", res.Value)
		}
	case <-time.After(time.Second):
		t.Fatal("canceled task did not finish")
	}
}

func TestDispatcherCloseCancelsRunning(t *testing.T) {
	d := NewDispatcher(context.Background())

	started := make(chan struct{})
	d.Submit("wait", func(ctx context.Context) any {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	<-started

	closed := make(chan struct{})
	go func() {
		for range d.Results() {
		}
		close(closed)
	}()

	d.Close()

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not finish running tasks")
	}
}
