package datalogger

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// TaskResult is delivered once per submitted task
type TaskResult struct {
	ID    string
	Op    string
	Value any
}

// Dispatcher runs device operations on worker goroutines so the caller's
// loop stays responsive. Each task gets its own cancellable context; the
// value returned by the task function is delivered on Results.
type Dispatcher struct {
	ctx     context.Context
	cancel  context.CancelFunc
	results chan TaskResult
	wg      sync.WaitGroup

	mu    sync.Mutex
	tasks map[string]context.CancelFunc
}

// NewDispatcher creates a Dispatcher whose tasks are canceled with parent
func NewDispatcher(parent context.Context) *Dispatcher {
	ctx, cancel := context.WithCancel(parent)
	return &Dispatcher{
		ctx:     ctx,
		cancel:  cancel,
		results: make(chan TaskResult, 16),
		tasks:   make(map[string]context.CancelFunc),
	}
}

// Results returns the channel on which task results arrive. It is closed
// by Close once every task has finished.
func (d *Dispatcher) Results() <-chan TaskResult {
	return d.results
}

// Submit starts fn on a worker and returns the task ID
func (d *Dispatcher) Submit(op string, fn func(ctx context.Context) any) string {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(d.ctx)

	d.mu.Lock()
	d.tasks[id] = cancel
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		value := fn(ctx)
		d.forget(id)
		d.results <- TaskResult{ID: id, Op: op, Value: value}
	}()

	return id
}

// Cancel cancels a running task. It reports false if the task is unknown
// or already finished.
func (d *Dispatcher) Cancel(id string) bool {
	d.mu.Lock()
	cancel, ok := d.tasks[id]
	d.mu.Unlock()

	if ok {
		cancel()
	}
	return ok
}

// Pending returns the number of running tasks
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tasks)
}

func (d *Dispatcher) forget(id string) {
	d.mu.Lock()
	if cancel, ok := d.tasks[id]; ok {
		cancel()
		delete(d.tasks, id)
	}
	d.mu.Unlock()
}

// Close cancels all tasks, waits for them and closes Results. Results must
// keep being drained until it is closed.
func (d *Dispatcher) Close() {
	d.cancel()
	d.wg.Wait()
	close(d.results)
}
