package tasks

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrQueueFull is returned when the dispatch queue has no room left.
	ErrQueueFull = errors.New("task queue is full")

	// ErrStopped is returned when dispatching after Stop.
	ErrStopped = errors.New("task runner stopped")
)

// TaskFunc is one unit of background work. The context carries the per-task
// time limit; work that outlives it must surface the expiry itself (the load
// pipeline finalizes its run FAILED when the context dies).
type TaskFunc func(ctx context.Context)

type task struct {
	id string
	fn TaskFunc
}

// Runner executes dispatched tasks on a single background worker, so tasks
// run one at a time in dispatch order. Dispatch never blocks the caller.
type Runner struct {
	queue     chan task
	timeLimit time.Duration

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

// NewRunner creates a runner with the given queue capacity and per-task time
// limit. A zero time limit means tasks run without a deadline.
func NewRunner(queueSize int, timeLimit time.Duration) *Runner {
	if queueSize <= 0 {
		queueSize = 16
	}
	return &Runner{
		queue:     make(chan task, queueSize),
		timeLimit: timeLimit,
	}
}

// Start launches the worker goroutine.
func (r *Runner) Start() {
	r.wg.Add(1)
	go r.work()
}

// Dispatch enqueues a task under the given identifier. It returns immediately;
// the task runs when the worker reaches it.
func (r *Runner) Dispatch(taskID string, fn TaskFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return ErrStopped
	}

	select {
	case r.queue <- task{id: taskID, fn: fn}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop rejects further dispatches and waits for queued tasks to finish. An
// in-flight task is not interrupted; it runs to completion or its time limit.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	close(r.queue)
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *Runner) work() {
	defer r.wg.Done()
	for t := range r.queue {
		r.run(t)
	}
}

func (r *Runner) run(t task) {
	ctx := context.Background()
	if r.timeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeLimit)
		defer cancel()
	}

	start := time.Now()
	t.fn(ctx)
	slog.Info("background task finished", "task_id", t.id, "duration", time.Since(start))
}
