package tasks

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunnerExecutesDispatchedTasks(t *testing.T) {
	runner := NewRunner(4, time.Minute)
	runner.Start()
	defer runner.Stop()

	done := make(chan struct{})
	if err := runner.Dispatch("task-1", func(ctx context.Context) {
		close(done)
	}); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("task never ran")
	}
}

func TestRunnerAppliesTimeLimit(t *testing.T) {
	runner := NewRunner(4, 20*time.Millisecond)
	runner.Start()
	defer runner.Stop()

	expired := make(chan error, 1)
	if err := runner.Dispatch("task-1", func(ctx context.Context) {
		<-ctx.Done()
		expired <- ctx.Err()
	}); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	select {
	case err := <-expired:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline exceeded, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("time limit never fired")
	}
}

func TestRunnerRunsTasksInDispatchOrder(t *testing.T) {
	runner := NewRunner(4, time.Minute)

	var order []string
	done := make(chan struct{})
	for _, id := range []string{"a", "b", "c"} {
		id := id
		if err := runner.Dispatch(id, func(ctx context.Context) {
			order = append(order, id)
			if id == "c" {
				close(done)
			}
		}); err != nil {
			t.Fatalf("dispatch %s failed: %v", id, err)
		}
	}

	runner.Start()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("tasks never finished")
	}

	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Fatalf("tasks ran out of order: %v", order)
	}
}

func TestRunnerQueueFull(t *testing.T) {
	runner := NewRunner(1, time.Minute)
	// Not started: the queue holds one task and the second dispatch overflows.
	if err := runner.Dispatch("task-1", func(ctx context.Context) {}); err != nil {
		t.Fatalf("first dispatch failed: %v", err)
	}
	if err := runner.Dispatch("task-2", func(ctx context.Context) {}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestRunnerRejectsDispatchAfterStop(t *testing.T) {
	runner := NewRunner(4, time.Minute)
	runner.Start()
	runner.Stop()

	if err := runner.Dispatch("task-1", func(ctx context.Context) {}); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}
