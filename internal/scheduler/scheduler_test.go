package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunRepeats(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	done := make(chan struct{})
	go func() {
		Run(ctx, time.Millisecond, func(ctx context.Context) {
			if calls.Add(1) == 3 {
				cancel()
			}
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 cycles, got %d", got)
	}
}

func TestRunStopsDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var calls atomic.Int32
	done := make(chan struct{})
	go func() {
		Run(ctx, time.Hour, func(ctx context.Context) { calls.Add(1) })
		close(done)
	}()

	// let the first cycle run, then cancel while waiting on the hour timer
	deadline := time.Now().Add(5 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not return after cancel")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 cycle, got %d", got)
	}
}

func TestRunCycleNotCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var cycleErr error
	Run(ctx, time.Hour, func(cycleCtx context.Context) {
		cancel()
		cycleErr = cycleCtx.Err()
	})

	if cycleErr != nil {
		t.Errorf("cycle context was cancelled: %v", cycleErr)
	}
}

func TestRunCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int
	Run(ctx, time.Millisecond, func(ctx context.Context) { calls++ })

	if calls != 0 {
		t.Errorf("expected no cycle, got %d", calls)
	}
}

func TestWait(t *testing.T) {
	if !wait(context.Background(), time.Millisecond) {
		t.Error("expected wait to complete")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if wait(ctx, time.Hour) {
		t.Error("expected wait to report cancellation")
	}
}
