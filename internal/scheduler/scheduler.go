package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Run calls fn, then waits interval, until ctx is cancelled. Cycles never
// overlap. fn receives a context detached from ctx, so a cycle in progress
// always finishes and cancellation takes effect at the next wait.
func Run(ctx context.Context, interval time.Duration, fn func(ctx context.Context)) {
	cycleCtx := context.WithoutCancel(ctx)
	for ctx.Err() == nil {
		fn(cycleCtx)
		if !wait(ctx, interval) {
			break
		}
	}
	slog.Info("Stopping sync loop")
}

// wait blocks for d and reports false if ctx was cancelled first.
func wait(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
