package worker

import (
	"context"
	"log/slog"
	"time"
)

// Every runs task once immediately and then on every tick until ctx is
// done. Task errors are logged and do not stop the loop.
func Every(ctx context.Context, name string, interval time.Duration, task func(context.Context, time.Time) error) error {
	run := func(now time.Time) {
		if err := task(ctx, now); err != nil && ctx.Err() == nil {
			slog.ErrorContext(ctx, "Periodic task failed", "task", name, "error", err)
		}
	}

	run(time.Now())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Periodic task stopped", "task", name)
			return nil
		case now := <-ticker.C:
			run(now)
		}
	}
}
