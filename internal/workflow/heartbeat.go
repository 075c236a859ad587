package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"promptflow/internal/logging"
)

// heartbeat logs progress while a stage keeps running past the interval.
type heartbeat struct {
	interval time.Duration
}

// watch starts a progress loop for one stage execution. The returned func
// stops the loop and waits for it to exit.
func (h heartbeat) watch(ctx context.Context, logger *slog.Logger, stageName string) func() {
	if h.interval <= 0 || logger == nil {
		return func() {}
	}
	hbCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()
		started := time.Now()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
				logger.Info("stage still running",
					logging.Stage(stageName),
					logging.Duration("elapsed", time.Since(started)),
					logging.String(logging.FieldEventType, "stage_heartbeat"),
				)
			}
		}
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}
