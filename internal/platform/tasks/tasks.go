// Package tasks runs named fire-and-forget work detached from a request
package tasks

import (
	"context"
	"time"

	"pursue/internal/platform/logger"
)

const detachTimeout = 30 * time.Second

// Detach runs fn on its own goroutine with a fresh deadline. Handlers use
// it to fan out work after commit without leaking anonymous goroutines;
// failures are logged against the task name and swallowed
func Detach(name string, log *logger.Logger, fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), detachTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Warn().Err(err).Str("task", name).Msg("background task failed")
		}
	}()
}
