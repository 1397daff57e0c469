// Package async provides safe concurrent execution for background tasks:
// goroutines with panic recovery, timeout enforcement, and error logging.
package async

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/kelvinhq/kelvin/pkg/observability"
)

// SafeGo executes fn in a goroutine with context cancellation, a per-task
// timeout, and panic recovery. Use this instead of bare `go func()` for
// fire-and-forget work so a panic or hang cannot take the process down.
func SafeGo(parentCtx context.Context, timeout time.Duration, taskName string, logger *observability.Logger, fn func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				logger.WithFields(map[string]interface{}{
					"task":  taskName,
					"panic": r,
					"stack": string(debug.Stack()),
				}).Error("background task panicked")
			}
		}()

		if err := fn(ctx); err != nil {
			logger.WithError(err).WithField("task", taskName).Warn("background task failed")
		}
	}()
}
