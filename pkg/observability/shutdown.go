package observability

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ShutdownFunc is a cleanup hook run during graceful shutdown.
type ShutdownFunc func(context.Context) error

// ShutdownManager drains HTTP servers and runs registered cleanup hooks on
// SIGINT/SIGTERM.
type ShutdownManager struct {
	logger  *Logger
	servers []*http.Server
	funcs   []ShutdownFunc
	timeout time.Duration
	mu      sync.Mutex
}

// NewShutdownManager creates a manager draining the given servers. A zero
// timeout defaults to 30 seconds.
func NewShutdownManager(logger *Logger, timeout time.Duration, servers ...*http.Server) *ShutdownManager {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownManager{logger: logger, servers: servers, timeout: timeout}
}

// RegisterShutdownFunc adds a cleanup hook. Hooks run after the servers
// stop accepting requests.
func (sm *ShutdownManager) RegisterShutdownFunc(fn ShutdownFunc) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.funcs = append(sm.funcs, fn)
}

// WaitForShutdown blocks until a termination signal, then drains.
func (sm *ShutdownManager) WaitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	sm.logger.Infof("received signal %s, starting graceful shutdown", sig)
	return sm.Shutdown(context.Background())
}

// Shutdown drains servers and runs hooks, bounded by the manager timeout.
func (sm *ShutdownManager) Shutdown(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, sm.timeout)
	defer cancel()

	var firstErr error
	for _, srv := range sm.servers {
		if err := srv.Shutdown(ctx); err != nil {
			sm.logger.WithError(err).Error("HTTP server shutdown error")
			if firstErr == nil {
				firstErr = fmt.Errorf("HTTP server shutdown failed: %w", err)
			}
		}
	}

	sm.mu.Lock()
	funcs := sm.funcs
	sm.mu.Unlock()

	for _, fn := range funcs {
		if err := fn(ctx); err != nil {
			sm.logger.WithError(err).Error("shutdown hook error")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	sm.logger.Info("shutdown complete")
	return firstErr
}
