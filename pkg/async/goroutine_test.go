package async

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kelvinhq/kelvin/pkg/observability"
)

// syncWriter makes a bytes.Buffer safe for the logging goroutine.
type syncWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *syncWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func TestSafeGoRunsTask(t *testing.T) {
	logger := observability.NewLogger(observability.ErrorLevel, &syncWriter{})

	done := make(chan struct{})
	SafeGo(context.Background(), time.Second, "test task", logger, func(context.Context) error {
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task did not run")
	}
}

func TestSafeGoLogsError(t *testing.T) {
	out := &syncWriter{}
	logger := observability.NewLogger(observability.DebugLevel, out)

	SafeGo(context.Background(), time.Second, "failing task", logger, func(context.Context) error {
		return errors.New("boom")
	})

	assert.Eventually(t, func() bool {
		return bytes.Contains([]byte(out.String()), []byte("failing task"))
	}, time.Second, 10*time.Millisecond)
}

func TestSafeGoRecoversPanic(t *testing.T) {
	out := &syncWriter{}
	logger := observability.NewLogger(observability.DebugLevel, out)

	SafeGo(context.Background(), time.Second, "panicking task", logger, func(context.Context) error {
		panic("boom")
	})

	assert.Eventually(t, func() bool {
		return bytes.Contains([]byte(out.String()), []byte("background task panicked"))
	}, time.Second, 10*time.Millisecond)
}

func TestSafeGoEnforcesTimeout(t *testing.T) {
	logger := observability.NewLogger(observability.ErrorLevel, &syncWriter{})

	expired := make(chan struct{})
	SafeGo(context.Background(), 10*time.Millisecond, "slow task", logger, func(ctx context.Context) error {
		<-ctx.Done()
		close(expired)
		return ctx.Err()
	})

	select {
	case <-expired:
	case <-time.After(time.Second):
		t.Fatal("timeout was not enforced")
	}
}
