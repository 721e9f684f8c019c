package background

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeChecker struct {
	calls atomic.Int32
	err   error
}

func (f *fakeChecker) ReconcilePending(ctx context.Context, limit int) (int, error) {
	f.calls.Add(1)
	return 1, f.err
}

func TestPaymentReconciler_TicksAndStops(t *testing.T) {
	checker := &fakeChecker{}
	reconciler := NewPaymentReconciler(checker, slog.Default(), 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		reconciler.Start(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return checker.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	reconciler.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop")
	}
}

func TestPaymentReconciler_ContextCancel(t *testing.T) {
	checker := &fakeChecker{err: errors.New("gateway down")}
	reconciler := NewPaymentReconciler(checker, slog.Default(), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reconciler.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reconciler did not honor context cancellation")
	}
}
