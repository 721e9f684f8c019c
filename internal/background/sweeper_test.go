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

type fakeRetrier struct {
	calls atomic.Int32
	err   error
}

func (f *fakeRetrier) RetryPending(ctx context.Context, limit int) (int, error) {
	f.calls.Add(1)
	return 1, f.err
}

func TestCertificateSweeper_RunsImmediatelyAndStops(t *testing.T) {
	retrier := &fakeRetrier{}
	sweeper := NewCertificateSweeper(retrier, slog.Default(), time.Hour)

	done := make(chan struct{})
	go func() {
		sweeper.Start(context.Background())
		close(done)
	}()

	// The startup sweep runs before the first tick.
	assert.Eventually(t, func() bool {
		return retrier.calls.Load() >= 1
	}, time.Second, 10*time.Millisecond)

	sweeper.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestCertificateSweeper_ContextCancel(t *testing.T) {
	retrier := &fakeRetrier{err: errors.New("db down")}
	sweeper := NewCertificateSweeper(retrier, slog.Default(), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not honor context cancellation")
	}
}
