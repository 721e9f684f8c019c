package background

import (
	"context"
	"log/slog"
	"time"
)

// PendingRetrier retries certificate stubs left pending by render failures.
type PendingRetrier interface {
	RetryPending(ctx context.Context, limit int) (int, error)
}

// sweepBatchSize bounds how many pending stubs one sweep attempts.
const sweepBatchSize = 50

// CertificateSweeper periodically re-renders pending certificate stubs.
// Attendance tokens are deliberately not swept; redeemed and expired rows
// stay in the database as an audit trail.
type CertificateSweeper struct {
	certs    PendingRetrier
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewCertificateSweeper creates a new sweeper
func NewCertificateSweeper(certs PendingRetrier, logger *slog.Logger, interval time.Duration) *CertificateSweeper {
	return &CertificateSweeper{
		certs:    certs,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep. It blocks until Stop is called or the
// context is cancelled.
func (s *CertificateSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on startup to recover stubs from a previous crash.
	s.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.runSweep(ctx)
		case <-s.stopCh:
			s.logger.Info("certificate sweeper stopped")
			return
		case <-ctx.Done():
			s.logger.Info("certificate sweeper context cancelled")
			return
		}
	}
}

func (s *CertificateSweeper) runSweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	recovered, err := s.certs.RetryPending(sweepCtx, sweepBatchSize)
	if err != nil {
		s.logger.Error("pending certificate sweep failed", slog.Any("error", err))
		return
	}

	if recovered > 0 {
		s.logger.Info("pending certificates recovered", slog.Int("count", recovered))
	}
}

// Stop signals the sweeper to stop
func (s *CertificateSweeper) Stop() {
	close(s.stopCh)
}
