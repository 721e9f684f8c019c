package background

import (
	"context"
	"log/slog"
	"time"
)

// PaymentChecker reconciles pending payments against the gateway.
type PaymentChecker interface {
	ReconcilePending(ctx context.Context, limit int) (int, error)
}

// reconcileBatchSize bounds how many stale payments one pass queries.
const reconcileBatchSize = 50

// PaymentReconciler periodically asks the gateway about payments whose
// callback never arrived, so a dropped webhook delays a registration instead
// of losing it.
type PaymentReconciler struct {
	payments PaymentChecker
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewPaymentReconciler creates a new reconciler
func NewPaymentReconciler(payments PaymentChecker, logger *slog.Logger, interval time.Duration) *PaymentReconciler {
	return &PaymentReconciler{
		payments: payments,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic reconciliation. It blocks until Stop is called
// or the context is cancelled.
func (r *PaymentReconciler) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.runPass(ctx)
		case <-r.stopCh:
			r.logger.Info("payment reconciler stopped")
			return
		case <-ctx.Done():
			r.logger.Info("payment reconciler context cancelled")
			return
		}
	}
}

func (r *PaymentReconciler) runPass(ctx context.Context) {
	passCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	settled, err := r.payments.ReconcilePending(passCtx, reconcileBatchSize)
	if err != nil {
		r.logger.Error("payment reconciliation failed", slog.Any("error", err))
		return
	}

	if settled > 0 {
		r.logger.Info("payments settled by reconciliation", slog.Int("count", settled))
	}
}

// Stop signals the reconciler to stop
func (r *PaymentReconciler) Stop() {
	close(r.stopCh)
}
