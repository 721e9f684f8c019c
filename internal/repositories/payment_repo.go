package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nadhifr/eventra/internal/database"
	"github.com/nadhifr/eventra/internal/models"
)

// PaymentRepository handles payment data access
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(db *database.DB) *PaymentRepository {
	return &PaymentRepository{pool: db.Pool}
}

const paymentColumns = `
	id, participant_id, event_id, invoice_number, amount, status,
	gateway_reference, payment_url, paid_at, created_at, updated_at
`

// scanPaymentRow handles nullable fields and populates a Payment model from a database row
func scanPaymentRow(row rowScanner) (*models.Payment, error) {
	var p models.Payment
	var gatewayRef, paymentURL *string
	var paidAt *time.Time

	err := row.Scan(
		&p.ID, &p.ParticipantID, &p.EventID, &p.InvoiceNumber, &p.Amount, &p.Status,
		&gatewayRef, &paymentURL, &paidAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if gatewayRef != nil {
		p.GatewayReference = *gatewayRef
	}
	if paymentURL != nil {
		p.PaymentURL = *paymentURL
	}
	p.PaidAt = paidAt

	return &p, nil
}

// Create inserts a new pending payment
func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) (*models.Payment, error) {
	query := `
		INSERT INTO payments (participant_id, event_id, invoice_number, amount, status,
			gateway_reference, payment_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + paymentColumns

	return scanPaymentRow(r.pool.QueryRow(ctx, query,
		p.ParticipantID, p.EventID, p.InvoiceNumber, p.Amount, p.Status,
		nullIfEmpty(p.GatewayReference), nullIfEmpty(p.PaymentURL)))
}

// GetByInvoice retrieves a payment by invoice number
func (r *PaymentRepository) GetByInvoice(ctx context.Context, invoiceNumber string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE invoice_number = $1`

	return scanPaymentRow(r.pool.QueryRow(ctx, query, invoiceNumber))
}

// MarkPaid moves a payment from pending to paid with a conditional update so
// duplicate gateway notifications cannot settle the same invoice twice.
func (r *PaymentRepository) MarkPaid(ctx context.Context, invoiceNumber, gatewayReference string) (*models.Payment, error) {
	query := `
		UPDATE payments
		SET status = $2, gateway_reference = $3, paid_at = NOW(), updated_at = NOW()
		WHERE invoice_number = $1 AND status = $4
		RETURNING ` + paymentColumns

	p, err := scanPaymentRow(r.pool.QueryRow(ctx, query,
		invoiceNumber, models.PaymentPaid, gatewayReference, models.PaymentPending))
	if err != nil {
		return nil, err
	}

	return p, nil
}

// ListStalePending returns pending payments created before the cutoff, the
// candidate set for gateway status reconciliation when a callback never
// arrived.
func (r *PaymentRepository) ListStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]*models.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, models.PaymentPending, time.Now().Add(-olderThan), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale pending payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p, err := scanPaymentRow(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}

	return payments, rows.Err()
}

// MarkFailed records a failed or expired payment
func (r *PaymentRepository) MarkFailed(ctx context.Context, invoiceNumber, status string) error {
	query := `
		UPDATE payments
		SET status = $2, updated_at = NOW()
		WHERE invoice_number = $1 AND status = $3
	`

	result, err := r.pool.Exec(ctx, query, invoiceNumber, status, models.PaymentPending)
	if err != nil {
		return fmt.Errorf("failed to mark payment %s: %w", status, err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
