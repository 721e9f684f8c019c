package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment status values.
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentFailed  = "failed"
	PaymentExpired = "expired"
)

// Payment tracks a registration fee through the external gateway. The pending
// to paid transition happens at most once; the callback handler uses a
// conditional update so duplicate notifications are rejected.
type Payment struct {
	ID               string
	ParticipantID    string
	EventID          string
	InvoiceNumber    string
	Amount           decimal.Decimal
	Status           string
	GatewayReference string
	PaymentURL       string
	PaidAt           *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsPaid reports whether the payment has been settled.
func (p *Payment) IsPaid() bool {
	return p.Status == PaymentPaid
}
