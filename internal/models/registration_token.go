package models

import (
	"time"
)

// TokenLength is the number of digits in an attendance token.
const TokenLength = 10

// TokenValidity is how long an attendance token stays redeemable after issue.
const TokenValidity = 7 * 24 * time.Hour

// RegistrationToken is a single-use attendance token. Rows are never deleted;
// redeemed and expired tokens remain as an audit trail.
type RegistrationToken struct {
	ID            string
	Token         string // 10-digit numeric string, globally unique
	ParticipantID string
	EventID       string
	Email         string
	Used          bool
	UsedAt        *time.Time
	ExpiresAt     time.Time
	CreatedAt     time.Time
}

// IsExpired checks if the token has passed its expiry time.
func (t *RegistrationToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// IsUsed checks if the token has already been redeemed.
func (t *RegistrationToken) IsUsed() bool {
	return t.Used
}

// IsValid checks if the token is still redeemable (not expired and not used).
func (t *RegistrationToken) IsValid() bool {
	return !t.IsExpired() && !t.IsUsed()
}
