package models

import (
	"time"
)

// Attendance status values for an event participant.
const (
	AttendancePending    = "pending"
	AttendanceRegistered = "registered"
	AttendanceAttended   = "attended"
)

// Verification methods recorded when attendance is marked.
const (
	VerificationMethodToken  = "token"
	VerificationMethodManual = "manual"
)

// EventParticipant is the registration record. Token fields are a denormalized
// copy of the active registration token so the registration can be displayed
// without a join; the registration_tokens table stays the source of truth.
type EventParticipant struct {
	ID                   string
	EventID              string
	Name                 string
	Email                string
	Phone                string
	RegistrationNumber   string
	AttendanceToken      *string
	TokenGeneratedAt     *time.Time
	TokenExpiresAt       *time.Time
	AttendanceStatus     string
	AttendanceVerifiedAt *time.Time
	VerificationMethod   string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// IsVerified reports whether attendance has already been marked.
// The null-to-set transition happens exactly once.
func (p *EventParticipant) IsVerified() bool {
	return p.AttendanceVerifiedAt != nil
}
