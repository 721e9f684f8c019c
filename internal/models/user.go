package models

import (
	"time"
)

// User is an admin operator account. Participants are not users; they are
// tracked as event_participants and never log in.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Role         string // "admin" or "organizer"
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
