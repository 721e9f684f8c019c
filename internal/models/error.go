package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Attendance flow errors. ErrInvalidOrExpiredToken is deliberately a single
	// bucket for wrong value, wrong event, already used and expired so the API
	// never tells a guesser which condition failed.
	ErrInvalidOrExpiredToken    = errors.New("invalid or expired token")
	ErrParticipantNotFound      = errors.New("participant not found for event")
	ErrAlreadyCheckedIn         = errors.New("attendance already verified")
	ErrTokenGenerationExhausted = errors.New("token generation attempts exhausted")

	// Payment flow errors
	ErrInvalidSignature        = errors.New("invalid gateway signature")
	ErrPaymentAlreadyProcessed = errors.New("payment already processed")
)
