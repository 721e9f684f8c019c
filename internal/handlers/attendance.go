package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/nadhifr/eventra/internal/models"
	pkghttp "github.com/nadhifr/eventra/pkg/http"
)

// AttendanceService defines the interface for attendance business logic.
// The bool reports whether a certificate was generated during check-in.
type AttendanceService interface {
	Verify(ctx context.Context, tokenValue, eventID, ipAddress string) (*models.EventParticipant, bool, error)
	VerifyManual(ctx context.Context, participantID, eventID, ipAddress string) (*models.EventParticipant, bool, error)
}

// AttendanceHandler handles attendance verification HTTP requests
type AttendanceHandler struct {
	service AttendanceService
}

// NewAttendanceHandler creates a new AttendanceHandler
func NewAttendanceHandler(service AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: service}
}

// VerifyRequest represents the check-in request body
type VerifyRequest struct {
	Token   string `json:"token" validate:"required,len=10,numeric"`
	EventID string `json:"event_id" validate:"required,uuid"`
}

// ManualVerifyRequest represents a staff-desk manual check-in
type ManualVerifyRequest struct {
	ParticipantID string `json:"participant_id" validate:"required,uuid"`
	EventID       string `json:"event_id" validate:"required,uuid"`
}

// ParticipantResponse represents a participant in HTTP responses
type ParticipantResponse struct {
	ID                   string     `json:"id"`
	EventID              string     `json:"event_id"`
	Name                 string     `json:"name"`
	Email                string     `json:"email"`
	RegistrationNumber   string     `json:"registration_number"`
	AttendanceStatus     string     `json:"attendance_status"`
	AttendanceVerifiedAt *time.Time `json:"attendance_verified_at,omitempty"`
	VerificationMethod   string     `json:"verification_method,omitempty"`
}

// VerifyResponse is returned from a successful check-in
type VerifyResponse struct {
	Success              bool                 `json:"success"`
	Message              string               `json:"message"`
	Participant          *ParticipantResponse `json:"participant"`
	CertificateGenerated bool                 `json:"certificate_generated"`
}

func participantToResponse(p *models.EventParticipant) *ParticipantResponse {
	return &ParticipantResponse{
		ID:                   p.ID,
		EventID:              p.EventID,
		Name:                 p.Name,
		Email:                p.Email,
		RegistrationNumber:   p.RegistrationNumber,
		AttendanceStatus:     p.AttendanceStatus,
		AttendanceVerifiedAt: p.AttendanceVerifiedAt,
		VerificationMethod:   p.VerificationMethod,
	}
}

// Verify handles POST /attendance/verify
func (h *AttendanceHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	participant, certGenerated, err := h.service.Verify(r.Context(), req.Token, req.EventID, clientIP(r))
	if err != nil {
		writeAttendanceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, VerifyResponse{
		Success:              true,
		Message:              "attendance verified",
		Participant:          participantToResponse(participant),
		CertificateGenerated: certGenerated,
	})
}

// VerifyManual handles POST /attendance/verify-manual (admin only)
func (h *AttendanceHandler) VerifyManual(w http.ResponseWriter, r *http.Request) {
	var req ManualVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	participant, certGenerated, err := h.service.VerifyManual(r.Context(), req.ParticipantID, req.EventID, clientIP(r))
	if err != nil {
		writeAttendanceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, VerifyResponse{
		Success:              true,
		Message:              "attendance verified",
		Participant:          participantToResponse(participant),
		CertificateGenerated: certGenerated,
	})
}

func writeAttendanceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidOrExpiredToken):
		pkghttp.WriteError(w, http.StatusUnprocessableEntity, "invalid_token", "invalid or expired token")
	case errors.Is(err, models.ErrAlreadyCheckedIn):
		pkghttp.WriteConflict(w, "attendance already verified")
	case errors.Is(err, models.ErrParticipantNotFound):
		pkghttp.WriteNotFound(w, "participant not found for event")
	default:
		pkghttp.WriteInternalError(w, "verification failed")
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
