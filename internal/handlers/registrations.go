package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nadhifr/eventra/internal/models"
	"github.com/nadhifr/eventra/internal/services"
	pkghttp "github.com/nadhifr/eventra/pkg/http"
)

// RegistrationService defines the interface for registration business logic
type RegistrationService interface {
	Register(ctx context.Context, eventID string, input services.RegistrationInput) (*services.RegistrationResult, error)
}

// TokenService defines the interface for attendance token operations used
// over HTTP
type TokenService interface {
	Resend(ctx context.Context, participantID string) (*models.RegistrationToken, error)
}

// RegistrationHandler handles public event registration
type RegistrationHandler struct {
	registrations RegistrationService
	tokens        TokenService
}

// NewRegistrationHandler creates a new RegistrationHandler
func NewRegistrationHandler(registrations RegistrationService, tokens TokenService) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations, tokens: tokens}
}

// RegisterRequest represents the public registration request body
type RegisterRequest struct {
	Name  string `json:"name" validate:"required,min=2,max=120"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"omitempty,min=6,max=20"`
}

// RegisterResponse is returned from POST /events/{id}/register. PaymentURL
// is only set for paid events.
type RegisterResponse struct {
	Participant *ParticipantResponse `json:"participant"`
	PaymentURL  string               `json:"payment_url,omitempty"`
}

// Register handles POST /events/{id}/register
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	result, err := h.registrations.Register(r.Context(), eventID, services.RegistrationInput{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "event not found")
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "this email is already registered for the event")
		default:
			pkghttp.WriteInternalError(w, "registration failed")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, RegisterResponse{
		Participant: participantToResponse(result.Participant),
		PaymentURL:  result.PaymentURL,
	})
}

// ResendToken handles POST /participants/{id}/resend-token (admin only)
func (h *RegistrationHandler) ResendToken(w http.ResponseWriter, r *http.Request) {
	participantID := chi.URLParam(r, "id")

	_, err := h.tokens.Resend(r.Context(), participantID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrParticipantNotFound):
			pkghttp.WriteNotFound(w, "participant not found")
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "token was sent recently, try again later")
		default:
			pkghttp.WriteInternalError(w, "failed to resend token")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}
