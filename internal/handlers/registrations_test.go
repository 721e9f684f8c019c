package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadhifr/eventra/internal/models"
	"github.com/nadhifr/eventra/internal/services"
)

func registrationRouter(h *RegistrationHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/events/{id}/register", h.Register)
	r.Post("/participants/{id}/resend-token", h.ResendToken)
	return r
}

func TestRegistrationHandler_Register_FreeEvent(t *testing.T) {
	svc := &MockRegistrationService{
		RegisterFunc: func(ctx context.Context, eventID string, input services.RegistrationInput) (*services.RegistrationResult, error) {
			assert.Equal(t, "event-1", eventID)
			assert.Equal(t, "Ayu Lestari", input.Name)
			return &services.RegistrationResult{
				Participant: &models.EventParticipant{
					ID:               "participant-1",
					EventID:          eventID,
					Name:             input.Name,
					Email:            input.Email,
					AttendanceStatus: models.AttendanceRegistered,
				},
			}, nil
		},
	}
	router := registrationRouter(NewRegistrationHandler(svc, &MockTokenService{}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/events/event-1/register",
		strings.NewReader(`{"name":"Ayu Lestari","email":"ayu@example.com"}`))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "payment_url")
}

func TestRegistrationHandler_Register_PaidEvent(t *testing.T) {
	svc := &MockRegistrationService{
		RegisterFunc: func(ctx context.Context, eventID string, input services.RegistrationInput) (*services.RegistrationResult, error) {
			return &services.RegistrationResult{
				Participant: &models.EventParticipant{ID: "participant-1"},
				PaymentURL:  "https://pay.example.com/inv-999",
			}, nil
		},
	}
	router := registrationRouter(NewRegistrationHandler(svc, &MockTokenService{}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/events/event-1/register",
		strings.NewReader(`{"name":"Ayu Lestari","email":"ayu@example.com"}`))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://pay.example.com/inv-999")
}

func TestRegistrationHandler_Register_InvalidEmail(t *testing.T) {
	router := registrationRouter(NewRegistrationHandler(&MockRegistrationService{}, &MockTokenService{}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/events/event-1/register",
		strings.NewReader(`{"name":"Ayu Lestari","email":"not-an-email"}`))
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegistrationHandler_Register_Duplicate(t *testing.T) {
	svc := &MockRegistrationService{
		RegisterFunc: func(ctx context.Context, eventID string, input services.RegistrationInput) (*services.RegistrationResult, error) {
			return nil, models.ErrConflict
		},
	}
	router := registrationRouter(NewRegistrationHandler(svc, &MockTokenService{}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/events/event-1/register",
		strings.NewReader(`{"name":"Ayu Lestari","email":"ayu@example.com"}`))
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegistrationHandler_ResendToken(t *testing.T) {
	tokens := &MockTokenService{
		ResendFunc: func(ctx context.Context, participantID string) (*models.RegistrationToken, error) {
			assert.Equal(t, "participant-1", participantID)
			return &models.RegistrationToken{Token: "1234567890"}, nil
		},
	}
	router := registrationRouter(NewRegistrationHandler(&MockRegistrationService{}, tokens))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/participants/participant-1/resend-token", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	// The token itself never appears in the API response.
	assert.NotContains(t, rec.Body.String(), "1234567890")
}

func TestRegistrationHandler_ResendToken_Cooldown(t *testing.T) {
	tokens := &MockTokenService{
		ResendFunc: func(ctx context.Context, participantID string) (*models.RegistrationToken, error) {
			return nil, models.ErrConflict
		},
	}
	router := registrationRouter(NewRegistrationHandler(&MockRegistrationService{}, tokens))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/participants/participant-1/resend-token", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}
