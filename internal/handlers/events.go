package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/nadhifr/eventra/internal/models"
	pkghttp "github.com/nadhifr/eventra/pkg/http"
)

// EventService defines the interface for event business logic
type EventService interface {
	Create(ctx context.Context, event *models.Event) (*models.Event, error)
	GetByID(ctx context.Context, id string) (*models.Event, error)
	UploadTemplate(ctx context.Context, eventID, filename, contentType string, body io.Reader, size int64) (string, error)
}

// maxTemplateSize bounds uploaded certificate template images.
const maxTemplateSize = 10 << 20

// EventHandler handles admin event management
type EventHandler struct {
	service EventService
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(service EventService) *EventHandler {
	return &EventHandler{service: service}
}

// CreateEventRequest represents the request body for creating an event
type CreateEventRequest struct {
	Code                    string                    `json:"code" validate:"required,min=2,max=12,alphanum"`
	Title                   string                    `json:"title" validate:"required,min=3,max=200"`
	Description             string                    `json:"description" validate:"max=2000"`
	EventDate               time.Time                 `json:"event_date" validate:"required"`
	Location                string                    `json:"location" validate:"max=200"`
	FeeAmount               decimal.Decimal           `json:"fee_amount"`
	CertificateEnabled      bool                      `json:"certificate_enabled"`
	CertificateTemplatePath string                    `json:"certificate_template_path" validate:"omitempty,max=500"`
	CertificateLayout       *models.CertificateLayout `json:"certificate_layout"`
}

// EventResponse represents an event in HTTP responses
type EventResponse struct {
	ID                      string                    `json:"id"`
	Code                    string                    `json:"code"`
	Title                   string                    `json:"title"`
	Description             string                    `json:"description,omitempty"`
	EventDate               time.Time                 `json:"event_date"`
	Location                string                    `json:"location,omitempty"`
	FeeAmount               decimal.Decimal           `json:"fee_amount"`
	CertificateEnabled      bool                      `json:"certificate_enabled"`
	CertificateLayout       *models.CertificateLayout `json:"certificate_layout,omitempty"`
	CertificatesGeneratedAt *time.Time                `json:"certificates_generated_at,omitempty"`
	CreatedAt               time.Time                 `json:"created_at"`
}

func eventToResponse(e *models.Event) *EventResponse {
	return &EventResponse{
		ID:                      e.ID,
		Code:                    e.Code,
		Title:                   e.Title,
		Description:             e.Description,
		EventDate:               e.EventDate,
		Location:                e.Location,
		FeeAmount:               e.FeeAmount,
		CertificateEnabled:      e.CertificateEnabled,
		CertificateLayout:       e.CertificateLayout,
		CertificatesGeneratedAt: e.CertificatesGeneratedAt,
		CreatedAt:               e.CreatedAt,
	}
}

// Create handles POST /events (admin only)
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}
	if req.FeeAmount.IsNegative() {
		pkghttp.WriteBadRequest(w, "fee_amount must not be negative")
		return
	}

	event, err := h.service.Create(r.Context(), &models.Event{
		Code:                    req.Code,
		Title:                   req.Title,
		Description:             req.Description,
		EventDate:               req.EventDate,
		Location:                req.Location,
		FeeAmount:               req.FeeAmount,
		CertificateEnabled:      req.CertificateEnabled,
		CertificateTemplatePath: req.CertificateTemplatePath,
		CertificateLayout:       req.CertificateLayout,
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "event code is already in use")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, err.Error())
		default:
			pkghttp.WriteInternalError(w, "failed to create event")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, eventToResponse(event))
}

// Get handles GET /events/{id}
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	event, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "event not found")
			return
		}
		pkghttp.WriteInternalError(w, "failed to load event")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, eventToResponse(event))
}

// UploadTemplate handles PUT /events/{id}/template (admin only). The image
// is the raw request body; an optional filename query parameter names the
// stored object.
func (h *EventHandler) UploadTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	filename := r.URL.Query().Get("filename")
	if filename == "" {
		filename = "template.png"
	}

	if r.ContentLength <= 0 {
		pkghttp.WriteBadRequest(w, "template image body is required")
		return
	}
	if r.ContentLength > maxTemplateSize {
		pkghttp.WriteBadRequest(w, "template image exceeds the 10MB limit")
		return
	}

	body := http.MaxBytesReader(w, r.Body, maxTemplateSize)
	key, err := h.service.UploadTemplate(r.Context(), id, filename, r.Header.Get("Content-Type"), body, r.ContentLength)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "event not found")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, err.Error())
		default:
			pkghttp.WriteInternalError(w, "failed to store template")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"certificate_template_path": key})
}
