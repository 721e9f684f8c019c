package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nadhifr/eventra/internal/models"
	"github.com/nadhifr/eventra/internal/services"
	pkghttp "github.com/nadhifr/eventra/pkg/http"
)

// CertificateService defines the interface for certificate business logic
type CertificateService interface {
	GenerateForParticipant(ctx context.Context, eventID, participantID string) (*models.Certificate, error)
	GenerateForEvent(ctx context.Context, eventID string) (*services.BatchResult, error)
	Lookup(ctx context.Context, certificateNumber string) (*models.Certificate, error)
	Download(ctx context.Context, certificateNumber string) (*models.Certificate, io.ReadCloser, error)
}

// CertificateHandler handles certificate HTTP requests
type CertificateHandler struct {
	service         CertificateService
	downloadBaseURL string
}

// NewCertificateHandler creates a new CertificateHandler. downloadBaseURL,
// when set, is prefixed to certificate numbers to form public download links
// in responses.
func NewCertificateHandler(service CertificateService, downloadBaseURL string) *CertificateHandler {
	return &CertificateHandler{service: service, downloadBaseURL: downloadBaseURL}
}

// GenerateParticipantRequest selects one participant in a generation request
type GenerateParticipantRequest struct {
	ParticipantID string `json:"participant_id" validate:"required,uuid"`
}

// GenerateBatchResponse is the envelope for a whole-event generation run.
type GenerateBatchResponse struct {
	Success           bool     `json:"success"`
	Message           string   `json:"message"`
	Generated         int      `json:"generated"`
	Skipped           int      `json:"skipped"`
	TotalParticipants int      `json:"total_participants"`
	Errors            []string `json:"errors,omitempty"`
}

// CertificateResponse represents a certificate in HTTP responses
type CertificateResponse struct {
	ID                string `json:"id"`
	CertificateNumber string `json:"certificate_number"`
	ParticipantName   string `json:"participant_name"`
	EventTitle        string `json:"event_title"`
	Status            string `json:"status"`
	FileName          string `json:"file_name,omitempty"`
	IssuedAt          string `json:"issued_at"`
	DownloadCount     int    `json:"download_count"`
	DownloadURL       string `json:"download_url,omitempty"`
}

func (h *CertificateHandler) certificateToResponse(c *models.Certificate) *CertificateResponse {
	return &CertificateResponse{
		ID:                c.ID,
		CertificateNumber: c.CertificateNumber,
		ParticipantName:   c.ParticipantName,
		EventTitle:        c.EventTitle,
		Status:            c.Status,
		FileName:          c.FileName,
		IssuedAt:          c.IssuedAt.Format("2006-01-02T15:04:05Z07:00"),
		DownloadCount:     c.DownloadCount,
		DownloadURL:       h.downloadURL(c),
	}
}

func (h *CertificateHandler) downloadURL(c *models.Certificate) string {
	if h.downloadBaseURL == "" || !c.IsGenerated() {
		return ""
	}
	return fmt.Sprintf("%s/%s/download", h.downloadBaseURL, c.CertificateNumber)
}

// GenerateForEvent handles POST /events/{id}/certificates/generate (admin
// only). With a participant_id in the body it generates just that one.
func (h *CertificateHandler) GenerateForEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	if r.ContentLength > 0 {
		var req GenerateParticipantRequest
		if err := decodeJSON(r, &req); err != nil {
			pkghttp.WriteBadRequest(w, "invalid request body")
			return
		}
		if err := ValidateRequest(req); err != nil {
			pkghttp.WriteBadRequest(w, err.Error())
			return
		}

		cert, err := h.service.GenerateForParticipant(r.Context(), eventID, req.ParticipantID)
		if err != nil {
			writeCertificateError(w, err)
			return
		}
		pkghttp.WriteJSON(w, http.StatusCreated, h.certificateToResponse(cert))
		return
	}

	result, err := h.service.GenerateForEvent(r.Context(), eventID)
	if err != nil {
		writeCertificateError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, GenerateBatchResponse{
		Success:           true,
		Message:           "certificate generation completed",
		Generated:         result.Generated,
		Skipped:           result.Skipped,
		TotalParticipants: result.TotalParticipants,
		Errors:            result.Errors,
	})
}

// Download handles GET /certificates/{number}/download. The certificate
// number doubles as the access credential; there is no auth beyond knowing
// the unguessable number from the QR code or email.
func (h *CertificateHandler) Download(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")

	cert, body, err := h.service.Download(r.Context(), number)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "certificate not found")
			return
		}
		pkghttp.WriteInternalError(w, "download failed")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", cert.FileName))
	if cert.FileSize > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(cert.FileSize, 10))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, body)
}

// Lookup handles GET /certificates/{number}, the QR verification endpoint.
func (h *CertificateHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")

	cert, err := h.service.Lookup(r.Context(), number)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "certificate not found")
			return
		}
		pkghttp.WriteInternalError(w, "lookup failed")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, h.certificateToResponse(cert))
}

func writeCertificateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "event not found")
	case errors.Is(err, models.ErrParticipantNotFound):
		pkghttp.WriteNotFound(w, "participant not found for event")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, err.Error())
	default:
		pkghttp.WriteInternalError(w, "certificate generation failed")
	}
}
