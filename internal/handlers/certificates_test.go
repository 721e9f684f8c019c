package handlers

import (
	"context"
	"encoding/json"
	"io"
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

func certRouter(h *CertificateHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/events/{id}/certificates/generate", h.GenerateForEvent)
	r.Get("/certificates/{number}", h.Lookup)
	r.Get("/certificates/{number}/download", h.Download)
	return r
}

func TestCertificateHandler_GenerateForEvent_Batch(t *testing.T) {
	svc := &MockCertificateService{
		GenerateForEventFunc: func(ctx context.Context, eventID string) (*services.BatchResult, error) {
			assert.Equal(t, "event-1", eventID)
			return &services.BatchResult{
				Generated:         5,
				Skipped:           2,
				TotalParticipants: 8,
				Errors:            []string{"participant p-9: render failed"},
			}, nil
		},
	}
	router := certRouter(NewCertificateHandler(svc, ""))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/events/event-1/certificates/generate", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp GenerateBatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "certificate generation completed", resp.Message)
	assert.Equal(t, 5, resp.Generated)
	assert.Equal(t, 2, resp.Skipped)
	assert.Equal(t, 8, resp.TotalParticipants)
	assert.Equal(t, []string{"participant p-9: render failed"}, resp.Errors)
}

func TestCertificateHandler_GenerateForEvent_SingleParticipant(t *testing.T) {
	svc := &MockCertificateService{
		GenerateForParticipantFunc: func(ctx context.Context, eventID, participantID string) (*models.Certificate, error) {
			return &models.Certificate{
				ID:                "cert-1",
				CertificateNumber: "GOPH-202608-AB12CD34",
				Status:            models.CertificateGenerated,
			}, nil
		},
	}
	router := certRouter(NewCertificateHandler(svc, ""))

	body := `{"participant_id":"` + testEventID + `"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/events/event-1/certificates/generate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "GOPH-202608-AB12CD34")
}

func TestCertificateHandler_GenerateForEvent_Disabled(t *testing.T) {
	svc := &MockCertificateService{
		GenerateForEventFunc: func(ctx context.Context, eventID string) (*services.BatchResult, error) {
			return nil, models.ErrBadRequest
		},
	}
	router := certRouter(NewCertificateHandler(svc, ""))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/events/event-1/certificates/generate", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCertificateHandler_Download(t *testing.T) {
	svc := &MockCertificateService{
		DownloadFunc: func(ctx context.Context, number string) (*models.Certificate, io.ReadCloser, error) {
			assert.Equal(t, "GOPH-202608-AB12CD34", number)
			return &models.Certificate{
				FileName: "GOPH-202608-AB12CD34.pdf",
				FileSize: 13,
				Status:   models.CertificateGenerated,
			}, io.NopCloser(strings.NewReader("%PDF-1.4 fake")), nil
		},
	}
	router := certRouter(NewCertificateHandler(svc, ""))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/certificates/GOPH-202608-AB12CD34/download", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "GOPH-202608-AB12CD34.pdf")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))
}

func TestCertificateHandler_Download_NotFound(t *testing.T) {
	router := certRouter(NewCertificateHandler(&MockCertificateService{}, ""))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/certificates/NOPE-000000-DEADBEEF/download", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCertificateHandler_Lookup(t *testing.T) {
	svc := &MockCertificateService{
		LookupFunc: func(ctx context.Context, number string) (*models.Certificate, error) {
			return &models.Certificate{
				CertificateNumber: number,
				ParticipantName:   "Ayu Lestari",
				EventTitle:        "GopherCon ID",
				Status:            models.CertificateGenerated,
			}, nil
		},
	}
	router := certRouter(NewCertificateHandler(svc, ""))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/certificates/GOPH-202608-AB12CD34", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ayu Lestari")
}

func TestCertificateHandler_Lookup_DownloadURL(t *testing.T) {
	svc := &MockCertificateService{
		LookupFunc: func(ctx context.Context, number string) (*models.Certificate, error) {
			return &models.Certificate{
				CertificateNumber: number,
				Status:            models.CertificateGenerated,
			}, nil
		},
	}
	router := certRouter(NewCertificateHandler(svc, "https://events.example.com/certificates"))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/certificates/GOPH-202608-AB12CD34", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(),
		`"download_url":"https://events.example.com/certificates/GOPH-202608-AB12CD34/download"`)
}
