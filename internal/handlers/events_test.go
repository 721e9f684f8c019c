package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadhifr/eventra/internal/models"
)

func eventRouter(h *EventHandler) http.Handler {
	r := chi.NewRouter()
	r.Put("/events/{id}/template", h.UploadTemplate)
	return r
}

func TestEventHandler_UploadTemplate(t *testing.T) {
	svc := &MockEventService{
		UploadTemplateFunc: func(ctx context.Context, eventID, filename, contentType string, body io.Reader, size int64) (string, error) {
			assert.Equal(t, "event-1", eventID)
			assert.Equal(t, "banner.png", filename)
			assert.Equal(t, "image/png", contentType)
			return "templates/event-1/banner.png", nil
		},
	}
	router := eventRouter(NewEventHandler(svc))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/events/event-1/template?filename=banner.png",
		strings.NewReader("png bytes"))
	req.Header.Set("Content-Type", "image/png")
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"certificate_template_path":"templates/event-1/banner.png"`)
}

func TestEventHandler_UploadTemplate_EmptyBody(t *testing.T) {
	router := eventRouter(NewEventHandler(&MockEventService{}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/events/event-1/template", nil)
	req.Header.Set("Content-Type", "image/png")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventHandler_UploadTemplate_UnknownEvent(t *testing.T) {
	svc := &MockEventService{
		UploadTemplateFunc: func(ctx context.Context, eventID, filename, contentType string, body io.Reader, size int64) (string, error) {
			return "", models.ErrNotFound
		},
	}
	router := eventRouter(NewEventHandler(svc))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/events/ghost/template", strings.NewReader("png bytes"))
	req.Header.Set("Content-Type", "image/png")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
