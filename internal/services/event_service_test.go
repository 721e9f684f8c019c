package services

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadhifr/eventra/internal/models"
)

func TestEventService_Create_NormalizesCode(t *testing.T) {
	eventRepo := &MockEventRepository{}
	svc := NewEventService(eventRepo, NewMockStore(), slog.Default())

	event := testEvent()
	event.Code = "  goph  "

	created, err := svc.Create(context.Background(), event)

	require.NoError(t, err)
	assert.Equal(t, "GOPH", created.Code)
}

func TestEventService_Create_RejectsUnknownLayoutField(t *testing.T) {
	svc := NewEventService(&MockEventRepository{}, NewMockStore(), slog.Default())

	event := testEvent()
	event.CertificateEnabled = true
	event.CertificateLayout = &models.CertificateLayout{
		Fields: map[string]models.TextFieldStyle{
			"shoe_size": {X: 10, Y: 10},
		},
	}

	_, err := svc.Create(context.Background(), event)

	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestEventService_Create_RejectsInvalidAlignment(t *testing.T) {
	svc := NewEventService(&MockEventRepository{}, NewMockStore(), slog.Default())

	event := testEvent()
	event.CertificateEnabled = true
	event.CertificateLayout = &models.CertificateLayout{
		Fields: map[string]models.TextFieldStyle{
			"participant_name": {X: 10, Y: 10, Align: "justified"},
		},
	}

	_, err := svc.Create(context.Background(), event)

	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestEventService_Create_DuplicateCode(t *testing.T) {
	eventRepo := &MockEventRepository{
		CreateFunc: func(ctx context.Context, e *models.Event) (*models.Event, error) {
			return nil, models.ErrConflict
		},
	}
	svc := NewEventService(eventRepo, NewMockStore(), slog.Default())

	_, err := svc.Create(context.Background(), testEvent())

	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestEventService_GetByID_NotFound(t *testing.T) {
	svc := NewEventService(&MockEventRepository{}, NewMockStore(), slog.Default())

	_, err := svc.GetByID(context.Background(), "ghost")

	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestEventService_UploadTemplate(t *testing.T) {
	var savedPath string
	eventRepo := &MockEventRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Event, error) {
			return testEvent(), nil
		},
		SetCertificateTemplateFunc: func(ctx context.Context, id, path string) error {
			savedPath = path
			return nil
		},
	}
	store := NewMockStore()
	svc := NewEventService(eventRepo, store, slog.Default())

	key, err := svc.UploadTemplate(context.Background(), "event-1", "banner.png", "image/png",
		strings.NewReader("png bytes"), 9)

	require.NoError(t, err)
	assert.Equal(t, "templates/event-1/banner.png", key)
	assert.Equal(t, key, savedPath)
	assert.Equal(t, []byte("png bytes"), store.Objects[key])
}

func TestEventService_UploadTemplate_RejectsNonImage(t *testing.T) {
	store := NewMockStore()
	store.SaveFunc = func(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
		t.Fatal("rejected upload must not reach the store")
		return nil
	}
	svc := NewEventService(&MockEventRepository{}, store, slog.Default())

	_, err := svc.UploadTemplate(context.Background(), "event-1", "notes.pdf", "application/pdf",
		strings.NewReader("%PDF"), 4)

	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestEventService_UploadTemplate_UnknownEvent(t *testing.T) {
	svc := NewEventService(&MockEventRepository{}, NewMockStore(), slog.Default())

	_, err := svc.UploadTemplate(context.Background(), "ghost", "banner.png", "image/png",
		strings.NewReader("png bytes"), 9)

	assert.ErrorIs(t, err, models.ErrNotFound)
}
