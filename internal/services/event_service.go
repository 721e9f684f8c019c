package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/nadhifr/eventra/internal/models"
	"github.com/nadhifr/eventra/internal/render"
	"github.com/nadhifr/eventra/pkg/storage"
)

// EventService manages event records for admin operators.
type EventService struct {
	eventRepo EventRepository
	store     storage.Store
	logger    *slog.Logger
}

func NewEventService(eventRepo EventRepository, store storage.Store, logger *slog.Logger) *EventService {
	return &EventService{eventRepo: eventRepo, store: store, logger: logger}
}

// Create validates and stores a new event.
func (s *EventService) Create(ctx context.Context, event *models.Event) (*models.Event, error) {
	event.Code = strings.ToUpper(strings.TrimSpace(event.Code))

	if event.CertificateEnabled && event.CertificateLayout != nil {
		if err := validateLayout(event.CertificateLayout); err != nil {
			return nil, fmt.Errorf("%w: %s", models.ErrBadRequest, err.Error())
		}
	}

	created, err := s.eventRepo.Create(ctx, event)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, fmt.Errorf("%w: event code is already in use", models.ErrConflict)
		}
		s.logger.Error("failed to create event", slog.String("code", event.Code), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("event created", slog.String("event_id", created.ID), slog.String("code", created.Code))
	return created, nil
}

// GetByID loads one event.
func (s *EventService) GetByID(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to load event", slog.String("event_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return event, nil
}

// UploadTemplate stores a certificate template image in the artifact store
// and points the event at it. Returns the object key written into the event.
func (s *EventService) UploadTemplate(ctx context.Context, eventID, filename, contentType string, body io.Reader, size int64) (string, error) {
	switch contentType {
	case "image/png", "image/jpeg":
	default:
		return "", fmt.Errorf("%w: template must be a PNG or JPEG image", models.ErrBadRequest)
	}

	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", models.ErrNotFound
		}
		s.logger.Error("failed to load event", slog.String("event_id", eventID), slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	key := storage.TemplateKey(eventID, filename)
	if err := s.store.Save(ctx, key, contentType, body, size); err != nil {
		s.logger.Error("failed to store certificate template",
			slog.String("event_id", eventID),
			slog.String("key", key),
			slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	if err := s.eventRepo.SetCertificateTemplate(ctx, eventID, key); err != nil {
		s.logger.Error("failed to update certificate template path",
			slog.String("event_id", eventID),
			slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	s.logger.Info("certificate template uploaded",
		slog.String("event_id", eventID),
		slog.String("key", key))
	return key, nil
}

// validateLayout rejects layouts referencing unknown field names or using
// negative coordinates, before they reach the renderer.
func validateLayout(layout *models.CertificateLayout) error {
	known := map[string]bool{
		render.FieldParticipantName:   true,
		render.FieldEventDate:         true,
		render.FieldCertificateNumber: true,
	}

	for name, style := range layout.Fields {
		if !known[name] {
			return fmt.Errorf("unknown layout field %q", name)
		}
		if style.X < 0 || style.Y < 0 {
			return fmt.Errorf("layout field %q has negative coordinates", name)
		}
		switch style.Align {
		case "", "left", "center", "right":
		default:
			return fmt.Errorf("layout field %q has invalid alignment %q", name, style.Align)
		}
	}

	if layout.QR != nil && (layout.QR.X < 0 || layout.QR.Y < 0 || layout.QR.Size < 0) {
		return fmt.Errorf("qr placement has negative values")
	}

	return nil
}
