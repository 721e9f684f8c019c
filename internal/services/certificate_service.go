package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/nadhifr/eventra/internal/models"
	"github.com/nadhifr/eventra/internal/monitoring"
	"github.com/nadhifr/eventra/internal/render"
	"github.com/nadhifr/eventra/pkg/logger"
	"github.com/nadhifr/eventra/pkg/storage"
)

// CertificateRepository defines the interface for certificate storage
type CertificateRepository interface {
	Create(ctx context.Context, c *models.Certificate) (*models.Certificate, error)
	GetByEventAndParticipant(ctx context.Context, eventID, participantID string) (*models.Certificate, error)
	GetByNumber(ctx context.Context, number string) (*models.Certificate, error)
	SetGenerated(ctx context.Context, id, filePath, fileName string, fileSize int64, issuedAt time.Time) (*models.Certificate, error)
	IncrementDownloadCount(ctx context.Context, id string) error
	ListPending(ctx context.Context, limit int) ([]*models.Certificate, error)
}

// CertificateRenderer renders one certificate PDF from a template and layout.
type CertificateRenderer interface {
	RenderPDF(req render.Request) ([]byte, error)
}

// BatchResult summarizes a whole-event certificate generation run.
type BatchResult struct {
	Generated         int      `json:"generated"`
	Skipped           int      `json:"skipped"`
	TotalParticipants int      `json:"total_participants"`
	Errors            []string `json:"errors,omitempty"`
}

// CertificateService issues attendance certificates. Issuance is a two-phase
// write: a pending row first, then the rendered PDF, then promotion to
// generated. A crash or render failure between the phases leaves a pending
// stub that the background sweeper retries, so a certificate number is never
// minted twice for the same registration.
type CertificateService struct {
	certRepo        CertificateRepository
	participantRepo ParticipantRepository
	eventRepo       EventRepository
	renderer        CertificateRenderer
	store           storage.Store
	auditLogger     *logger.AuditLogger
	logger          *slog.Logger
	verifyURLBase   string
}

func NewCertificateService(
	certRepo CertificateRepository,
	participantRepo ParticipantRepository,
	eventRepo EventRepository,
	renderer CertificateRenderer,
	store storage.Store,
	auditLogger *logger.AuditLogger,
	slogger *slog.Logger,
	verifyURLBase string,
) *CertificateService {
	return &CertificateService{
		certRepo:        certRepo,
		participantRepo: participantRepo,
		eventRepo:       eventRepo,
		renderer:        renderer,
		store:           store,
		auditLogger:     auditLogger,
		logger:          slogger,
		verifyURLBase:   verifyURLBase,
	}
}

// GenerateForParticipant issues the certificate for one verified participant.
// The operation is idempotent: an already generated certificate is returned
// as-is, and a pending stub left by an earlier failure is re-rendered under
// its original certificate number.
func (s *CertificateService) GenerateForParticipant(ctx context.Context, eventID, participantID string) (*models.Certificate, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to load event", slog.String("event_id", eventID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !event.CanIssueCertificates() {
		return nil, fmt.Errorf("%w: certificates are not enabled for this event", models.ErrBadRequest)
	}

	participant, err := s.participantRepo.GetByIDAndEvent(ctx, participantID, eventID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrParticipantNotFound
		}
		s.logger.Error("failed to load participant", slog.String("participant_id", participantID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !participant.IsVerified() {
		return nil, fmt.Errorf("%w: attendance has not been verified", models.ErrBadRequest)
	}

	cert, err := s.findOrCreateStub(ctx, event, participant)
	if err != nil {
		return nil, err
	}
	if cert.IsGenerated() {
		return cert, nil
	}

	return s.renderAndPromote(ctx, event, cert)
}

// GenerateForEvent issues certificates for every verified participant of an
// event. Individual failures do not abort the batch; the caller gets one
// error line per participant that needs a retry. The event is stamped when
// the batch completes, failures included, so the stamp records when the run
// happened rather than whether it was clean.
func (s *CertificateService) GenerateForEvent(ctx context.Context, eventID string) (*BatchResult, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to load event", slog.String("event_id", eventID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !event.CanIssueCertificates() {
		return nil, fmt.Errorf("%w: certificates are not enabled for this event", models.ErrBadRequest)
	}

	participants, err := s.participantRepo.ListVerifiedByEvent(ctx, eventID)
	if err != nil {
		s.logger.Error("failed to list verified participants", slog.String("event_id", eventID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	result := &BatchResult{TotalParticipants: len(participants)}
	for _, participant := range participants {
		cert, err := s.findOrCreateStub(ctx, event, participant)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("participant %s: %v", participant.ID, err))
			continue
		}
		if cert.IsGenerated() {
			result.Skipped++
			continue
		}
		if _, err := s.renderAndPromote(ctx, event, cert); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("participant %s: %v", participant.ID, err))
			continue
		}
		result.Generated++
	}

	if err := s.eventRepo.StampCertificatesGenerated(ctx, eventID); err != nil {
		s.logger.Warn("failed to stamp event certificates_generated_at",
			slog.String("event_id", eventID),
			slog.Any("error", err))
	}

	s.logger.Info("certificate batch completed",
		slog.String("event_id", eventID),
		slog.Int("generated", result.Generated),
		slog.Int("skipped", result.Skipped),
		slog.Int("failed", len(result.Errors)))

	return result, nil
}

// RetryPending re-renders pending stubs left behind by earlier failures.
// Called by the background sweeper.
func (s *CertificateService) RetryPending(ctx context.Context, limit int) (int, error) {
	pending, err := s.certRepo.ListPending(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list pending certificates: %w", err)
	}

	recovered := 0
	for _, cert := range pending {
		event, err := s.eventRepo.GetByID(ctx, cert.EventID)
		if err != nil || !event.CanIssueCertificates() {
			continue
		}
		if _, err := s.renderAndPromote(ctx, event, cert); err != nil {
			s.logger.Warn("pending certificate retry failed",
				slog.String("certificate_id", cert.ID),
				slog.Any("error", err))
			continue
		}
		recovered++
	}

	return recovered, nil
}

// Lookup returns the public record behind a certificate number, for the QR
// verification page. Pending stubs stay invisible.
func (s *CertificateService) Lookup(ctx context.Context, certificateNumber string) (*models.Certificate, error) {
	cert, err := s.certRepo.GetByNumber(ctx, certificateNumber)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to load certificate", slog.String("certificate_number", certificateNumber), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if !cert.IsGenerated() {
		return nil, models.ErrNotFound
	}
	return cert, nil
}

// Download streams a generated certificate PDF and counts the download.
func (s *CertificateService) Download(ctx context.Context, certificateNumber string) (*models.Certificate, io.ReadCloser, error) {
	cert, err := s.certRepo.GetByNumber(ctx, certificateNumber)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil, models.ErrNotFound
		}
		s.logger.Error("failed to load certificate", slog.String("certificate_number", certificateNumber), slog.Any("error", err))
		return nil, nil, models.ErrInternalServer
	}

	if !cert.IsGenerated() {
		return nil, nil, models.ErrNotFound
	}

	body, err := s.store.Open(ctx, cert.FilePath)
	if err != nil {
		s.logger.Error("failed to open certificate artifact",
			slog.String("certificate_id", cert.ID),
			slog.String("file_path", cert.FilePath),
			slog.Any("error", err))
		return nil, nil, models.ErrInternalServer
	}

	if err := s.certRepo.IncrementDownloadCount(ctx, cert.ID); err != nil {
		s.logger.Warn("failed to count certificate download",
			slog.String("certificate_id", cert.ID),
			slog.Any("error", err))
	}
	monitoring.RecordCertificateDownload()

	return cert, body, nil
}

// findOrCreateStub returns the existing certificate row for a registration or
// inserts a fresh pending stub. A concurrent insert losing on the unique
// constraint falls back to the winner's row.
func (s *CertificateService) findOrCreateStub(ctx context.Context, event *models.Event, participant *models.EventParticipant) (*models.Certificate, error) {
	existing, err := s.certRepo.GetByEventAndParticipant(ctx, event.ID, participant.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to look up certificate", slog.String("participant_id", participant.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	number, err := s.newCertificateNumber(event)
	if err != nil {
		s.logger.Error("failed to generate certificate number", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	cert, err := s.certRepo.Create(ctx, &models.Certificate{
		EventID:           event.ID,
		ParticipantID:     participant.ID,
		CertificateNumber: number,
		ParticipantName:   participant.Name,
		EventTitle:        event.Title,
		EventDate:         event.EventDate,
		Status:            models.CertificatePending,
		IssuedAt:          time.Now(),
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return s.certRepo.GetByEventAndParticipant(ctx, event.ID, participant.ID)
		}
		s.logger.Error("failed to create certificate stub",
			slog.String("participant_id", participant.ID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return cert, nil
}

// renderAndPromote renders the PDF for a pending stub, stores it and promotes
// the row to generated. Any failure leaves the stub pending and retriable.
func (s *CertificateService) renderAndPromote(ctx context.Context, event *models.Event, cert *models.Certificate) (*models.Certificate, error) {
	started := time.Now()

	template, err := s.store.Open(ctx, event.CertificateTemplatePath)
	if err != nil {
		monitoring.RecordCertificateRender(monitoring.OutcomeFailure, 0)
		s.logger.Error("failed to open certificate template",
			slog.String("event_id", event.ID),
			slog.String("template_path", event.CertificateTemplatePath),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	defer template.Close()

	pdf, err := s.renderer.RenderPDF(render.Request{
		Template: template,
		Layout:   event.CertificateLayout,
		Fields: map[string]string{
			render.FieldParticipantName:   cert.ParticipantName,
			render.FieldEventDate:         cert.EventDate.Format("2 January 2006"),
			render.FieldCertificateNumber: cert.CertificateNumber,
		},
		QRContent: s.verifyURL(cert.CertificateNumber),
	})
	if err != nil {
		monitoring.RecordCertificateRender(monitoring.OutcomeFailure, 0)
		s.logger.Error("certificate render failed",
			slog.String("certificate_id", cert.ID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	key := storage.CertificateKey(event.ID, cert.CertificateNumber)
	if err := s.store.Save(ctx, key, "application/pdf", bytes.NewReader(pdf), int64(len(pdf))); err != nil {
		monitoring.RecordCertificateRender(monitoring.OutcomeFailure, 0)
		s.logger.Error("failed to store certificate artifact",
			slog.String("certificate_id", cert.ID),
			slog.String("key", key),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	fileName := cert.CertificateNumber + ".pdf"
	issuedAt := time.Now()
	generated, err := s.certRepo.SetGenerated(ctx, cert.ID, key, fileName, int64(len(pdf)), issuedAt)
	if err != nil {
		s.logger.Error("failed to promote certificate to generated",
			slog.String("certificate_id", cert.ID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	monitoring.RecordCertificateRender(monitoring.OutcomeSuccess, time.Since(started).Seconds())
	s.auditLogger.LogIssuance(logger.AuditEvent{
		EventType:     "certificate_issued",
		ParticipantID: cert.ParticipantID,
		EventID:       cert.EventID,
		Success:       true,
	})

	return generated, nil
}

// newCertificateNumber mints a number like "GOPH-202608-AB12CD34": event
// code, year-month, then a random suffix. The suffix keeps numbers unguessable
// so the public download endpoint cannot be enumerated.
func (s *CertificateService) newCertificateNumber(event *models.Event) (string, error) {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%s",
		event.Code,
		event.EventDate.Format("200601"),
		strings.ToUpper(hex.EncodeToString(suffix))), nil
}

func (s *CertificateService) verifyURL(certificateNumber string) string {
	return fmt.Sprintf("%s/certificates/%s", strings.TrimRight(s.verifyURLBase, "/"), certificateNumber)
}
