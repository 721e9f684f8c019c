package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nadhifr/eventra/internal/models"
	"github.com/nadhifr/eventra/internal/monitoring"
	"github.com/nadhifr/eventra/pkg/logger"
)

// CertificateIssuer is invoked after a successful check-in.
type CertificateIssuer interface {
	GenerateForParticipant(ctx context.Context, eventID, participantID string) (*models.Certificate, error)
}

// AttendanceService redeems attendance tokens and marks participants as
// attended. Both state transitions are conditional updates, so concurrent
// submissions of the same token resolve to exactly one success without any
// application-level locking.
type AttendanceService struct {
	tokenRepo       RegistrationTokenRepository
	participantRepo ParticipantRepository
	issuer          CertificateIssuer
	auditLogger     *logger.AuditLogger
	logger          *slog.Logger
}

func NewAttendanceService(
	tokenRepo RegistrationTokenRepository,
	participantRepo ParticipantRepository,
	issuer CertificateIssuer,
	auditLogger *logger.AuditLogger,
	slogger *slog.Logger,
) *AttendanceService {
	return &AttendanceService{
		tokenRepo:       tokenRepo,
		participantRepo: participantRepo,
		issuer:          issuer,
		auditLogger:     auditLogger,
		logger:          slogger,
	}
}

// Verify redeems a token for an event and marks the participant attended.
//
// Every token-side failure collapses into ErrInvalidOrExpiredToken: wrong
// value, wrong event, expired and already-used all look the same to the
// caller, so the endpoint leaks nothing to someone guessing tokens.
// ErrAlreadyCheckedIn is returned without redeeming the token when the
// participant was already verified through another path, so the token stays
// valid evidence of who it was issued to.
//
// The returned bool reports whether a certificate was generated as part of
// the check-in. Certificate failures never undo the attendance transition.
func (s *AttendanceService) Verify(ctx context.Context, tokenValue, eventID, ipAddress string) (*models.EventParticipant, bool, error) {
	fail := func(reason string) {
		monitoring.RecordVerification(monitoring.OutcomeRejected)
		s.auditLogger.LogCheckIn(logger.AuditEvent{
			EventType:     "attendance_verify",
			EventID:       eventID,
			IPAddress:     ipAddress,
			Success:       false,
			FailureReason: reason,
		})
	}

	token, err := s.tokenRepo.GetActive(ctx, tokenValue, eventID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			fail("token not found, expired or used")
			return nil, false, models.ErrInvalidOrExpiredToken
		}
		s.logger.Error("failed to look up attendance token", slog.Any("error", err))
		return nil, false, models.ErrInternalServer
	}

	// Resolve the participant before touching the token so a check-in that
	// cannot succeed never burns an unredeemed token.
	participant, err := s.participantRepo.GetByIDAndEvent(ctx, token.ParticipantID, eventID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			fail("participant not found for token")
			return nil, false, models.ErrParticipantNotFound
		}
		s.logger.Error("failed to load participant",
			slog.String("participant_id", token.ParticipantID),
			slog.Any("error", err))
		return nil, false, models.ErrInternalServer
	}
	if participant.IsVerified() {
		fail("participant already checked in")
		return nil, false, models.ErrAlreadyCheckedIn
	}

	// Redeem is the atomic gate: the row flips to used only if it is still
	// unused and unexpired, so a concurrent duplicate loses here.
	if err := s.tokenRepo.Redeem(ctx, tokenValue, eventID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			fail("token redeemed concurrently")
			return nil, false, models.ErrInvalidOrExpiredToken
		}
		s.logger.Error("failed to redeem attendance token", slog.Any("error", err))
		return nil, false, models.ErrInternalServer
	}

	participant, err = s.participantRepo.MarkAttended(ctx, token.ParticipantID, models.VerificationMethodToken)
	if err != nil {
		if errors.Is(err, models.ErrAlreadyCheckedIn) {
			// Lost a race with another check-in path after the pre-check.
			fail("participant already checked in")
			return nil, false, models.ErrAlreadyCheckedIn
		}
		s.logger.Error("failed to mark participant attended",
			slog.String("participant_id", token.ParticipantID),
			slog.Any("error", err))
		return nil, false, models.ErrInternalServer
	}

	monitoring.RecordVerification(monitoring.OutcomeSuccess)
	s.auditLogger.LogCheckIn(logger.AuditEvent{
		EventType:     "attendance_verify",
		ParticipantID: participant.ID,
		EventID:       eventID,
		IPAddress:     ipAddress,
		Success:       true,
	})

	s.logger.Info("attendance verified",
		slog.String("participant_id", participant.ID),
		slog.String("event_id", eventID))

	return participant, s.issueCertificate(ctx, eventID, participant.ID), nil
}

// issueCertificate runs certificate generation inline after check-in.
// ErrBadRequest means the event does not issue certificates; anything else
// is a render or storage problem the pending-stub sweeper will retry.
func (s *AttendanceService) issueCertificate(ctx context.Context, eventID, participantID string) bool {
	cert, err := s.issuer.GenerateForParticipant(ctx, eventID, participantID)
	if err != nil {
		if !errors.Is(err, models.ErrBadRequest) {
			s.logger.Error("certificate generation after check-in failed",
				slog.String("participant_id", participantID),
				slog.String("event_id", eventID),
				slog.Any("error", err))
		}
		return false
	}
	return cert != nil && cert.IsGenerated()
}

// VerifyManual marks a participant attended without a token, for staff
// check-in desks handling participants who lost their email.
func (s *AttendanceService) VerifyManual(ctx context.Context, participantID, eventID, ipAddress string) (*models.EventParticipant, bool, error) {
	if _, err := s.participantRepo.GetByIDAndEvent(ctx, participantID, eventID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, false, models.ErrParticipantNotFound
		}
		s.logger.Error("failed to load participant", slog.String("participant_id", participantID), slog.Any("error", err))
		return nil, false, models.ErrInternalServer
	}

	participant, err := s.participantRepo.MarkAttended(ctx, participantID, models.VerificationMethodManual)
	if err != nil {
		if errors.Is(err, models.ErrAlreadyCheckedIn) {
			return nil, false, models.ErrAlreadyCheckedIn
		}
		s.logger.Error("failed to mark participant attended",
			slog.String("participant_id", participantID),
			slog.Any("error", err))
		return nil, false, models.ErrInternalServer
	}

	monitoring.RecordVerification(monitoring.OutcomeSuccess)
	s.auditLogger.LogCheckIn(logger.AuditEvent{
		EventType:     "attendance_verify_manual",
		ParticipantID: participant.ID,
		EventID:       eventID,
		IPAddress:     ipAddress,
		Success:       true,
	})

	return participant, s.issueCertificate(ctx, eventID, participant.ID), nil
}
