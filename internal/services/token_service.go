package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/nadhifr/eventra/internal/models"
	"github.com/nadhifr/eventra/internal/monitoring"
	"github.com/nadhifr/eventra/pkg/queue"
)

// maxTokenAttempts bounds the insert-and-retry loop on token collisions.
// With 10^10 possible values a collision is already rare; hitting the cap
// means something is wrong with the random source or the table.
const maxTokenAttempts = 20

// RegistrationTokenRepository defines the interface for attendance token storage
type RegistrationTokenRepository interface {
	Create(ctx context.Context, token *models.RegistrationToken) (*models.RegistrationToken, error)
	GetActive(ctx context.Context, tokenValue, eventID string) (*models.RegistrationToken, error)
	GetActiveByParticipant(ctx context.Context, participantID, eventID string) (*models.RegistrationToken, error)
	Redeem(ctx context.Context, tokenValue, eventID string) error
}

// ParticipantRepository defines the interface for event participant storage
type ParticipantRepository interface {
	Create(ctx context.Context, p *models.EventParticipant) (*models.EventParticipant, error)
	GetByID(ctx context.Context, id string) (*models.EventParticipant, error)
	GetByIDAndEvent(ctx context.Context, id, eventID string) (*models.EventParticipant, error)
	UpdateTokenFields(ctx context.Context, id string, token string, generatedAt, expiresAt time.Time) (*models.EventParticipant, error)
	MarkRegistered(ctx context.Context, id string) (*models.EventParticipant, error)
	MarkAttended(ctx context.Context, id, method string) (*models.EventParticipant, error)
	ListVerifiedByEvent(ctx context.Context, eventID string) ([]*models.EventParticipant, error)
}

// EventRepository defines the interface for event storage
type EventRepository interface {
	Create(ctx context.Context, e *models.Event) (*models.Event, error)
	GetByID(ctx context.Context, id string) (*models.Event, error)
	SetCertificateTemplate(ctx context.Context, id, path string) error
	StampCertificatesGenerated(ctx context.Context, id string) error
}

// TokenService issues single-use attendance tokens and emails them to
// participants.
type TokenService struct {
	tokenRepo       RegistrationTokenRepository
	participantRepo ParticipantRepository
	eventRepo       EventRepository
	mailer          Mailer
	logger          *slog.Logger
	resendCooldown  time.Duration
}

func NewTokenService(
	tokenRepo RegistrationTokenRepository,
	participantRepo ParticipantRepository,
	eventRepo EventRepository,
	mailer Mailer,
	logger *slog.Logger,
	resendCooldown time.Duration,
) *TokenService {
	return &TokenService{
		tokenRepo:       tokenRepo,
		participantRepo: participantRepo,
		eventRepo:       eventRepo,
		mailer:          mailer,
		logger:          logger,
		resendCooldown:  resendCooldown,
	}
}

// Issue generates a fresh attendance token for a participant, persists it
// and emails it. Mail delivery is best effort: a failed send is logged and
// the token is still issued, so the operation is safe to call from the
// registration flow.
func (s *TokenService) Issue(ctx context.Context, participantID string) (*models.RegistrationToken, error) {
	participant, err := s.participantRepo.GetByID(ctx, participantID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrParticipantNotFound
		}
		s.logger.Error("failed to load participant", slog.String("participant_id", participantID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	event, err := s.eventRepo.GetByID(ctx, participant.EventID)
	if err != nil {
		s.logger.Error("failed to load event", slog.String("event_id", participant.EventID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	now := time.Now()
	expiresAt := now.Add(models.TokenValidity)

	token, err := s.createUniqueToken(ctx, participant, expiresAt)
	if err != nil {
		return nil, err
	}

	// Denormalized copy on the registration row; the tokens table stays the
	// source of truth for redemption.
	if _, err := s.participantRepo.UpdateTokenFields(ctx, participant.ID, token.Token, now, expiresAt); err != nil {
		s.logger.Error("failed to update participant token fields",
			slog.String("participant_id", participant.ID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	monitoring.RecordTokenIssued()

	if err := s.mailer.SendAttendanceToken(ctx, queue.EmailPayload{
		Recipient:     participant.Email,
		ParticipantID: participant.ID,
		EventTitle:    event.Title,
		Token:         token.Token,
		ExpiresAt:     expiresAt,
	}); err != nil {
		s.logger.Warn("token issued but email delivery failed",
			slog.String("participant_id", participant.ID),
			slog.Any("error", err))
	}

	s.logger.Info("attendance token issued",
		slog.String("participant_id", participant.ID),
		slog.String("event_id", participant.EventID),
		slog.Time("expires_at", expiresAt))

	return token, nil
}

// Resend re-sends the participant's active token, or issues a new one when
// none is active. A cooldown keeps the endpoint from being used to spam a
// mailbox.
func (s *TokenService) Resend(ctx context.Context, participantID string) (*models.RegistrationToken, error) {
	participant, err := s.participantRepo.GetByID(ctx, participantID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrParticipantNotFound
		}
		s.logger.Error("failed to load participant", slog.String("participant_id", participantID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if participant.TokenGeneratedAt != nil && time.Since(*participant.TokenGeneratedAt) < s.resendCooldown {
		return nil, fmt.Errorf("%w: token was sent recently, try again later", models.ErrConflict)
	}

	active, err := s.tokenRepo.GetActiveByParticipant(ctx, participant.ID, participant.EventID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return s.Issue(ctx, participantID)
		}
		s.logger.Error("failed to look up active token", slog.String("participant_id", participant.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	event, err := s.eventRepo.GetByID(ctx, participant.EventID)
	if err != nil {
		s.logger.Error("failed to load event", slog.String("event_id", participant.EventID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.mailer.SendAttendanceToken(ctx, queue.EmailPayload{
		Recipient:     participant.Email,
		ParticipantID: participant.ID,
		EventTitle:    event.Title,
		Token:         active.Token,
		ExpiresAt:     active.ExpiresAt,
	}); err != nil {
		s.logger.Error("failed to resend attendance token email",
			slog.String("participant_id", participant.ID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	// Touch the cooldown marker without changing the token value.
	if _, err := s.participantRepo.UpdateTokenFields(ctx, participant.ID, active.Token, time.Now(), active.ExpiresAt); err != nil {
		s.logger.Warn("failed to refresh token timestamp after resend",
			slog.String("participant_id", participant.ID),
			slog.Any("error", err))
	}

	return active, nil
}

// createUniqueToken inserts a token row, retrying with a fresh value when the
// unique constraint on the token column trips.
func (s *TokenService) createUniqueToken(ctx context.Context, participant *models.EventParticipant, expiresAt time.Time) (*models.RegistrationToken, error) {
	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		value, err := generateNumericToken(models.TokenLength)
		if err != nil {
			s.logger.Error("failed to generate random token", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}

		token, err := s.tokenRepo.Create(ctx, &models.RegistrationToken{
			Token:         value,
			ParticipantID: participant.ID,
			EventID:       participant.EventID,
			Email:         participant.Email,
			ExpiresAt:     expiresAt,
		})
		if err != nil {
			if errors.Is(err, models.ErrConflict) {
				continue
			}
			s.logger.Error("failed to store attendance token",
				slog.String("participant_id", participant.ID),
				slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		return token, nil
	}

	s.logger.Error("token generation exhausted retries",
		slog.String("participant_id", participant.ID),
		slog.Int("attempts", maxTokenAttempts))
	return nil, models.ErrTokenGenerationExhausted
}

// generateNumericToken returns a zero-padded numeric string of the given
// length from crypto/rand.
func generateNumericToken(length int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", length, n), nil
}
