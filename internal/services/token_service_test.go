package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadhifr/eventra/internal/models"
	"github.com/nadhifr/eventra/pkg/queue"
)

func testParticipant() *models.EventParticipant {
	return &models.EventParticipant{
		ID:               "participant-1",
		EventID:          "event-1",
		Name:             "Ayu Lestari",
		Email:            "ayu@example.com",
		AttendanceStatus: models.AttendanceRegistered,
	}
}

func testEvent() *models.Event {
	return &models.Event{
		ID:        "event-1",
		Code:      "GOPH",
		Title:     "GopherCon ID",
		EventDate: time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC),
	}
}

func newTestTokenService(tokenRepo *MockRegistrationTokenRepository, participantRepo *MockParticipantRepository, eventRepo *MockEventRepository, mailer *MockMailer) *TokenService {
	return NewTokenService(tokenRepo, participantRepo, eventRepo, mailer, slog.Default(), 15*time.Minute)
}

func TestTokenService_Issue_Success(t *testing.T) {
	participantRepo := &MockParticipantRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.EventParticipant, error) {
			return testParticipant(), nil
		},
	}
	eventRepo := &MockEventRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Event, error) {
			return testEvent(), nil
		},
	}

	var stored *models.RegistrationToken
	tokenRepo := &MockRegistrationTokenRepository{
		CreateFunc: func(ctx context.Context, token *models.RegistrationToken) (*models.RegistrationToken, error) {
			stored = token
			return token, nil
		},
	}
	mailer := &MockMailer{}

	svc := newTestTokenService(tokenRepo, participantRepo, eventRepo, mailer)
	token, err := svc.Issue(context.Background(), "participant-1")

	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Len(t, token.Token, models.TokenLength)
	assert.Regexp(t, `^\d{10}$`, token.Token)
	assert.Equal(t, "participant-1", token.ParticipantID)
	assert.WithinDuration(t, time.Now().Add(models.TokenValidity), token.ExpiresAt, time.Minute)

	require.Len(t, mailer.Sent, 1)
	assert.Equal(t, "ayu@example.com", mailer.Sent[0].Recipient)
	assert.Equal(t, token.Token, mailer.Sent[0].Token)
	assert.Equal(t, "GopherCon ID", mailer.Sent[0].EventTitle)
}

func TestTokenService_Issue_MailFailureDoesNotFailIssue(t *testing.T) {
	participantRepo := &MockParticipantRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.EventParticipant, error) {
			return testParticipant(), nil
		},
	}
	eventRepo := &MockEventRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Event, error) {
			return testEvent(), nil
		},
	}
	tokenRepo := &MockRegistrationTokenRepository{}
	mailer := &MockMailer{
		SendAttendanceTokenFunc: func(ctx context.Context, p queue.EmailPayload) error {
			return errors.New("ses is down")
		},
	}

	svc := newTestTokenService(tokenRepo, participantRepo, eventRepo, mailer)
	token, err := svc.Issue(context.Background(), "participant-1")

	require.NoError(t, err)
	assert.NotEmpty(t, token.Token)
}

func TestTokenService_Issue_RetriesOnCollision(t *testing.T) {
	participantRepo := &MockParticipantRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.EventParticipant, error) {
			return testParticipant(), nil
		},
	}
	eventRepo := &MockEventRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Event, error) {
			return testEvent(), nil
		},
	}

	attempts := 0
	tokenRepo := &MockRegistrationTokenRepository{
		CreateFunc: func(ctx context.Context, token *models.RegistrationToken) (*models.RegistrationToken, error) {
			attempts++
			if attempts < 3 {
				return nil, models.ErrConflict
			}
			return token, nil
		},
	}

	svc := newTestTokenService(tokenRepo, participantRepo, eventRepo, &MockMailer{})
	token, err := svc.Issue(context.Background(), "participant-1")

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.NotEmpty(t, token.Token)
}

func TestTokenService_Issue_ExhaustsRetries(t *testing.T) {
	participantRepo := &MockParticipantRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.EventParticipant, error) {
			return testParticipant(), nil
		},
	}
	eventRepo := &MockEventRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Event, error) {
			return testEvent(), nil
		},
	}
	tokenRepo := &MockRegistrationTokenRepository{
		CreateFunc: func(ctx context.Context, token *models.RegistrationToken) (*models.RegistrationToken, error) {
			return nil, models.ErrConflict
		},
	}

	svc := newTestTokenService(tokenRepo, participantRepo, eventRepo, &MockMailer{})
	_, err := svc.Issue(context.Background(), "participant-1")

	assert.ErrorIs(t, err, models.ErrTokenGenerationExhausted)
}

func TestTokenService_Issue_ParticipantNotFound(t *testing.T) {
	svc := newTestTokenService(&MockRegistrationTokenRepository{}, &MockParticipantRepository{}, &MockEventRepository{}, &MockMailer{})

	_, err := svc.Issue(context.Background(), "ghost")

	assert.ErrorIs(t, err, models.ErrParticipantNotFound)
}

func TestTokenService_Resend_Cooldown(t *testing.T) {
	recent := time.Now().Add(-time.Minute)
	participant := testParticipant()
	participant.TokenGeneratedAt = &recent

	participantRepo := &MockParticipantRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.EventParticipant, error) {
			return participant, nil
		},
	}

	svc := newTestTokenService(&MockRegistrationTokenRepository{}, participantRepo, &MockEventRepository{}, &MockMailer{})
	_, err := svc.Resend(context.Background(), "participant-1")

	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestTokenService_Resend_ActiveTokenIsResent(t *testing.T) {
	old := time.Now().Add(-time.Hour)
	participant := testParticipant()
	participant.TokenGeneratedAt = &old

	participantRepo := &MockParticipantRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.EventParticipant, error) {
			return participant, nil
		},
	}
	eventRepo := &MockEventRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Event, error) {
			return testEvent(), nil
		},
	}
	tokenRepo := &MockRegistrationTokenRepository{
		GetActiveByParticipantFunc: func(ctx context.Context, participantID, eventID string) (*models.RegistrationToken, error) {
			return &models.RegistrationToken{
				Token:         "1234567890",
				ParticipantID: participantID,
				EventID:       eventID,
				ExpiresAt:     time.Now().Add(24 * time.Hour),
			}, nil
		},
	}
	mailer := &MockMailer{}

	svc := newTestTokenService(tokenRepo, participantRepo, eventRepo, mailer)
	token, err := svc.Resend(context.Background(), "participant-1")

	require.NoError(t, err)
	assert.Equal(t, "1234567890", token.Token)
	require.Len(t, mailer.Sent, 1)
	assert.Equal(t, "1234567890", mailer.Sent[0].Token)
}

func TestTokenService_Resend_IssuesNewWhenNoneActive(t *testing.T) {
	old := time.Now().Add(-time.Hour)
	participant := testParticipant()
	participant.TokenGeneratedAt = &old

	participantRepo := &MockParticipantRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.EventParticipant, error) {
			return participant, nil
		},
	}
	eventRepo := &MockEventRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Event, error) {
			return testEvent(), nil
		},
	}
	tokenRepo := &MockRegistrationTokenRepository{}

	svc := newTestTokenService(tokenRepo, participantRepo, eventRepo, &MockMailer{})
	token, err := svc.Resend(context.Background(), "participant-1")

	require.NoError(t, err)
	assert.Regexp(t, `^\d{10}$`, token.Token)
}

func TestGenerateNumericToken(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		token, err := generateNumericToken(models.TokenLength)
		require.NoError(t, err)
		assert.Regexp(t, `^\d{10}$`, token)
		seen[token] = true
	}
	// 100 draws from 10^10 values should not collide.
	assert.Len(t, seen, 100)
}
