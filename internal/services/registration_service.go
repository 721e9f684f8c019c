package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nadhifr/eventra/internal/gateway"
	"github.com/nadhifr/eventra/internal/models"
	"github.com/nadhifr/eventra/internal/monitoring"
)

// PaymentRepository defines the interface for payment storage
type PaymentRepository interface {
	Create(ctx context.Context, p *models.Payment) (*models.Payment, error)
	GetByInvoice(ctx context.Context, invoiceNumber string) (*models.Payment, error)
	MarkPaid(ctx context.Context, invoiceNumber, gatewayReference string) (*models.Payment, error)
	MarkFailed(ctx context.Context, invoiceNumber, status string) error
	ListStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]*models.Payment, error)
}

// PaymentGateway is the outbound payment provider surface used by the
// registration flow.
type PaymentGateway interface {
	CreateInvoice(ctx context.Context, referenceID string, amount decimal.Decimal, description, payerEmail string) (*gateway.Invoice, error)
	CheckStatus(ctx context.Context, invoiceID string) (*gateway.Invoice, error)
	VerifySignature(body []byte, signature string) error
}

// reconcileMinAge is how long a payment stays pending before the
// reconciliation sweep asks the gateway about it directly.
const reconcileMinAge = 10 * time.Minute

// RegistrationInput is the validated public registration request.
type RegistrationInput struct {
	Name  string
	Email string
	Phone string
}

// RegistrationResult is what the public registration endpoint returns. For a
// free event the participant is registered immediately and the token email is
// on its way; for a paid event the caller is redirected to PaymentURL.
type RegistrationResult struct {
	Participant *models.EventParticipant
	PaymentURL  string
}

// CallbackNotification is the parsed body of a gateway payment callback.
type CallbackNotification struct {
	InvoiceNumber    string `json:"invoiceNumber"`
	GatewayReference string `json:"invoiceId"`
	Status           string `json:"status"`
}

// RegistrationService handles public event registration and the payment
// callback that completes paid registrations.
type RegistrationService struct {
	participantRepo ParticipantRepository
	paymentRepo     PaymentRepository
	eventRepo       EventRepository
	tokenService    *TokenService
	gateway         PaymentGateway
	logger          *slog.Logger
	invoicePrefix   string
}

func NewRegistrationService(
	participantRepo ParticipantRepository,
	paymentRepo PaymentRepository,
	eventRepo EventRepository,
	tokenService *TokenService,
	gw PaymentGateway,
	logger *slog.Logger,
	invoicePrefix string,
) *RegistrationService {
	return &RegistrationService{
		participantRepo: participantRepo,
		paymentRepo:     paymentRepo,
		eventRepo:       eventRepo,
		tokenService:    tokenService,
		gateway:         gw,
		logger:          logger,
		invoicePrefix:   invoicePrefix,
	}
}

// Register creates a registration for an event. Free events are registered
// and issued an attendance token immediately; paid events get a pending
// payment and a gateway invoice, and the token is issued when the callback
// confirms payment.
func (s *RegistrationService) Register(ctx context.Context, eventID string, input RegistrationInput) (*RegistrationResult, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to load event", slog.String("event_id", eventID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	regNumber, err := newRegistrationNumber(event.Code)
	if err != nil {
		s.logger.Error("failed to generate registration number", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	participant, err := s.participantRepo.Create(ctx, &models.EventParticipant{
		EventID:            eventID,
		Name:               input.Name,
		Email:              input.Email,
		Phone:              input.Phone,
		RegistrationNumber: regNumber,
		AttendanceStatus:   models.AttendancePending,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, fmt.Errorf("%w: this email is already registered for the event", models.ErrConflict)
		}
		s.logger.Error("failed to create participant",
			slog.String("event_id", eventID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if event.IsFree() {
		registered, err := s.participantRepo.MarkRegistered(ctx, participant.ID)
		if err != nil {
			s.logger.Error("failed to mark participant registered",
				slog.String("participant_id", participant.ID),
				slog.Any("error", err))
			return nil, models.ErrInternalServer
		}

		if _, err := s.tokenService.Issue(ctx, participant.ID); err != nil {
			// The registration stands; the token can be resent later.
			s.logger.Error("registration created but token issuance failed",
				slog.String("participant_id", participant.ID),
				slog.Any("error", err))
		}

		return &RegistrationResult{Participant: registered}, nil
	}

	invoiceNumber, err := s.newInvoiceNumber()
	if err != nil {
		s.logger.Error("failed to generate invoice number", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	inv, err := s.gateway.CreateInvoice(ctx, invoiceNumber, event.FeeAmount,
		fmt.Sprintf("Registration for %s", event.Title), input.Email)
	if err != nil {
		s.logger.Error("failed to create gateway invoice",
			slog.String("participant_id", participant.ID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if _, err := s.paymentRepo.Create(ctx, &models.Payment{
		ParticipantID:    participant.ID,
		EventID:          eventID,
		InvoiceNumber:    invoiceNumber,
		Amount:           event.FeeAmount,
		Status:           models.PaymentPending,
		GatewayReference: inv.InvoiceID,
		PaymentURL:       inv.PaymentURL,
	}); err != nil {
		s.logger.Error("failed to store payment",
			slog.String("participant_id", participant.ID),
			slog.String("invoice_number", invoiceNumber),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("paid registration created",
		slog.String("participant_id", participant.ID),
		slog.String("invoice_number", invoiceNumber),
		slog.String("amount", event.FeeAmount.String()))

	return &RegistrationResult{Participant: participant, PaymentURL: inv.PaymentURL}, nil
}

// HandlePaymentCallback processes a gateway notification. The signature is
// verified before the body is trusted, and the pending to paid transition is
// a conditional update, so replayed or duplicated callbacks are rejected with
// ErrPaymentAlreadyProcessed instead of double-registering.
func (s *RegistrationService) HandlePaymentCallback(ctx context.Context, body []byte, signature string) error {
	if err := s.gateway.VerifySignature(body, signature); err != nil {
		monitoring.RecordPaymentCallback(monitoring.OutcomeRejected)
		s.logger.Warn("payment callback with invalid signature")
		return models.ErrInvalidSignature
	}

	var notif CallbackNotification
	if err := json.Unmarshal(body, &notif); err != nil {
		monitoring.RecordPaymentCallback(monitoring.OutcomeRejected)
		return fmt.Errorf("%w: malformed callback body", models.ErrBadRequest)
	}
	if notif.InvoiceNumber == "" {
		monitoring.RecordPaymentCallback(monitoring.OutcomeRejected)
		return fmt.Errorf("%w: missing invoice number", models.ErrBadRequest)
	}

	payment, err := s.paymentRepo.GetByInvoice(ctx, notif.InvoiceNumber)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			monitoring.RecordPaymentCallback(monitoring.OutcomeRejected)
			return models.ErrNotFound
		}
		s.logger.Error("failed to load payment", slog.String("invoice_number", notif.InvoiceNumber), slog.Any("error", err))
		return models.ErrInternalServer
	}

	switch strings.ToLower(notif.Status) {
	case "paid", "settled":
		if err := s.settlePayment(ctx, notif.InvoiceNumber, notif.GatewayReference, payment.ParticipantID); err != nil {
			if errors.Is(err, models.ErrPaymentAlreadyProcessed) {
				monitoring.RecordPaymentCallback(monitoring.OutcomeDuplicate)
			}
			return err
		}

		monitoring.RecordPaymentCallback(monitoring.OutcomeSuccess)
		return nil

	case "failed", "expired":
		if err := s.expirePayment(ctx, notif.InvoiceNumber, notif.Status); err != nil {
			return err
		}
		monitoring.RecordPaymentCallback(monitoring.OutcomeFailure)
		return nil

	default:
		monitoring.RecordPaymentCallback(monitoring.OutcomeRejected)
		return fmt.Errorf("%w: unknown payment status %q", models.ErrBadRequest, notif.Status)
	}
}

// settlePayment completes a paid registration: the pending to paid transition,
// the participant flip to registered, and the attendance token email. Shared
// by the callback path and the reconciliation sweep, so both are idempotent
// through the same conditional update.
func (s *RegistrationService) settlePayment(ctx context.Context, invoiceNumber, gatewayReference, participantID string) error {
	if _, err := s.paymentRepo.MarkPaid(ctx, invoiceNumber, gatewayReference); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrPaymentAlreadyProcessed
		}
		s.logger.Error("failed to mark payment paid", slog.String("invoice_number", invoiceNumber), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if _, err := s.participantRepo.MarkRegistered(ctx, participantID); err != nil {
		s.logger.Error("payment settled but participant update failed",
			slog.String("participant_id", participantID),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	if _, err := s.tokenService.Issue(ctx, participantID); err != nil {
		s.logger.Error("payment settled but token issuance failed",
			slog.String("participant_id", participantID),
			slog.Any("error", err))
	}

	s.logger.Info("payment settled",
		slog.String("invoice_number", invoiceNumber),
		slog.String("participant_id", participantID))
	return nil
}

func (s *RegistrationService) expirePayment(ctx context.Context, invoiceNumber, gatewayStatus string) error {
	status := models.PaymentFailed
	if strings.EqualFold(gatewayStatus, "expired") {
		status = models.PaymentExpired
	}
	if err := s.paymentRepo.MarkFailed(ctx, invoiceNumber, status); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Settled or already closed in the meantime.
			return nil
		}
		s.logger.Error("failed to mark payment failed", slog.String("invoice_number", invoiceNumber), slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}

// ReconcilePending asks the gateway for the current state of payments that
// stayed pending past reconcileMinAge, covering callbacks that were lost in
// transit. Returns how many payments were settled.
func (s *RegistrationService) ReconcilePending(ctx context.Context, limit int) (int, error) {
	stale, err := s.paymentRepo.ListStalePending(ctx, reconcileMinAge, limit)
	if err != nil {
		return 0, fmt.Errorf("list stale pending payments: %w", err)
	}

	settled := 0
	for _, payment := range stale {
		if payment.GatewayReference == "" {
			continue
		}

		inv, err := s.gateway.CheckStatus(ctx, payment.GatewayReference)
		if err != nil {
			s.logger.Warn("payment status check failed",
				slog.String("invoice_number", payment.InvoiceNumber),
				slog.Any("error", err))
			continue
		}

		switch strings.ToLower(inv.Status) {
		case "paid", "settled":
			if err := s.settlePayment(ctx, payment.InvoiceNumber, payment.GatewayReference, payment.ParticipantID); err == nil {
				settled++
			}
		case "failed", "expired":
			if err := s.expirePayment(ctx, payment.InvoiceNumber, inv.Status); err != nil {
				s.logger.Warn("failed to close reconciled payment",
					slog.String("invoice_number", payment.InvoiceNumber),
					slog.Any("error", err))
			}
		}
	}

	if settled > 0 {
		s.logger.Info("pending payments reconciled", slog.Int("settled", settled))
	}
	return settled, nil
}

func (s *RegistrationService) newInvoiceNumber() (string, error) {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%s",
		s.invoicePrefix,
		time.Now().Format("20060102"),
		strings.ToUpper(hex.EncodeToString(suffix))), nil
}

func newRegistrationNumber(eventCode string) (string, error) {
	suffix := make([]byte, 3)
	if _, err := rand.Read(suffix); err != nil {
		return "", err
	}
	return fmt.Sprintf("REG-%s-%s", eventCode, strings.ToUpper(hex.EncodeToString(suffix))), nil
}
