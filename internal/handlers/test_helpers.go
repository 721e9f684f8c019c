package handlers

import (
	"context"
	"io"

	"github.com/nadhifr/eventra/internal/models"
	"github.com/nadhifr/eventra/internal/services"
)

// MockAttendanceService implements AttendanceService for testing
type MockAttendanceService struct {
	VerifyFunc       func(ctx context.Context, tokenValue, eventID, ipAddress string) (*models.EventParticipant, bool, error)
	VerifyManualFunc func(ctx context.Context, participantID, eventID, ipAddress string) (*models.EventParticipant, bool, error)
}

func (m *MockAttendanceService) Verify(ctx context.Context, tokenValue, eventID, ipAddress string) (*models.EventParticipant, bool, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, tokenValue, eventID, ipAddress)
	}
	return nil, false, models.ErrInvalidOrExpiredToken
}

func (m *MockAttendanceService) VerifyManual(ctx context.Context, participantID, eventID, ipAddress string) (*models.EventParticipant, bool, error) {
	if m.VerifyManualFunc != nil {
		return m.VerifyManualFunc(ctx, participantID, eventID, ipAddress)
	}
	return nil, false, models.ErrParticipantNotFound
}

// MockRegistrationService implements RegistrationService for testing
type MockRegistrationService struct {
	RegisterFunc func(ctx context.Context, eventID string, input services.RegistrationInput) (*services.RegistrationResult, error)
}

func (m *MockRegistrationService) Register(ctx context.Context, eventID string, input services.RegistrationInput) (*services.RegistrationResult, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, eventID, input)
	}
	return nil, models.ErrNotFound
}

// MockTokenService implements TokenService for testing
type MockTokenService struct {
	ResendFunc func(ctx context.Context, participantID string) (*models.RegistrationToken, error)
}

func (m *MockTokenService) Resend(ctx context.Context, participantID string) (*models.RegistrationToken, error) {
	if m.ResendFunc != nil {
		return m.ResendFunc(ctx, participantID)
	}
	return nil, models.ErrParticipantNotFound
}

// MockPaymentCallbackService implements PaymentCallbackService for testing
type MockPaymentCallbackService struct {
	HandlePaymentCallbackFunc func(ctx context.Context, body []byte, signature string) error
}

func (m *MockPaymentCallbackService) HandlePaymentCallback(ctx context.Context, body []byte, signature string) error {
	if m.HandlePaymentCallbackFunc != nil {
		return m.HandlePaymentCallbackFunc(ctx, body, signature)
	}
	return nil
}

// MockCertificateService implements CertificateService for testing
type MockCertificateService struct {
	GenerateForParticipantFunc func(ctx context.Context, eventID, participantID string) (*models.Certificate, error)
	GenerateForEventFunc       func(ctx context.Context, eventID string) (*services.BatchResult, error)
	LookupFunc                 func(ctx context.Context, certificateNumber string) (*models.Certificate, error)
	DownloadFunc               func(ctx context.Context, certificateNumber string) (*models.Certificate, io.ReadCloser, error)
}

func (m *MockCertificateService) GenerateForParticipant(ctx context.Context, eventID, participantID string) (*models.Certificate, error) {
	if m.GenerateForParticipantFunc != nil {
		return m.GenerateForParticipantFunc(ctx, eventID, participantID)
	}
	return nil, models.ErrNotFound
}

func (m *MockCertificateService) GenerateForEvent(ctx context.Context, eventID string) (*services.BatchResult, error) {
	if m.GenerateForEventFunc != nil {
		return m.GenerateForEventFunc(ctx, eventID)
	}
	return nil, models.ErrNotFound
}

func (m *MockCertificateService) Lookup(ctx context.Context, certificateNumber string) (*models.Certificate, error) {
	if m.LookupFunc != nil {
		return m.LookupFunc(ctx, certificateNumber)
	}
	return nil, models.ErrNotFound
}

func (m *MockCertificateService) Download(ctx context.Context, certificateNumber string) (*models.Certificate, io.ReadCloser, error) {
	if m.DownloadFunc != nil {
		return m.DownloadFunc(ctx, certificateNumber)
	}
	return nil, nil, models.ErrNotFound
}

// MockEventService implements EventService for testing
type MockEventService struct {
	CreateFunc         func(ctx context.Context, event *models.Event) (*models.Event, error)
	GetByIDFunc        func(ctx context.Context, id string) (*models.Event, error)
	UploadTemplateFunc func(ctx context.Context, eventID, filename, contentType string, body io.Reader, size int64) (string, error)
}

func (m *MockEventService) Create(ctx context.Context, event *models.Event) (*models.Event, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, event)
	}
	event.ID = "event-1"
	return event, nil
}

func (m *MockEventService) GetByID(ctx context.Context, id string) (*models.Event, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockEventService) UploadTemplate(ctx context.Context, eventID, filename, contentType string, body io.Reader, size int64) (string, error) {
	if m.UploadTemplateFunc != nil {
		return m.UploadTemplateFunc(ctx, eventID, filename, contentType, body, size)
	}
	return "templates/" + eventID + "/" + filename, nil
}

// MockAuthService implements AuthService for testing
type MockAuthService struct {
	LoginFunc func(ctx context.Context, email, password string) (*services.LoginResult, error)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*services.LoginResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	return nil, models.ErrUnauthorized
}
