package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nadhifr/eventra/internal/gateway"
	"github.com/nadhifr/eventra/internal/models"
	"github.com/nadhifr/eventra/internal/render"
	"github.com/nadhifr/eventra/pkg/queue"
)

// MockRegistrationTokenRepository implements RegistrationTokenRepository for testing
type MockRegistrationTokenRepository struct {
	CreateFunc                 func(ctx context.Context, token *models.RegistrationToken) (*models.RegistrationToken, error)
	GetActiveFunc              func(ctx context.Context, tokenValue, eventID string) (*models.RegistrationToken, error)
	GetActiveByParticipantFunc func(ctx context.Context, participantID, eventID string) (*models.RegistrationToken, error)
	RedeemFunc                 func(ctx context.Context, tokenValue, eventID string) error
}

func (m *MockRegistrationTokenRepository) Create(ctx context.Context, token *models.RegistrationToken) (*models.RegistrationToken, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, token)
	}
	return token, nil
}

func (m *MockRegistrationTokenRepository) GetActive(ctx context.Context, tokenValue, eventID string) (*models.RegistrationToken, error) {
	if m.GetActiveFunc != nil {
		return m.GetActiveFunc(ctx, tokenValue, eventID)
	}
	return nil, models.ErrNotFound
}

func (m *MockRegistrationTokenRepository) GetActiveByParticipant(ctx context.Context, participantID, eventID string) (*models.RegistrationToken, error) {
	if m.GetActiveByParticipantFunc != nil {
		return m.GetActiveByParticipantFunc(ctx, participantID, eventID)
	}
	return nil, models.ErrNotFound
}

func (m *MockRegistrationTokenRepository) Redeem(ctx context.Context, tokenValue, eventID string) error {
	if m.RedeemFunc != nil {
		return m.RedeemFunc(ctx, tokenValue, eventID)
	}
	return nil
}

// MockParticipantRepository implements ParticipantRepository for testing
type MockParticipantRepository struct {
	CreateFunc              func(ctx context.Context, p *models.EventParticipant) (*models.EventParticipant, error)
	GetByIDFunc             func(ctx context.Context, id string) (*models.EventParticipant, error)
	GetByIDAndEventFunc     func(ctx context.Context, id, eventID string) (*models.EventParticipant, error)
	UpdateTokenFieldsFunc   func(ctx context.Context, id string, token string, generatedAt, expiresAt time.Time) (*models.EventParticipant, error)
	MarkRegisteredFunc      func(ctx context.Context, id string) (*models.EventParticipant, error)
	MarkAttendedFunc        func(ctx context.Context, id, method string) (*models.EventParticipant, error)
	ListVerifiedByEventFunc func(ctx context.Context, eventID string) ([]*models.EventParticipant, error)
}

func (m *MockParticipantRepository) Create(ctx context.Context, p *models.EventParticipant) (*models.EventParticipant, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, p)
	}
	return p, nil
}

func (m *MockParticipantRepository) GetByID(ctx context.Context, id string) (*models.EventParticipant, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockParticipantRepository) GetByIDAndEvent(ctx context.Context, id, eventID string) (*models.EventParticipant, error) {
	if m.GetByIDAndEventFunc != nil {
		return m.GetByIDAndEventFunc(ctx, id, eventID)
	}
	return nil, models.ErrNotFound
}

func (m *MockParticipantRepository) UpdateTokenFields(ctx context.Context, id string, token string, generatedAt, expiresAt time.Time) (*models.EventParticipant, error) {
	if m.UpdateTokenFieldsFunc != nil {
		return m.UpdateTokenFieldsFunc(ctx, id, token, generatedAt, expiresAt)
	}
	return &models.EventParticipant{ID: id}, nil
}

func (m *MockParticipantRepository) MarkRegistered(ctx context.Context, id string) (*models.EventParticipant, error) {
	if m.MarkRegisteredFunc != nil {
		return m.MarkRegisteredFunc(ctx, id)
	}
	return &models.EventParticipant{ID: id, AttendanceStatus: models.AttendanceRegistered}, nil
}

func (m *MockParticipantRepository) MarkAttended(ctx context.Context, id, method string) (*models.EventParticipant, error) {
	if m.MarkAttendedFunc != nil {
		return m.MarkAttendedFunc(ctx, id, method)
	}
	return &models.EventParticipant{ID: id, AttendanceStatus: models.AttendanceAttended, VerificationMethod: method}, nil
}

func (m *MockParticipantRepository) ListVerifiedByEvent(ctx context.Context, eventID string) ([]*models.EventParticipant, error) {
	if m.ListVerifiedByEventFunc != nil {
		return m.ListVerifiedByEventFunc(ctx, eventID)
	}
	return []*models.EventParticipant{}, nil
}

// MockEventRepository implements EventRepository for testing
type MockEventRepository struct {
	CreateFunc                     func(ctx context.Context, e *models.Event) (*models.Event, error)
	GetByIDFunc                    func(ctx context.Context, id string) (*models.Event, error)
	SetCertificateTemplateFunc     func(ctx context.Context, id, path string) error
	StampCertificatesGeneratedFunc func(ctx context.Context, id string) error
}

func (m *MockEventRepository) Create(ctx context.Context, e *models.Event) (*models.Event, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, e)
	}
	return e, nil
}

func (m *MockEventRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockEventRepository) SetCertificateTemplate(ctx context.Context, id, path string) error {
	if m.SetCertificateTemplateFunc != nil {
		return m.SetCertificateTemplateFunc(ctx, id, path)
	}
	return nil
}

func (m *MockEventRepository) StampCertificatesGenerated(ctx context.Context, id string) error {
	if m.StampCertificatesGeneratedFunc != nil {
		return m.StampCertificatesGeneratedFunc(ctx, id)
	}
	return nil
}

// MockCertificateRepository implements CertificateRepository for testing
type MockCertificateRepository struct {
	CreateFunc                   func(ctx context.Context, c *models.Certificate) (*models.Certificate, error)
	GetByEventAndParticipantFunc func(ctx context.Context, eventID, participantID string) (*models.Certificate, error)
	GetByNumberFunc              func(ctx context.Context, number string) (*models.Certificate, error)
	SetGeneratedFunc             func(ctx context.Context, id, filePath, fileName string, fileSize int64, issuedAt time.Time) (*models.Certificate, error)
	IncrementDownloadCountFunc   func(ctx context.Context, id string) error
	ListPendingFunc              func(ctx context.Context, limit int) ([]*models.Certificate, error)
}

func (m *MockCertificateRepository) Create(ctx context.Context, c *models.Certificate) (*models.Certificate, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, c)
	}
	c.ID = "cert-1"
	return c, nil
}

func (m *MockCertificateRepository) GetByEventAndParticipant(ctx context.Context, eventID, participantID string) (*models.Certificate, error) {
	if m.GetByEventAndParticipantFunc != nil {
		return m.GetByEventAndParticipantFunc(ctx, eventID, participantID)
	}
	return nil, models.ErrNotFound
}

func (m *MockCertificateRepository) GetByNumber(ctx context.Context, number string) (*models.Certificate, error) {
	if m.GetByNumberFunc != nil {
		return m.GetByNumberFunc(ctx, number)
	}
	return nil, models.ErrNotFound
}

func (m *MockCertificateRepository) SetGenerated(ctx context.Context, id, filePath, fileName string, fileSize int64, issuedAt time.Time) (*models.Certificate, error) {
	if m.SetGeneratedFunc != nil {
		return m.SetGeneratedFunc(ctx, id, filePath, fileName, fileSize, issuedAt)
	}
	return &models.Certificate{
		ID:       id,
		FilePath: filePath,
		FileName: fileName,
		FileSize: fileSize,
		Status:   models.CertificateGenerated,
		IssuedAt: issuedAt,
	}, nil
}

func (m *MockCertificateRepository) IncrementDownloadCount(ctx context.Context, id string) error {
	if m.IncrementDownloadCountFunc != nil {
		return m.IncrementDownloadCountFunc(ctx, id)
	}
	return nil
}

func (m *MockCertificateRepository) ListPending(ctx context.Context, limit int) ([]*models.Certificate, error) {
	if m.ListPendingFunc != nil {
		return m.ListPendingFunc(ctx, limit)
	}
	return []*models.Certificate{}, nil
}

// MockPaymentRepository implements PaymentRepository for testing
type MockPaymentRepository struct {
	CreateFunc       func(ctx context.Context, p *models.Payment) (*models.Payment, error)
	GetByInvoiceFunc func(ctx context.Context, invoiceNumber string) (*models.Payment, error)
	MarkPaidFunc     func(ctx context.Context, invoiceNumber, gatewayReference string) (*models.Payment, error)
	MarkFailedFunc   func(ctx context.Context, invoiceNumber, status string) error
	ListStaleFunc    func(ctx context.Context, olderThan time.Duration, limit int) ([]*models.Payment, error)
}

func (m *MockPaymentRepository) Create(ctx context.Context, p *models.Payment) (*models.Payment, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, p)
	}
	return p, nil
}

func (m *MockPaymentRepository) GetByInvoice(ctx context.Context, invoiceNumber string) (*models.Payment, error) {
	if m.GetByInvoiceFunc != nil {
		return m.GetByInvoiceFunc(ctx, invoiceNumber)
	}
	return nil, models.ErrNotFound
}

func (m *MockPaymentRepository) MarkPaid(ctx context.Context, invoiceNumber, gatewayReference string) (*models.Payment, error) {
	if m.MarkPaidFunc != nil {
		return m.MarkPaidFunc(ctx, invoiceNumber, gatewayReference)
	}
	return &models.Payment{InvoiceNumber: invoiceNumber, Status: models.PaymentPaid}, nil
}

func (m *MockPaymentRepository) MarkFailed(ctx context.Context, invoiceNumber, status string) error {
	if m.MarkFailedFunc != nil {
		return m.MarkFailedFunc(ctx, invoiceNumber, status)
	}
	return nil
}

func (m *MockPaymentRepository) ListStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]*models.Payment, error) {
	if m.ListStaleFunc != nil {
		return m.ListStaleFunc(ctx, olderThan, limit)
	}
	return nil, nil
}

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	CreateFunc     func(ctx context.Context, user *models.User) (*models.User, error)
	GetByIDFunc    func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc func(ctx context.Context, email string) (*models.User, error)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return user, nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

// MockMailer implements Mailer for testing
type MockMailer struct {
	SendAttendanceTokenFunc func(ctx context.Context, p queue.EmailPayload) error
	Sent                    []queue.EmailPayload
}

func (m *MockMailer) SendAttendanceToken(ctx context.Context, p queue.EmailPayload) error {
	m.Sent = append(m.Sent, p)
	if m.SendAttendanceTokenFunc != nil {
		return m.SendAttendanceTokenFunc(ctx, p)
	}
	return nil
}

// MockPaymentGateway implements PaymentGateway for testing
type MockPaymentGateway struct {
	CreateInvoiceFunc   func(ctx context.Context, referenceID string, amount decimal.Decimal, description, payerEmail string) (*gateway.Invoice, error)
	CheckStatusFunc     func(ctx context.Context, invoiceID string) (*gateway.Invoice, error)
	VerifySignatureFunc func(body []byte, signature string) error
}

func (m *MockPaymentGateway) CreateInvoice(ctx context.Context, referenceID string, amount decimal.Decimal, description, payerEmail string) (*gateway.Invoice, error) {
	if m.CreateInvoiceFunc != nil {
		return m.CreateInvoiceFunc(ctx, referenceID, amount, description, payerEmail)
	}
	return &gateway.Invoice{InvoiceID: "inv-1", PaymentURL: "https://pay.example.com/inv-1", Amount: amount}, nil
}

func (m *MockPaymentGateway) CheckStatus(ctx context.Context, invoiceID string) (*gateway.Invoice, error) {
	if m.CheckStatusFunc != nil {
		return m.CheckStatusFunc(ctx, invoiceID)
	}
	return &gateway.Invoice{InvoiceID: invoiceID, Status: "pending"}, nil
}

func (m *MockPaymentGateway) VerifySignature(body []byte, signature string) error {
	if m.VerifySignatureFunc != nil {
		return m.VerifySignatureFunc(body, signature)
	}
	return nil
}

// MockRenderer implements CertificateRenderer for testing
type MockRenderer struct {
	RenderPDFFunc func(req render.Request) ([]byte, error)
}

func (m *MockRenderer) RenderPDF(req render.Request) ([]byte, error) {
	if m.RenderPDFFunc != nil {
		return m.RenderPDFFunc(req)
	}
	return []byte("%PDF-1.4 test"), nil
}

// MockStore implements storage.Store in memory for testing
type MockStore struct {
	Objects  map[string][]byte
	SaveFunc func(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	OpenFunc func(ctx context.Context, key string) (io.ReadCloser, error)
}

func NewMockStore() *MockStore {
	return &MockStore{Objects: map[string][]byte{}}
}

func (m *MockStore) Save(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, key, contentType, body, size)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.Objects[key] = data
	return nil
}

func (m *MockStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if m.OpenFunc != nil {
		return m.OpenFunc(ctx, key)
	}
	data, ok := m.Objects[key]
	if !ok {
		return nil, models.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MockStore) Delete(ctx context.Context, key string) error {
	delete(m.Objects, key)
	return nil
}

// MockCertificateIssuer implements CertificateIssuer for testing
type MockCertificateIssuer struct {
	GenerateForParticipantFunc func(ctx context.Context, eventID, participantID string) (*models.Certificate, error)
}

func (m *MockCertificateIssuer) GenerateForParticipant(ctx context.Context, eventID, participantID string) (*models.Certificate, error) {
	if m.GenerateForParticipantFunc != nil {
		return m.GenerateForParticipantFunc(ctx, eventID, participantID)
	}
	return nil, fmt.Errorf("%w: certificates are not enabled for this event", models.ErrBadRequest)
}
