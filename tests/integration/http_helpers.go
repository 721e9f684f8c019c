package integration

import (
	"bytes"
	"context"
	"crypto/hmac"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"github.com/nadhifr/eventra/internal/auth"
	"github.com/nadhifr/eventra/internal/database"
	"github.com/nadhifr/eventra/internal/gateway"
	"github.com/nadhifr/eventra/internal/handlers"
	"github.com/nadhifr/eventra/internal/models"
	"github.com/nadhifr/eventra/internal/render"
	"github.com/nadhifr/eventra/internal/repositories"
	"github.com/nadhifr/eventra/internal/routes"
	"github.com/nadhifr/eventra/internal/services"
	pkglogger "github.com/nadhifr/eventra/pkg/logger"
	"github.com/nadhifr/eventra/pkg/queue"
	"github.com/nadhifr/eventra/pkg/storage"
)

// CallbackSigningKey signs gateway callback bodies in tests.
const CallbackSigningKey = "test-callback-hmac-key"

// CapturingMailer records attendance-token emails for test assertions
type CapturingMailer struct {
	mu   sync.Mutex
	Sent []queue.EmailPayload
}

func (m *CapturingMailer) SendAttendanceToken(ctx context.Context, payload queue.EmailPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, payload)
	return nil
}

// LastToken returns the token from the most recent captured email
func (m *CapturingMailer) LastToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return ""
	}
	return m.Sent[len(m.Sent)-1].Token
}

// FakeGateway satisfies the payment gateway interface without network calls
type FakeGateway struct {
	mu       sync.Mutex
	Invoices []string
	// Statuses overrides what CheckStatus reports per invoice ID.
	Statuses map[string]string
}

func (g *FakeGateway) CreateInvoice(ctx context.Context, referenceID string, amount decimal.Decimal, description, payerEmail string) (*gateway.Invoice, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Invoices = append(g.Invoices, referenceID)
	return &gateway.Invoice{
		InvoiceID:  "gw-" + referenceID,
		PaymentURL: "https://pay.test.local/" + referenceID,
		Amount:     amount,
		Status:     "pending",
		ExpiresAt:  time.Now().Add(24 * time.Hour),
	}, nil
}

func (g *FakeGateway) CheckStatus(ctx context.Context, invoiceID string) (*gateway.Invoice, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	status := "pending"
	if s, ok := g.Statuses[invoiceID]; ok {
		status = s
	}
	return &gateway.Invoice{InvoiceID: invoiceID, Status: status}, nil
}

func (g *FakeGateway) VerifySignature(body []byte, signature string) error {
	if !hmac.Equal([]byte(gateway.Sign(body, []byte(CallbackSigningKey))), []byte(signature)) {
		return models.ErrInvalidSignature
	}
	return nil
}

// TestServer wraps httptest.Server with database and all dependencies
type TestServer struct {
	Server *httptest.Server
	DB     *database.DB
	Mailer *CapturingMailer
	Store  storage.Store
}

// NewTestServer initializes a complete HTTP server with real database,
// local disk storage and captured email
func NewTestServer(db *database.DB, storeDir string) (*TestServer, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	store, err := storage.NewLocalStore(storeDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create local store: %w", err)
	}

	userRepo := repositories.NewUserRepository(db)
	eventRepo := repositories.NewEventRepository(db)
	participantRepo := repositories.NewParticipantRepository(db)
	tokenRepo := repositories.NewRegistrationTokenRepository(db)
	certRepo := repositories.NewCertificateRepository(db)
	paymentRepo := repositories.NewPaymentRepository(db)

	tokenManager := auth.NewTokenManager("test-secret-32-characters-long-for-testing", 15*time.Minute)
	auditLogger := pkglogger.NewAuditLogger(logger)

	mailer := &CapturingMailer{}
	gw := &FakeGateway{}
	renderer := render.NewRenderer("")

	tokenService := services.NewTokenService(tokenRepo, participantRepo, eventRepo, mailer, logger, time.Minute)
	certificateService := services.NewCertificateService(certRepo, participantRepo, eventRepo, renderer, store, auditLogger, logger, "https://certs.test.local")
	attendanceService := services.NewAttendanceService(tokenRepo, participantRepo, certificateService, auditLogger, logger)
	registrationService := services.NewRegistrationService(participantRepo, paymentRepo, eventRepo, tokenService, gw, logger, "INV")
	eventService := services.NewEventService(eventRepo, store, logger)
	authService := services.NewAuthService(userRepo, tokenManager, logger)

	router := chi.NewRouter()
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Recoverer)

	routes.RegisterRoutes(router,
		handlers.NewAttendanceHandler(attendanceService),
		handlers.NewRegistrationHandler(registrationService, tokenService),
		handlers.NewPaymentHandler(registrationService),
		handlers.NewCertificateHandler(certificateService, ""),
		handlers.NewEventHandler(eventService),
		handlers.NewAuthHandler(authService),
		tokenManager,
	)

	return &TestServer{
		Server: httptest.NewServer(router),
		DB:     db,
		Mailer: mailer,
		Store:  store,
	}, nil
}

// Close shuts down the HTTP server
func (ts *TestServer) Close() {
	ts.Server.Close()
}

// PostJSON sends a JSON POST and decodes the response body into out (when non-nil)
func (ts *TestServer) PostJSON(t interface{ Fatalf(string, ...any) }, path string, payload any, headers map[string]string, out any) (int, []byte) {
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, ts.Server.URL+path, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := ts.Server.Client().Do(req)
	if err != nil {
		t.Fatalf("post %s: %v", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			t.Fatalf("decode response %s: %v", raw, err)
		}
	}
	return resp.StatusCode, raw
}

// GetJSON sends a GET and decodes the response body into out (when non-nil)
func (ts *TestServer) GetJSON(t interface{ Fatalf(string, ...any) }, path string, out any) (int, []byte) {
	resp, err := ts.Server.Client().Get(ts.Server.URL + path)
	if err != nil {
		t.Fatalf("get %s: %v", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			t.Fatalf("decode response %s: %v", raw, err)
		}
	}
	return resp.StatusCode, raw
}

// Login authenticates the seeded admin and returns a bearer token
func (ts *TestServer) Login(t interface{ Fatalf(string, ...any) }, email, password string) string {
	var result struct {
		AccessToken string `json:"access_token"`
	}
	status, raw := ts.PostJSON(t, "/auth/login", map[string]string{"email": email, "password": password}, nil, &result)
	if status != http.StatusOK {
		t.Fatalf("login failed: status %d body %s", status, raw)
	}
	return result.AccessToken
}
