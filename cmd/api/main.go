package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/nadhifr/eventra/internal/auth"
	"github.com/nadhifr/eventra/internal/background"
	"github.com/nadhifr/eventra/internal/config"
	"github.com/nadhifr/eventra/internal/database"
	"github.com/nadhifr/eventra/internal/gateway"
	"github.com/nadhifr/eventra/internal/handlers"
	middlewareCustom "github.com/nadhifr/eventra/internal/middleware"
	"github.com/nadhifr/eventra/internal/models"
	"github.com/nadhifr/eventra/internal/render"
	"github.com/nadhifr/eventra/internal/repositories"
	"github.com/nadhifr/eventra/internal/routes"
	"github.com/nadhifr/eventra/internal/services"
	pkgauth "github.com/nadhifr/eventra/pkg/auth"
	pkglogger "github.com/nadhifr/eventra/pkg/logger"
	"github.com/nadhifr/eventra/pkg/queue"
	"github.com/nadhifr/eventra/pkg/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Database.MigrationsDir != "" {
		migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 2*time.Minute)
		err := db.Migrate(migrateCtx, cfg.Database.MigrationsDir)
		migrateCancel()
		if err != nil {
			logger.Error("failed to run migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	eventRepo := repositories.NewEventRepository(db)
	participantRepo := repositories.NewParticipantRepository(db)
	tokenRepo := repositories.NewRegistrationTokenRepository(db)
	certRepo := repositories.NewCertificateRepository(db)
	paymentRepo := repositories.NewPaymentRepository(db)

	// Initialize token manager
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry)

	auditLogger := pkglogger.NewAuditLogger(logger)

	// Certificate file storage
	store, err := newStore(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize storage", slog.Any("error", err))
		os.Exit(1)
	}

	// Outbound mail: queued through Redis when configured, inline otherwise
	mailer, redisClient, err := newMailer(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize mailer", slog.Any("error", err))
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Payment gateway client
	gatewayClient := gateway.NewClient(gateway.Config{
		BaseURL:    cfg.Payment.GatewayBaseURL,
		MerchantID: cfg.Payment.ClientID,
		HMACKey:    cfg.Payment.SecretKey,
	}, logger)

	// Certificate renderer
	renderer := render.NewRenderer(cfg.Certificate.FontPath)

	// Initialize services
	tokenService := services.NewTokenService(tokenRepo, participantRepo, eventRepo, mailer, logger, cfg.Mail.ResendCooldown)
	certificateService := services.NewCertificateService(certRepo, participantRepo, eventRepo, renderer, store, auditLogger, logger, cfg.Certificate.VerifyURLBase)
	attendanceService := services.NewAttendanceService(tokenRepo, participantRepo, certificateService, auditLogger, logger)
	registrationService := services.NewRegistrationService(participantRepo, paymentRepo, eventRepo, tokenService, gatewayClient, logger, cfg.Payment.InvoicePrefix)
	eventService := services.NewEventService(eventRepo, store, logger)
	authService := services.NewAuthService(userRepo, tokenManager, logger)

	// Initialize handlers
	attendanceHandler := handlers.NewAttendanceHandler(attendanceService)
	registrationHandler := handlers.NewRegistrationHandler(registrationService, tokenService)
	paymentHandler := handlers.NewPaymentHandler(registrationService)
	certificateHandler := handlers.NewCertificateHandler(certificateService, cfg.Certificate.DownloadBaseURL)
	eventHandler := handlers.NewEventHandler(eventService)
	authHandler := handlers.NewAuthHandler(authService)

	// Bootstrap first admin user if configured
	bootstrapCtx, bootstrapCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminUser(bootstrapCtx, userRepo, logger); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}
	bootstrapCancel()

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.RequestLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, attendanceHandler, registrationHandler, paymentHandler, certificateHandler, eventHandler, authHandler, tokenManager)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := db.HealthCheck(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start certificate recovery sweeper
	sweeper := background.NewCertificateSweeper(certificateService, logger, cfg.Certificate.RetryInterval)
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()

	go sweeper.Start(sweepCtx)

	// Start payment reconciliation for callbacks that never arrived
	reconciler := background.NewPaymentReconciler(registrationService, logger, cfg.Payment.ReconcileInterval)
	go reconciler.Start(sweepCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	sweepCancel()
	sweeper.Stop()
	reconciler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// newStore selects local disk or S3 storage based on configuration.
func newStore(cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case "s3":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return storage.NewS3Store(ctx, cfg.Storage.AWSRegion, cfg.Storage.Bucket, logger)
	case "", "local":
		return storage.NewLocalStore(cfg.Storage.LocalDir)
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", cfg.Storage.Driver)
	}
}

// newMailer wires a QueueMailer when Redis is configured; otherwise token
// emails are sent inline through SES. The returned client is nil in the
// inline case.
func newMailer(cfg *config.Config, logger *slog.Logger) (services.Mailer, *redis.Client, error) {
	if cfg.Redis.Addr == "" {
		mailer, err := services.NewSESMailer(cfg.Mail.AWSRegion, cfg.Mail.FromAddress, logger)
		if err != nil {
			return nil, nil, err
		}
		return mailer, nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return services.NewQueueMailer(queue.NewQueue(client, logger), logger), client, nil
}

// ensureAdminUser creates the first admin user if ADMIN_EMAIL and ADMIN_PASSWORD are set
func ensureAdminUser(ctx context.Context, userRepo *repositories.UserRepository, logger *slog.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin user creation")
		return nil
	}

	_, err := userRepo.GetByEmail(ctx, adminEmail)
	if err == nil {
		logger.Info("admin user already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &models.User{
		Email:        adminEmail,
		PasswordHash: hashedPassword,
		Name:         "Admin",
		Role:         "admin",
	}

	if _, err := userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("admin user created successfully")
	return nil
}
