package integration

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/nadhifr/eventra/internal/database"
	"github.com/nadhifr/eventra/internal/models"
	"github.com/nadhifr/eventra/internal/repositories"
	"github.com/nadhifr/eventra/pkg/auth"
)

// TestDB manages PostgreSQL testcontainer and database operations
type TestDB struct {
	Container  testcontainers.Container
	ConnString string
	Pool       *pgxpool.Pool
	DB         *database.DB
}

// SetupTestDatabase creates a PostgreSQL testcontainer, runs migrations, returns TestDB
func SetupTestDatabase(ctx context.Context) (*TestDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("eventra"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &TestDB{
		Container:  container,
		ConnString: connStr,
		Pool:       pool,
		DB:         &database.DB{Pool: pool},
	}, nil
}

// runMigrations executes all goose migrations
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir, err := filepath.Abs("../../migrations")
	if err != nil {
		return fmt.Errorf("failed to get migrations path: %w", err)
	}

	goose.SetLogger(log.New(io.Discard, "", 0))

	// Goose needs a stdlib DB connection
	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer sqlDB.Close()

	if err := goose.UpContext(ctx, sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// Teardown stops the container and closes the connection pool
func (db *TestDB) Teardown(ctx context.Context) error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.Container != nil {
		return db.Container.Terminate(ctx)
	}
	return nil
}

// CleanupTables truncates all tables for test isolation
func (db *TestDB) CleanupTables(ctx context.Context) error {
	tables := []string{
		"certificates",
		"payments",
		"registration_tokens",
		"event_participants",
		"events",
		"users",
	}

	for _, table := range tables {
		if _, err := db.Pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return nil
}

// SeedAdmin inserts an admin user with a hashed password
func SeedAdmin(ctx context.Context, db *database.DB, email, password string) (*models.User, error) {
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	userRepo := repositories.NewUserRepository(db)
	return userRepo.Create(ctx, &models.User{
		Email:        email,
		PasswordHash: hashedPassword,
		Name:         "Test Admin",
		Role:         "admin",
	})
}

// SeedEvent inserts an event directly through the repository
func SeedEvent(ctx context.Context, db *database.DB, code string, fee decimal.Decimal, certEnabled bool, templatePath string) (*models.Event, error) {
	eventRepo := repositories.NewEventRepository(db)
	return eventRepo.Create(ctx, &models.Event{
		Code:                    code,
		Title:                   "Integration Test Conference",
		Description:             "End to end test event",
		EventDate:               time.Now().AddDate(0, 0, 7),
		Location:                "Jakarta",
		FeeAmount:               fee,
		CertificateEnabled:      certEnabled,
		CertificateTemplatePath: templatePath,
		CertificateLayout: &models.CertificateLayout{
			Fields: map[string]models.TextFieldStyle{
				"participant_name":   {X: 400, Y: 280, FontSize: 36, Align: "center"},
				"certificate_number": {X: 400, Y: 360, FontSize: 16, Align: "center"},
			},
			QR: &models.QRStyle{X: 40, Y: 40, Size: 100},
		},
	})
}
