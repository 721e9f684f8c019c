package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nadhifr/eventra/internal/database"
	"github.com/nadhifr/eventra/internal/models"
)

// EventRepository handles event data access
type EventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository creates a new EventRepository
func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{pool: db.Pool}
}

const eventColumns = `
	id, code, title, description, event_date, location, fee_amount,
	certificate_enabled, certificate_template_path, certificate_layout,
	certificates_generated_at, created_at, updated_at
`

// scanEventRow handles nullable fields and populates an Event model from a database row
func scanEventRow(row rowScanner) (*models.Event, error) {
	var e models.Event
	var description, location, templatePath *string
	var layoutJSON []byte
	var generatedAt *time.Time

	err := row.Scan(
		&e.ID, &e.Code, &e.Title, &description, &e.EventDate, &location, &e.FeeAmount,
		&e.CertificateEnabled, &templatePath, &layoutJSON,
		&generatedAt, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if description != nil {
		e.Description = *description
	}
	if location != nil {
		e.Location = *location
	}
	if templatePath != nil {
		e.CertificateTemplatePath = *templatePath
	}
	if len(layoutJSON) > 0 {
		var layout models.CertificateLayout
		if err := json.Unmarshal(layoutJSON, &layout); err != nil {
			return nil, fmt.Errorf("failed to decode certificate layout: %w", err)
		}
		e.CertificateLayout = &layout
	}
	e.CertificatesGeneratedAt = generatedAt

	return &e, nil
}

// Create inserts a new event
func (r *EventRepository) Create(ctx context.Context, e *models.Event) (*models.Event, error) {
	var layoutJSON []byte
	if e.CertificateLayout != nil {
		var err error
		layoutJSON, err = json.Marshal(e.CertificateLayout)
		if err != nil {
			return nil, fmt.Errorf("failed to encode certificate layout: %w", err)
		}
	}

	query := `
		INSERT INTO events (code, title, description, event_date, location, fee_amount,
			certificate_enabled, certificate_template_path, certificate_layout)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + eventColumns

	return scanEventRow(r.pool.QueryRow(ctx, query,
		e.Code, e.Title, nullIfEmpty(e.Description), e.EventDate, nullIfEmpty(e.Location),
		e.FeeAmount, e.CertificateEnabled, nullIfEmpty(e.CertificateTemplatePath), layoutJSON))
}

// GetByID retrieves an event by id
func (r *EventRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	return scanEventRow(r.pool.QueryRow(ctx, query, id))
}

// SetCertificateTemplate points the event at an uploaded template object.
func (r *EventRepository) SetCertificateTemplate(ctx context.Context, id, path string) error {
	query := `UPDATE events SET certificate_template_path = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, path)
	if err != nil {
		return fmt.Errorf("failed to set certificate template: %w", err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// StampCertificatesGenerated records when the batch generation last ran.
// The stamp is written regardless of partial per-participant failures.
func (r *EventRepository) StampCertificatesGenerated(ctx context.Context, id string) error {
	query := `UPDATE events SET certificates_generated_at = NOW(), updated_at = NOW() WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to stamp certificates_generated_at: %w", err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
