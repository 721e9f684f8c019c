package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nadhifr/eventra/internal/database"
	"github.com/nadhifr/eventra/internal/models"
)

// ParticipantRepository handles event registration data access
type ParticipantRepository struct {
	pool *pgxpool.Pool
}

// NewParticipantRepository creates a new ParticipantRepository
func NewParticipantRepository(db *database.DB) *ParticipantRepository {
	return &ParticipantRepository{pool: db.Pool}
}

const participantColumns = `
	id, event_id, name, email, phone, registration_number,
	attendance_token, token_generated_at, token_expires_at,
	attendance_status, attendance_verified_at, verification_method,
	created_at, updated_at
`

// scanParticipantRow handles nullable fields and populates an EventParticipant model from a database row
func scanParticipantRow(row rowScanner) (*models.EventParticipant, error) {
	var p models.EventParticipant
	var phone, attendanceToken, verificationMethod *string
	var tokenGeneratedAt, tokenExpiresAt, verifiedAt *time.Time

	err := row.Scan(
		&p.ID, &p.EventID, &p.Name, &p.Email, &phone, &p.RegistrationNumber,
		&attendanceToken, &tokenGeneratedAt, &tokenExpiresAt,
		&p.AttendanceStatus, &verifiedAt, &verificationMethod,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if phone != nil {
		p.Phone = *phone
	}
	if verificationMethod != nil {
		p.VerificationMethod = *verificationMethod
	}
	p.AttendanceToken = attendanceToken
	p.TokenGeneratedAt = tokenGeneratedAt
	p.TokenExpiresAt = tokenExpiresAt
	p.AttendanceVerifiedAt = verifiedAt

	return &p, nil
}

// scanParticipantRows iterates through rows and scans each into EventParticipant models
func scanParticipantRows(rows pgx.Rows) ([]*models.EventParticipant, error) {
	defer rows.Close()

	participants := make([]*models.EventParticipant, 0)

	for rows.Next() {
		p, err := scanParticipantRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participant rows: %w", err)
	}

	return participants, nil
}

// Create inserts a new registration record
func (r *ParticipantRepository) Create(ctx context.Context, p *models.EventParticipant) (*models.EventParticipant, error) {
	query := `
		INSERT INTO event_participants (event_id, name, email, phone, registration_number, attendance_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + participantColumns

	created, err := scanParticipantRow(r.pool.QueryRow(ctx, query,
		p.EventID, p.Name, p.Email, nullIfEmpty(p.Phone), p.RegistrationNumber, p.AttendanceStatus))
	if err != nil {
		return nil, err
	}

	return created, nil
}

// GetByID retrieves a participant by id
func (r *ParticipantRepository) GetByID(ctx context.Context, id string) (*models.EventParticipant, error) {
	query := `SELECT ` + participantColumns + ` FROM event_participants WHERE id = $1`

	return scanParticipantRow(r.pool.QueryRow(ctx, query, id))
}

// GetByIDAndEvent retrieves a participant scoped to an event
func (r *ParticipantRepository) GetByIDAndEvent(ctx context.Context, id, eventID string) (*models.EventParticipant, error) {
	query := `SELECT ` + participantColumns + ` FROM event_participants WHERE id = $1 AND event_id = $2`

	return scanParticipantRow(r.pool.QueryRow(ctx, query, id, eventID))
}

// UpdateTokenFields copies the issued token onto the registration record and
// resets the attendance state to pending with token verification.
func (r *ParticipantRepository) UpdateTokenFields(ctx context.Context, id string, token string, generatedAt, expiresAt time.Time) (*models.EventParticipant, error) {
	query := `
		UPDATE event_participants
		SET attendance_token = $2,
		    token_generated_at = $3,
		    token_expires_at = $4,
		    attendance_status = $5,
		    verification_method = $6,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + participantColumns

	return scanParticipantRow(r.pool.QueryRow(ctx, query,
		id, token, generatedAt, expiresAt, models.AttendancePending, models.VerificationMethodToken))
}

// MarkRegistered moves a participant to registered (post-payment or free registration)
func (r *ParticipantRepository) MarkRegistered(ctx context.Context, id string) (*models.EventParticipant, error) {
	query := `
		UPDATE event_participants
		SET attendance_status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + participantColumns

	return scanParticipantRow(r.pool.QueryRow(ctx, query, id, models.AttendanceRegistered))
}

// MarkAttended records attendance with a conditional update so the null to
// non-null transition of attendance_verified_at happens exactly once. A second
// caller gets models.ErrAlreadyCheckedIn, never a silent overwrite.
func (r *ParticipantRepository) MarkAttended(ctx context.Context, id, method string) (*models.EventParticipant, error) {
	query := `
		UPDATE event_participants
		SET attendance_status = $2,
		    attendance_verified_at = NOW(),
		    verification_method = $3,
		    updated_at = NOW()
		WHERE id = $1 AND attendance_verified_at IS NULL
		RETURNING ` + participantColumns

	p, err := scanParticipantRow(r.pool.QueryRow(ctx, query, id, models.AttendanceAttended, method))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrAlreadyCheckedIn
		}
		return nil, err
	}

	return p, nil
}

// ListVerifiedByEvent returns all participants whose attendance has been
// verified, the eligible set for batch certificate generation.
func (r *ParticipantRepository) ListVerifiedByEvent(ctx context.Context, eventID string) ([]*models.EventParticipant, error) {
	query := `
		SELECT ` + participantColumns + `
		FROM event_participants
		WHERE event_id = $1 AND attendance_verified_at IS NOT NULL
		ORDER BY attendance_verified_at
	`

	rows, err := r.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list verified participants: %w", err)
	}

	return scanParticipantRows(rows)
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
