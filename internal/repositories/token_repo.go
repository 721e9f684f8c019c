package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nadhifr/eventra/internal/database"
	"github.com/nadhifr/eventra/internal/models"
)

// RegistrationTokenRepository handles attendance token data access. Tokens are
// append-only: redemption flips used/used_at, nothing is ever deleted.
type RegistrationTokenRepository struct {
	pool *pgxpool.Pool
}

// NewRegistrationTokenRepository creates a new RegistrationTokenRepository
func NewRegistrationTokenRepository(db *database.DB) *RegistrationTokenRepository {
	return &RegistrationTokenRepository{pool: db.Pool}
}

// scanRegistrationTokenRow handles nullable fields and populates a RegistrationToken model from a database row
func scanRegistrationTokenRow(row rowScanner) (*models.RegistrationToken, error) {
	var token models.RegistrationToken
	var usedAt *time.Time

	err := row.Scan(
		&token.ID, &token.Token, &token.ParticipantID, &token.EventID,
		&token.Email, &token.Used, &usedAt, &token.ExpiresAt, &token.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	token.UsedAt = usedAt
	return &token, nil
}

// Create inserts a new registration token. The unique constraint on the token
// value surfaces as models.ErrConflict, which the issuing service uses for
// rejection-sampling retries.
func (r *RegistrationTokenRepository) Create(ctx context.Context, token *models.RegistrationToken) (*models.RegistrationToken, error) {
	query := `
		INSERT INTO registration_tokens (token, participant_id, event_id, email, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, token, participant_id, event_id, email, used, used_at, expires_at, created_at
	`

	created, err := scanRegistrationTokenRow(r.pool.QueryRow(ctx, query,
		token.Token, token.ParticipantID, token.EventID, token.Email, token.ExpiresAt))
	if err != nil {
		return nil, err
	}

	return created, nil
}

// GetActive retrieves an unused, unexpired token by exact value and event.
// Wrong value, wrong event, already used and expired all collapse into
// models.ErrNotFound, which callers surface as one generic failure.
func (r *RegistrationTokenRepository) GetActive(ctx context.Context, tokenValue, eventID string) (*models.RegistrationToken, error) {
	query := `
		SELECT id, token, participant_id, event_id, email, used, used_at, expires_at, created_at
		FROM registration_tokens
		WHERE token = $1 AND event_id = $2 AND used = FALSE AND expires_at > NOW()
	`

	token, err := scanRegistrationTokenRow(r.pool.QueryRow(ctx, query, tokenValue, eventID))
	if err != nil {
		return nil, err
	}

	return token, nil
}

// GetActiveByParticipant returns the participant's current redeemable token,
// newest first, for resend flows.
func (r *RegistrationTokenRepository) GetActiveByParticipant(ctx context.Context, participantID, eventID string) (*models.RegistrationToken, error) {
	query := `
		SELECT id, token, participant_id, event_id, email, used, used_at, expires_at, created_at
		FROM registration_tokens
		WHERE participant_id = $1 AND event_id = $2 AND used = FALSE AND expires_at > NOW()
		ORDER BY created_at DESC
		LIMIT 1
	`

	token, err := scanRegistrationTokenRow(r.pool.QueryRow(ctx, query, participantID, eventID))
	if err != nil {
		return nil, err
	}

	return token, nil
}

// Redeem marks a token as used with a single conditional update. Two requests
// racing on the same token serialize here: exactly one sees an affected row,
// the other gets models.ErrNotFound.
func (r *RegistrationTokenRepository) Redeem(ctx context.Context, tokenValue, eventID string) error {
	query := `
		UPDATE registration_tokens
		SET used = TRUE, used_at = NOW()
		WHERE token = $1 AND event_id = $2 AND used = FALSE AND expires_at > NOW()
	`

	result, err := r.pool.Exec(ctx, query, tokenValue, eventID)
	if err != nil {
		return fmt.Errorf("failed to redeem token: %w", err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
