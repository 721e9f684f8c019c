package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nadhifr/eventra/internal/database"
	"github.com/nadhifr/eventra/internal/models"
)

// CertificateRepository handles certificate data access
type CertificateRepository struct {
	pool *pgxpool.Pool
}

// NewCertificateRepository creates a new CertificateRepository
func NewCertificateRepository(db *database.DB) *CertificateRepository {
	return &CertificateRepository{pool: db.Pool}
}

const certificateColumns = `
	id, event_id, participant_id, certificate_number,
	participant_name, event_title, event_date,
	file_path, file_name, file_size, status, issued_at, download_count,
	created_at, updated_at
`

// scanCertificateRow handles nullable fields and populates a Certificate model from a database row
func scanCertificateRow(row rowScanner) (*models.Certificate, error) {
	var c models.Certificate
	var filePath, fileName *string
	var fileSize *int64

	err := row.Scan(
		&c.ID, &c.EventID, &c.ParticipantID, &c.CertificateNumber,
		&c.ParticipantName, &c.EventTitle, &c.EventDate,
		&filePath, &fileName, &fileSize, &c.Status, &c.IssuedAt, &c.DownloadCount,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if filePath != nil {
		c.FilePath = *filePath
	}
	if fileName != nil {
		c.FileName = *fileName
	}
	if fileSize != nil {
		c.FileSize = *fileSize
	}

	return &c, nil
}

// scanCertificateRows iterates through rows and scans each into Certificate models
func scanCertificateRows(rows pgx.Rows) ([]*models.Certificate, error) {
	defer rows.Close()

	certs := make([]*models.Certificate, 0)

	for rows.Next() {
		c, err := scanCertificateRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan certificate: %w", err)
		}
		certs = append(certs, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating certificate rows: %w", err)
	}

	return certs, nil
}

// Create inserts a pending certificate row with the denormalized snapshot.
// The unique (event_id, participant_id) constraint maps to models.ErrConflict.
func (r *CertificateRepository) Create(ctx context.Context, c *models.Certificate) (*models.Certificate, error) {
	query := `
		INSERT INTO certificates (event_id, participant_id, certificate_number,
			participant_name, event_title, event_date, status, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + certificateColumns

	return scanCertificateRow(r.pool.QueryRow(ctx, query,
		c.EventID, c.ParticipantID, c.CertificateNumber,
		c.ParticipantName, c.EventTitle, c.EventDate, c.Status, c.IssuedAt))
}

// GetByEventAndParticipant finds the certificate for a registration, pending
// stubs included. This is the idempotency lookup.
func (r *CertificateRepository) GetByEventAndParticipant(ctx context.Context, eventID, participantID string) (*models.Certificate, error) {
	query := `
		SELECT ` + certificateColumns + `
		FROM certificates
		WHERE event_id = $1 AND participant_id = $2
	`

	return scanCertificateRow(r.pool.QueryRow(ctx, query, eventID, participantID))
}

// GetByNumber retrieves a certificate by its public certificate number
func (r *CertificateRepository) GetByNumber(ctx context.Context, number string) (*models.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE certificate_number = $1`

	return scanCertificateRow(r.pool.QueryRow(ctx, query, number))
}

// SetGenerated promotes a certificate to generated with the rendered file metadata
func (r *CertificateRepository) SetGenerated(ctx context.Context, id, filePath, fileName string, fileSize int64, issuedAt time.Time) (*models.Certificate, error) {
	query := `
		UPDATE certificates
		SET file_path = $2, file_name = $3, file_size = $4,
		    status = $5, issued_at = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + certificateColumns

	return scanCertificateRow(r.pool.QueryRow(ctx, query,
		id, filePath, fileName, fileSize, models.CertificateGenerated, issuedAt))
}

// IncrementDownloadCount bumps the download counter for a certificate
func (r *CertificateRepository) IncrementDownloadCount(ctx context.Context, id string) error {
	query := `UPDATE certificates SET download_count = download_count + 1, updated_at = NOW() WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to increment download count: %w", err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// ListPending returns certificates stuck in pending state, oldest first.
// These are recoverable stubs left behind by render failures.
func (r *CertificateRepository) ListPending(ctx context.Context, limit int) ([]*models.Certificate, error) {
	query := `
		SELECT ` + certificateColumns + `
		FROM certificates
		WHERE status = $1
		ORDER BY created_at
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, models.CertificatePending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending certificates: %w", err)
	}

	return scanCertificateRows(rows)
}
