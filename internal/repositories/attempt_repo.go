package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/folio/internal/database"
	"github.com/BradenHooton/folio/internal/models"
	"github.com/jackc/pgx/v5"
)

// AttemptRepository handles rate_limits rows in PostgreSQL
type AttemptRepository struct {
	db *database.DB
}

// NewAttemptRepository creates a new AttemptRepository
func NewAttemptRepository(db *database.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// Insert appends one attempt row; every call is a new row
func (r *AttemptRepository) Insert(ctx context.Context, record *models.AttemptRecord) error {
	query := `
		INSERT INTO rate_limits (identifier, endpoint, attempts, created_at, reset_time)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	attempts := record.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	err := r.db.Pool.QueryRow(ctx, query,
		record.Identifier,
		record.Endpoint,
		attempts,
		record.CreatedAt,
		record.ResetTime,
	).Scan(&record.ID)
	if err != nil {
		return fmt.Errorf("failed to insert attempt: %w", err)
	}

	return nil
}

// CountSince counts rows for a key created at or after since
func (r *AttemptRepository) CountSince(ctx context.Context, identifier, endpoint string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM rate_limits
		WHERE identifier = $1 AND endpoint = $2 AND created_at >= $3
	`

	var count int
	if err := r.db.Pool.QueryRow(ctx, query, identifier, endpoint, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count attempts: %w", err)
	}
	return count, nil
}

// LatestSince returns the newest created_at for a key, or nil when there is none
func (r *AttemptRepository) LatestSince(ctx context.Context, identifier, endpoint string, since time.Time) (*time.Time, error) {
	query := `
		SELECT created_at FROM rate_limits
		WHERE identifier = $1 AND endpoint = $2 AND created_at >= $3
		ORDER BY created_at DESC
		LIMIT 1
	`

	var latest time.Time
	err := r.db.Pool.QueryRow(ctx, query, identifier, endpoint, since).Scan(&latest)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest attempt: %w", err)
	}

	return &latest, nil
}

// DeleteByIdentifier removes every row for a key
func (r *AttemptRepository) DeleteByIdentifier(ctx context.Context, identifier, endpoint string) (int64, error) {
	query := `DELETE FROM rate_limits WHERE identifier = $1 AND endpoint = $2`

	tag, err := r.db.Pool.Exec(ctx, query, identifier, endpoint)
	if err != nil {
		return 0, fmt.Errorf("failed to delete attempts: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListSince returns all rows for an endpoint created at or after since, oldest first
func (r *AttemptRepository) ListSince(ctx context.Context, endpoint string, since time.Time) ([]*models.AttemptRecord, error) {
	query := `
		SELECT id, identifier, endpoint, attempts, created_at, reset_time
		FROM rate_limits
		WHERE endpoint = $1 AND created_at >= $2
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, endpoint, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	records := make([]*models.AttemptRecord, 0)
	for rows.Next() {
		var rec models.AttemptRecord
		if err := rows.Scan(&rec.ID, &rec.Identifier, &rec.Endpoint, &rec.Attempts, &rec.CreatedAt, &rec.ResetTime); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attempt rows: %w", err)
	}

	return records, nil
}

// DeleteCreatedBefore purges an endpoint's rows older than the cutoff
func (r *AttemptRepository) DeleteCreatedBefore(ctx context.Context, endpoint string, before time.Time) (int64, error) {
	query := `DELETE FROM rate_limits WHERE endpoint = $1 AND created_at < $2`

	tag, err := r.db.Pool.Exec(ctx, query, endpoint, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old attempts: %w", err)
	}
	return tag.RowsAffected(), nil
}
