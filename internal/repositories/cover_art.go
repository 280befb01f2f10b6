package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/lbx/internal/shared"
)

// CoverArtRecord describes a cover art image written to disk.
type CoverArtRecord struct {
	CAAID       int64
	ReleaseMBID string
	Path        string
	Bytes       int64
	FetchedAt   time.Time
}

// CoverArtRepository records cover art downloads so exports can skip images they already have.
type CoverArtRepository struct {
	db *sql.DB
}

// NewCoverArtRepository creates a new CoverArtRepository with the given database connection
func NewCoverArtRepository(db *sql.DB) *CoverArtRepository {
	return &CoverArtRepository{db: db}
}

// Save inserts or replaces the record for rec.CAAID.
func (r *CoverArtRepository) Save(ctx context.Context, rec CoverArtRecord) error {
	if rec.CAAID == 0 || rec.Path == "" {
		return fmt.Errorf("%w: cover art record needs an id and a path", shared.ErrInvalidInput)
	}
	if rec.FetchedAt.IsZero() {
		rec.FetchedAt = time.Now()
	}

	query := `
		INSERT INTO cover_art (caa_id, release_mbid, path, bytes, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (caa_id) DO UPDATE
		SET release_mbid = excluded.release_mbid, path = excluded.path, bytes = excluded.bytes, fetched_at = excluded.fetched_at
	`
	if _, err := r.db.ExecContext(ctx, query, rec.CAAID, rec.ReleaseMBID, rec.Path, rec.Bytes, rec.FetchedAt.UTC()); err != nil {
		return fmt.Errorf("failed to save cover art: %w", err)
	}
	return nil
}

// Get returns the record for caaID, or (nil, nil) when none exists.
func (r *CoverArtRepository) Get(ctx context.Context, caaID int64) (*CoverArtRecord, error) {
	var rec CoverArtRecord
	err := r.db.QueryRowContext(ctx,
		`SELECT caa_id, release_mbid, path, bytes, fetched_at FROM cover_art WHERE caa_id = ?`, caaID,
	).Scan(&rec.CAAID, &rec.ReleaseMBID, &rec.Path, &rec.Bytes, &rec.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cover art: %w", err)
	}
	return &rec, nil
}

// List returns every record, most recent download first.
func (r *CoverArtRepository) List(ctx context.Context) ([]CoverArtRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT caa_id, release_mbid, path, bytes, fetched_at FROM cover_art ORDER BY fetched_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cover art: %w", err)
	}
	defer rows.Close()

	var records []CoverArtRecord
	for rows.Next() {
		var rec CoverArtRecord
		if err := rows.Scan(&rec.CAAID, &rec.ReleaseMBID, &rec.Path, &rec.Bytes, &rec.FetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cover art: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return records, nil
}
