package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/lbx/internal/models"
	"github.com/desertthunder/lbx/internal/shared"
)

// ArchivedEvent is a feed event as stored in the archive.
type ArchivedEvent struct {
	ID         string
	Sequence   int
	FeedType   models.FeedType
	Username   string
	Event      models.Event
	ArchivedAt time.Time
	DeletedAt  *time.Time
}

// EventFilter narrows [EventRepository.List]. Zero values match everything.
type EventFilter struct {
	FeedType  *models.FeedType
	Username  string
	EventType models.EventType
	Before    int64 // only events created strictly before this epoch
	Limit     int
}

// EventRepository archives feed events.
type EventRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewEventRepository creates a new EventRepository with the given database connection
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db, now: time.Now}
}

const eventColumns = `id, sequence, feed_type, username, payload, archived_at, deleted_at`

// Save archives event for the given feed and user. It reports whether a row was
// written: false means the event was already archived.
func (r *EventRepository) Save(ctx context.Context, feedType models.FeedType, username string, event models.Event) (bool, error) {
	if username == "" {
		return false, fmt.Errorf("%w: username", shared.ErrMissingArgument)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return false, fmt.Errorf("failed to encode event: %w", err)
	}

	sequence, err := NextSequence(ctx, r.db, "events")
	if err != nil {
		return false, fmt.Errorf("failed to generate sequence: %w", err)
	}

	var eventID sql.NullInt64
	if event.ID.Valid {
		eventID = sql.NullInt64{Int64: event.ID.Value, Valid: true}
	}

	query := `
		INSERT INTO events (id, sequence, feed_type, username, dedup_key, event_id, event_type, actor, created, payload, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (feed_type, username, dedup_key) DO UPDATE
		SET deleted_at = NULL, payload = excluded.payload, archived_at = excluded.archived_at
		WHERE events.deleted_at IS NOT NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		shared.GenerateID(),
		sequence,
		feedType.String(),
		username,
		event.DedupKey(),
		eventID,
		string(event.EventType),
		event.UserName,
		event.Created,
		string(payload),
		r.now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert event: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}

// Get retrieves an archived event by row ID, excluding soft-deleted rows
func (r *EventRepository) Get(ctx context.Context, id string) (*ArchivedEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRowContext(ctx, query, id))
}

// GetByEventID retrieves an archived event by its feed event id.
func (r *EventRepository) GetByEventID(ctx context.Context, feedType models.FeedType, username string, eventID int64) (*ArchivedEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events
		WHERE feed_type = ? AND username = ? AND event_id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRowContext(ctx, query, feedType.String(), username, eventID))
}

// List returns archived events newest first.
func (r *EventRepository) List(ctx context.Context, filter EventFilter) ([]*ArchivedEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE deleted_at IS NULL`
	args := []any{}

	if filter.FeedType != nil {
		query += " AND feed_type = ?"
		args = append(args, filter.FeedType.String())
	}
	if filter.Username != "" {
		query += " AND username = ?"
		args = append(args, filter.Username)
	}
	if filter.EventType != "" {
		query += " AND event_type = ?"
		args = append(args, string(filter.EventType))
	}
	if filter.Before > 0 {
		query += " AND created < ?"
		args = append(args, filter.Before)
	}

	query += " ORDER BY created DESC, sequence ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*ArchivedEvent
	for rows.Next() {
		event, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return events, nil
}

// Count returns the number of archived events for a feed and user.
func (r *EventRepository) Count(ctx context.Context, feedType models.FeedType, username string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE feed_type = ? AND username = ? AND deleted_at IS NULL`,
		feedType.String(), username,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return n, nil
}

// Delete soft-deletes an archived event by row ID
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	query := `UPDATE events SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, r.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return requireRows(result, id)
}

// DeleteByEventID soft-deletes every archived copy of a feed event for username.
//
// Used after the event was deleted remotely. It returns how many rows were affected.
func (r *EventRepository) DeleteByEventID(ctx context.Context, username string, eventID int64) (int, error) {
	query := `UPDATE events SET deleted_at = ? WHERE username = ? AND event_id = ? AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, r.now().UTC(), username, eventID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete event: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return int(rows), nil
}

func requireRows(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrEventNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scan reads one row of eventColumns.
func (r *EventRepository) scan(row scanner) (*ArchivedEvent, error) {
	var (
		archived  ArchivedEvent
		feedType  string
		payload   string
		deletedAt sql.NullTime
	)

	err := row.Scan(&archived.ID, &archived.Sequence, &feedType, &archived.Username, &payload, &archived.ArchivedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}

	if archived.FeedType, err = models.ParseFeedType(feedType); err != nil {
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), &archived.Event); err != nil {
		return nil, fmt.Errorf("failed to decode archived event %s: %w", archived.ID, err)
	}
	if deletedAt.Valid {
		archived.DeletedAt = &deletedAt.Time
	}

	return &archived, nil
}
