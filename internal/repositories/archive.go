package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/desertthunder/lbx/internal/models"
)

// Archive implements tasks.EventArchiver and tasks.CoverArtCache on top of the archive database.
//
// Duplicate events are skipped silently; only real failures are returned.
type Archive struct {
	Events   *EventRepository
	CoverArt *CoverArtRepository
}

// NewArchive creates an Archive with repositories over db.
func NewArchive(db *sql.DB) *Archive {
	return &Archive{Events: NewEventRepository(db), CoverArt: NewCoverArtRepository(db)}
}

// Archive saves events for the feed and user. It returns how many were new.
func (a *Archive) Archive(ctx context.Context, feedType models.FeedType, username string, events []models.Event) (int, error) {
	added := 0
	for _, e := range events {
		ok, err := a.Events.Save(ctx, feedType, username, e)
		if err != nil {
			return added, fmt.Errorf("failed to archive event %s: %w", e.DedupKey(), err)
		}
		if ok {
			added++
		}
	}
	return added, nil
}

// Forget soft-deletes every archived copy of a deleted feed event.
func (a *Archive) Forget(ctx context.Context, username string, eventID int64) error {
	_, err := a.Events.DeleteByEventID(ctx, username, eventID)
	return err
}

// CoverArtPath returns the recorded file for caaID when it still exists on disk.
func (a *Archive) CoverArtPath(ctx context.Context, caaID int64) (string, bool) {
	rec, err := a.CoverArt.Get(ctx, caaID)
	if err != nil || rec == nil {
		return "", false
	}
	if _, err := os.Stat(rec.Path); err != nil {
		return "", false
	}
	return rec.Path, true
}

// RecordCoverArt stores a completed download.
func (a *Archive) RecordCoverArt(ctx context.Context, caaID int64, releaseMBID, path string, size int64) error {
	return a.CoverArt.Save(ctx, CoverArtRecord{CAAID: caaID, ReleaseMBID: releaseMBID, Path: path, Bytes: size})
}
