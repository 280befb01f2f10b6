package repositories

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/desertthunder/lbx/internal/models"
	"github.com/desertthunder/lbx/internal/shared"
	tu "github.com/desertthunder/lbx/internal/testing"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	if err := shared.RunMigrations(context.Background(), db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestNextSequence(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(ctx, db, "events")
		if err != nil {
			t.Fatalf("failed to get sequence: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}

	if _, err := NextSequence(ctx, db, "missing"); err == nil {
		t.Error("expected error for a table without a sequence")
	}
}

func TestEventRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Save And Get", func(t *testing.T) {
		repo := NewEventRepository(setupTestDB(t))
		event := tu.ListenEvent(42, 1000)

		added, err := repo.Save(ctx, models.FeedFollowing, "rob", event)
		if err != nil {
			t.Fatalf("failed to save event: %v", err)
		}
		if !added {
			t.Error("expected first save to add a row")
		}

		got, err := repo.GetByEventID(ctx, models.FeedFollowing, "rob", 42)
		if err != nil {
			t.Fatalf("failed to get event: %v", err)
		}
		if got.FeedType != models.FeedFollowing || got.Username != "rob" {
			t.Errorf("unexpected archive row %+v", got)
		}
		if got.Event.TrackName() != "Roads" || !got.Event.ID.Valid || got.Event.ID.Value != 42 {
			t.Errorf("payload did not round trip: %+v", got.Event)
		}

		byID, err := repo.Get(ctx, got.ID)
		if err != nil {
			t.Fatalf("failed to get by row id: %v", err)
		}
		if byID.Sequence != got.Sequence {
			t.Errorf("expected same row, got sequences %d and %d", byID.Sequence, got.Sequence)
		}
	})

	t.Run("Save Is Idempotent Per Feed", func(t *testing.T) {
		repo := NewEventRepository(setupTestDB(t))
		event := tu.ListenEvent(42, 1000)

		repo.Save(ctx, models.FeedEvents, "rob", event)
		added, err := repo.Save(ctx, models.FeedEvents, "rob", event)
		if err != nil {
			t.Fatalf("failed to save duplicate: %v", err)
		}
		if added {
			t.Error("expected duplicate save to be skipped")
		}

		added, _ = repo.Save(ctx, models.FeedSimilar, "rob", event)
		if !added {
			t.Error("expected the same event in another feed to be archived")
		}

		if n, _ := repo.Count(ctx, models.FeedEvents, "rob"); n != 1 {
			t.Errorf("expected 1 event, got %d", n)
		}
	})

	t.Run("Events Without IDs", func(t *testing.T) {
		repo := NewEventRepository(setupTestDB(t))

		repo.Save(ctx, models.FeedEvents, "rob", tu.AnonymousEvent(10))
		repo.Save(ctx, models.FeedEvents, "rob", tu.AnonymousEvent(10))
		repo.Save(ctx, models.FeedEvents, "rob", tu.AnonymousEvent(20))

		events, err := repo.List(ctx, EventFilter{Username: "rob"})
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(events) != 2 {
			t.Fatalf("expected 2 archived events, got %d", len(events))
		}
		if events[0].Event.ID.Valid {
			t.Error("expected absent id to stay absent")
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewEventRepository(setupTestDB(t))
		for i, created := range []int64{100, 300, 200} {
			repo.Save(ctx, models.FeedEvents, "rob", tu.ListenEvent(int64(i+1), created))
		}
		review := tu.ListenEvent(9, 250)
		review.EventType = models.EventReview
		repo.Save(ctx, models.FeedEvents, "rob", review)
		repo.Save(ctx, models.FeedSimilar, "alice", tu.ListenEvent(10, 400))

		feedType := models.FeedEvents
		events, err := repo.List(ctx, EventFilter{FeedType: &feedType, Username: "rob"})
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}

		var created []int64
		for _, e := range events {
			created = append(created, e.Event.Created)
		}
		if len(created) != 4 || created[0] != 300 || created[1] != 250 || created[3] != 100 {
			t.Errorf("expected newest first, got %v", created)
		}

		reviews, _ := repo.List(ctx, EventFilter{EventType: models.EventReview})
		if len(reviews) != 1 {
			t.Errorf("expected 1 review, got %d", len(reviews))
		}

		older, _ := repo.List(ctx, EventFilter{Before: 250, Limit: 1})
		if len(older) != 1 || older[0].Event.Created != 200 {
			t.Errorf("expected one event before 250, got %v", older)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewEventRepository(setupTestDB(t))
		repo.Save(ctx, models.FeedEvents, "rob", tu.ListenEvent(42, 1000))
		archived, _ := repo.GetByEventID(ctx, models.FeedEvents, "rob", 42)

		if err := repo.Delete(ctx, archived.ID); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		if _, err := repo.Get(ctx, archived.ID); !errors.Is(err, shared.ErrEventNotFound) {
			t.Errorf("expected ErrEventNotFound after delete, got %v", err)
		}
		if err := repo.Delete(ctx, archived.ID); !errors.Is(err, shared.ErrEventNotFound) {
			t.Errorf("expected second delete to fail, got %v", err)
		}

		added, err := repo.Save(ctx, models.FeedEvents, "rob", tu.ListenEvent(42, 1000))
		if err != nil || !added {
			t.Errorf("expected deleted event to be restored, added=%v err=%v", added, err)
		}
		if _, err := repo.GetByEventID(ctx, models.FeedEvents, "rob", 42); err != nil {
			t.Errorf("expected restored event, got %v", err)
		}
	})

	t.Run("DeleteByEventID", func(t *testing.T) {
		repo := NewEventRepository(setupTestDB(t))
		repo.Save(ctx, models.FeedEvents, "rob", tu.ListenEvent(42, 1000))
		repo.Save(ctx, models.FeedFollowing, "rob", tu.ListenEvent(42, 1000))

		n, err := repo.DeleteByEventID(ctx, "rob", 42)
		if err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		if n != 2 {
			t.Errorf("expected both copies deleted, got %d", n)
		}
	})

	t.Run("Save Requires Username", func(t *testing.T) {
		repo := NewEventRepository(setupTestDB(t))
		if _, err := repo.Save(ctx, models.FeedEvents, "", tu.ListenEvent(1, 1)); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestCoverArtRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewCoverArtRepository(setupTestDB(t))

	if rec, err := repo.Get(ctx, 7); err != nil || rec != nil {
		t.Fatalf("expected no record, got %v %v", rec, err)
	}

	if err := repo.Save(ctx, CoverArtRecord{CAAID: 7, ReleaseMBID: "rel", Path: "/tmp/7.jpg", Bytes: 10}); err != nil {
		t.Fatalf("failed to save: %v", err)
	}
	if err := repo.Save(ctx, CoverArtRecord{CAAID: 7, ReleaseMBID: "rel", Path: "/tmp/7b.jpg", Bytes: 20}); err != nil {
		t.Fatalf("failed to replace: %v", err)
	}

	rec, err := repo.Get(ctx, 7)
	if err != nil || rec == nil {
		t.Fatalf("failed to get: %v", err)
	}
	if rec.Path != "/tmp/7b.jpg" || rec.Bytes != 20 {
		t.Errorf("expected replaced record, got %+v", rec)
	}

	records, err := repo.List(ctx)
	if err != nil || len(records) != 1 {
		t.Errorf("expected one record, got %v %v", records, err)
	}

	if err := repo.Save(ctx, CoverArtRecord{}); !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestArchive(t *testing.T) {
	ctx := context.Background()
	archive := NewArchive(setupTestDB(t))

	events := []models.Event{tu.ListenEvent(2, 20), tu.ListenEvent(1, 10), tu.AnonymousEvent(5)}
	added, err := archive.Archive(ctx, models.FeedEvents, "rob", events)
	if err != nil {
		t.Fatalf("failed to archive: %v", err)
	}
	if added != 3 {
		t.Errorf("expected 3 new events, got %d", added)
	}

	added, _ = archive.Archive(ctx, models.FeedEvents, "rob", events)
	if added != 0 {
		t.Errorf("expected re-archiving to add nothing, got %d", added)
	}

	if err := archive.Forget(ctx, "rob", 2); err != nil {
		t.Fatalf("failed to forget: %v", err)
	}
	if n, _ := archive.Events.Count(ctx, models.FeedEvents, "rob"); n != 2 {
		t.Errorf("expected 2 events after forget, got %d", n)
	}

	t.Run("Cover Art", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "99.jpg")
		if err := os.WriteFile(path, []byte{1, 2, 3}, 0644); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}

		if _, ok := archive.CoverArtPath(ctx, 99); ok {
			t.Error("expected no cover art before recording")
		}
		if err := archive.RecordCoverArt(ctx, 99, "rel-9", path, 3); err != nil {
			t.Fatalf("failed to record: %v", err)
		}
		got, ok := archive.CoverArtPath(ctx, 99)
		if !ok || got != path {
			t.Errorf("expected recorded path, got %q %v", got, ok)
		}

		os.Remove(path)
		if _, ok := archive.CoverArtPath(ctx, 99); ok {
			t.Error("expected missing file to invalidate the record")
		}
	})
}
