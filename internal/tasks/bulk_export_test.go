package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/lbx/internal/formatter"
	"github.com/desertthunder/lbx/internal/models"
	"github.com/desertthunder/lbx/internal/shared"
	th "github.com/desertthunder/lbx/internal/testing"
)

func readManifest(t *testing.T, path string) formatter.Manifest {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read manifest: %v", err)
	}
	var manifest formatter.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		t.Fatalf("failed to parse manifest: %v", err)
	}
	return manifest
}

func TestBulkExport_SuccessfulExport(t *testing.T) {
	tests := []struct {
		name      string
		format    string
		wantFiles []string
	}{
		{name: "json export", format: "json", wantFiles: []string{"events.json", "following.json", "similar.json"}},
		{name: "csv export", format: "csv", wantFiles: []string{"events_events.csv", "events_metadata.json"}},
		{name: "text export", format: "txt", wantFiles: []string{"events.txt", "similar.txt"}},
		{name: "markdown export", format: "markdown", wantFiles: []string{"events/README.md", "following/README.md"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			repo := th.NewFakeFeedRepository(th.PageResult{Page: th.DescendingPage(1000, 3)})
			engine := NewFeedEngine(repo, nil)

			progressCh := make(chan ProgressUpdate, 100)
			go func() {
				for range progressCh {
				}
			}()

			result, err := engine.BulkExport(context.Background(), progressCh, BulkExportOpts{
				Username:   "rob",
				Format:     tt.format,
				OutputDir:  tempDir,
				NumWorkers: 1,
				RateLimit:  100,
			})
			close(progressCh)

			if err != nil {
				t.Fatalf("BulkExport() error = %v", err)
			}
			if result.TotalFeeds != 3 || result.SuccessfulExports != 3 || result.FailedExports != 0 {
				t.Errorf("unexpected counts: %+v", result)
			}
			if result.OutputDirectory != tempDir {
				t.Errorf("OutputDirectory = %s, want %s", result.OutputDirectory, tempDir)
			}

			for _, f := range tt.wantFiles {
				th.AssertFileExists(t, filepath.Join(tempDir, f))
			}

			if result.ManifestPath != filepath.Join(tempDir, "export_manifest.json") {
				t.Errorf("unexpected manifest path %s", result.ManifestPath)
			}
			manifest := readManifest(t, result.ManifestPath)
			if manifest.Format != tt.format || manifest.Total != 3 || manifest.Succeeded != 3 {
				t.Errorf("unexpected manifest: %+v", manifest)
			}
			if manifest.Kind != "feed_export" {
				t.Errorf("manifest kind = %s", manifest.Kind)
			}
		})
	}
}

func TestBulkExport_PartialFailures(t *testing.T) {
	tempDir := t.TempDir()
	repo := th.NewFakeFeedRepository(th.PageResult{Err: shared.ErrNetwork})
	engine := NewFeedEngine(repo, nil)

	result, err := engine.BulkExport(context.Background(), nil, BulkExportOpts{
		Username:   "rob",
		FeedTypes:  []models.FeedType{models.FeedEvents, models.FeedSimilar},
		Format:     "json",
		OutputDir:  tempDir,
		NumWorkers: 1,
		RateLimit:  100,
	})
	if err != nil {
		t.Fatalf("BulkExport() error = %v", err)
	}

	if result.SuccessfulExports != 1 || result.FailedExports != 1 {
		t.Errorf("expected one success and one failure, got %+v", result)
	}

	var failed *FeedExportResult
	for i := range result.Results {
		if !result.Results[i].Success {
			failed = &result.Results[i]
		}
	}
	if failed == nil || failed.FeedType != models.FeedEvents {
		t.Fatalf("expected the events feed to fail, got %+v", failed)
	}
	if !errors.Is(failed.Error, shared.ErrNetwork) {
		t.Errorf("expected ErrNetwork, got %v", failed.Error)
	}

	manifest := readManifest(t, result.ManifestPath)
	if manifest.Failed != 1 || !strings.Contains(th.MustReadFile(t, result.ManifestPath), "network error") {
		t.Errorf("manifest should record the failure: %+v", manifest)
	}
}

func TestBulkExport_ArchivesEvents(t *testing.T) {
	repo := th.NewFakeFeedRepository(th.PageResult{Page: th.DescendingPage(1000, 4)})
	archive := newMockArchive()
	engine := NewFeedEngine(repo, nil)
	engine.SetArchive(archive)

	_, err := engine.BulkExport(context.Background(), nil, BulkExportOpts{
		Username:  "rob",
		FeedTypes: []models.FeedType{models.FeedFollowing},
		OutputDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("BulkExport() error = %v", err)
	}
	if len(archive.saved) != 4 {
		t.Errorf("expected 4 archived events, got %d", len(archive.saved))
	}
}

func TestBulkExport_Validation(t *testing.T) {
	ctx := context.Background()

	t.Run("missing username", func(t *testing.T) {
		engine := NewFeedEngine(th.NewFakeFeedRepository(), nil)
		if _, err := engine.BulkExport(ctx, nil, BulkExportOpts{OutputDir: t.TempDir()}); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("unsupported format", func(t *testing.T) {
		engine := NewFeedEngine(th.NewFakeFeedRepository(), nil)
		result, err := engine.BulkExport(ctx, nil, BulkExportOpts{
			Username:  "rob",
			FeedTypes: []models.FeedType{models.FeedEvents},
			Format:    "xml",
			OutputDir: t.TempDir(),
		})
		if err != nil {
			t.Fatalf("BulkExport() error = %v", err)
		}
		if result.FailedExports != 1 || !errors.Is(result.Results[0].Error, shared.ErrInvalidArgument) {
			t.Errorf("expected the feed to fail with ErrInvalidArgument, got %+v", result.Results)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		engine := NewFeedEngine(th.NewFakeFeedRepository(), nil)
		result, err := engine.BulkExport(cctx, nil, BulkExportOpts{Username: "rob", OutputDir: t.TempDir()})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if result == nil || result.ManifestPath != "" {
			t.Errorf("expected no manifest for a cancelled run, got %+v", result)
		}
	})
}

// mockCoverArtCache is an in-memory CoverArtCache.
type mockCoverArtCache struct {
	mu    sync.Mutex
	paths map[int64]string
}

func (m *mockCoverArtCache) CoverArtPath(ctx context.Context, caaID int64) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.paths[caaID]
	return p, ok
}

func (m *mockCoverArtCache) RecordCoverArt(ctx context.Context, caaID int64, releaseMBID, path string, size int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths[caaID] = path
	return nil
}

func TestDownloadCoverArt(t *testing.T) {
	ctx := context.Background()
	const url77 = "https://coverartarchive.org/release/release/77-250.jpg"

	events := []models.Event{
		th.CoverArtEvent(1, 10, 77),
		th.CoverArtEvent(2, 9, 77),
		th.CoverArtEvent(3, 8, 78),
		th.ListenEvent(4, 7),
	}

	t.Run("downloads each image once", func(t *testing.T) {
		dir := t.TempDir()
		repo := th.NewFakeFeedRepository()
		repo.CoverArt[url77] = []byte("jpeg")
		cache := &mockCoverArtCache{paths: map[int64]string{}}

		engine := NewFeedEngine(repo, nil)
		engine.SetCoverArtCache(cache)

		progress := make(chan ProgressUpdate, 10)
		result, err := engine.DownloadCoverArt(ctx, progress, events, CoverArtOpts{OutputDir: dir, RateLimit: 100})
		if err != nil {
			t.Fatalf("DownloadCoverArt() error = %v", err)
		}

		if result.Total != 2 || result.Downloaded != 1 || result.Failed != 1 {
			t.Errorf("unexpected counts: %+v", result)
		}
		if got := th.MustReadFile(t, filepath.Join(dir, "77.jpg")); got != "jpeg" {
			t.Errorf("unexpected image contents %q", got)
		}
		if _, ok := cache.paths[77]; !ok {
			t.Error("expected download to be recorded in the cache")
		}
		if _, ok := cache.paths[78]; ok {
			t.Error("failed download should not be recorded")
		}

		manifest := readManifest(t, result.ManifestPath)
		if manifest.Kind != "cover_art" || manifest.Succeeded != 1 || manifest.Failed != 1 {
			t.Errorf("unexpected manifest: %+v", manifest)
		}

		updates := drain(progress)
		if len(updates) != 3 || updates[2].Phase != WriteManifest {
			t.Errorf("expected two download updates and a manifest update, got %v", updates)
		}
	})

	t.Run("skips cached images", func(t *testing.T) {
		dir := t.TempDir()
		repo := th.NewFakeFeedRepository()
		cache := &mockCoverArtCache{paths: map[int64]string{77: "/archive/77.jpg", 78: "/archive/78.jpg"}}

		engine := NewFeedEngine(repo, nil)
		engine.SetCoverArtCache(cache)

		result, err := engine.DownloadCoverArt(ctx, nil, events, CoverArtOpts{OutputDir: dir})
		if err != nil {
			t.Fatalf("DownloadCoverArt() error = %v", err)
		}
		if result.Skipped != 2 || result.Downloaded != 0 {
			t.Errorf("expected both images skipped, got %+v", result)
		}
	})

	t.Run("skips files already on disk", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "78.jpg"), []byte("old"), 0644); err != nil {
			t.Fatalf("failed to seed image: %v", err)
		}
		repo := th.NewFakeFeedRepository()
		repo.CoverArt[url77] = []byte("jpeg")

		result, err := NewFeedEngine(repo, nil).DownloadCoverArt(ctx, nil, events, CoverArtOpts{OutputDir: dir, NumWorkers: 20})
		if err != nil {
			t.Fatalf("DownloadCoverArt() error = %v", err)
		}
		if result.Downloaded != 1 || result.Skipped != 1 || result.Failed != 0 {
			t.Errorf("unexpected counts: %+v", result)
		}
	})

	t.Run("requires an output directory", func(t *testing.T) {
		engine := NewFeedEngine(th.NewFakeFeedRepository(), nil)
		if _, err := engine.DownloadCoverArt(ctx, nil, events, CoverArtOpts{}); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestCoverArtJobs(t *testing.T) {
	jobs := coverArtJobs([]models.Event{
		th.CoverArtEvent(1, 10, 5),
		th.ListenEvent(2, 9),
		th.CoverArtEvent(3, 8, 6),
		th.CoverArtEvent(4, 7, 5),
	})

	if len(jobs) != 2 || jobs[0].caaID != 5 || jobs[1].caaID != 6 {
		t.Fatalf("expected distinct ids in event order, got %+v", jobs)
	}
	if jobs[0].releaseMBID != "release" || !strings.HasSuffix(jobs[0].url, "/release/5-250.jpg") {
		t.Errorf("unexpected job %+v", jobs[0])
	}
}
