package tasks

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/lbx/internal/feed"
	"github.com/desertthunder/lbx/internal/models"
	"github.com/desertthunder/lbx/internal/services"
	"github.com/desertthunder/lbx/internal/shared"
)

// EventArchiver persists feed events as they are fetched.
//
// Implemented by repositories.Archive.
type EventArchiver interface {
	Archive(ctx context.Context, feedType models.FeedType, username string, events []models.Event) (int, error)
}

// CoverArtCache remembers cover art already written to disk.
//
// Implemented by repositories.Archive.
type CoverArtCache interface {
	CoverArtPath(ctx context.Context, caaID int64) (string, bool)
	RecordCoverArt(ctx context.Context, caaID int64, releaseMBID, path string, size int64) error
}

// SyncOpts selects the feed a [FeedEngine.Sync] walks.
type SyncOpts struct {
	Username string
	Token    string
	FeedType models.FeedType
	PageSize int // defaults to feed.DefaultPageSize
	MaxPages int // 0 walks until the feed is exhausted
}

// SyncResult contains everything fetched by a sync.
type SyncResult struct {
	FeedType      models.FeedType
	Username      string
	Pages         int            // Pages requested, including the final empty one
	Events        []models.Event // Merged events, newest first
	Archived      int            // Events newly written to the archive
	ArchiveErrors int            // Pages whose events could not be archived
	Exhausted     bool           // The server returned an empty page
}

// FeedEngine runs long feed operations (sync, export, cover art download) on top of a [services.FeedRepository].
type FeedEngine struct {
	repo     services.FeedRepository
	archive  EventArchiver
	coverArt CoverArtCache
	logger   *log.Logger
}

// NewFeedEngine creates a FeedEngine. logger may be nil.
func NewFeedEngine(repo services.FeedRepository, logger *log.Logger) *FeedEngine {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &FeedEngine{repo: repo, logger: shared.WithLogger(logger, "component", "tasks")}
}

// SetArchive enables archiving of synced events.
func (e *FeedEngine) SetArchive(a EventArchiver) { e.archive = a }

// SetCoverArtCache lets cover art downloads skip images already on disk.
func (e *FeedEngine) SetCoverArtCache(c CoverArtCache) { e.coverArt = c }

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *FeedEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Sync walks a feed page by page through a [feed.Paginator] until it is exhausted
// or MaxPages pages were requested. Newly merged events of every page are archived
// when an [EventArchiver] is set; archive failures are logged and counted, not returned.
//
// A fetch error stops the walk and is returned together with what was fetched so far.
func (e *FeedEngine) Sync(ctx context.Context, progress chan<- ProgressUpdate, opts SyncOpts) (*SyncResult, error) {
	if e.repo == nil {
		return nil, fmt.Errorf("%w: feed repository not initialized", shared.ErrServiceUnavailable)
	}
	if opts.Username == "" {
		return nil, fmt.Errorf("%w: username", shared.ErrMissingArgument)
	}

	p := feed.NewPaginator(e.repo, feed.PaginatorOpts{
		FeedType: opts.FeedType,
		PageSize: opts.PageSize,
		Logger:   e.logger,
	})

	result := &SyncResult{FeedType: opts.FeedType, Username: opts.Username}

	for opts.MaxPages <= 0 || result.Pages < opts.MaxPages {
		if err := ctx.Err(); err != nil {
			result.Events = p.Events()
			return result, err
		}

		before := len(p.Events())
		result.Pages++
		e.sendProgress(progress, fetchingPageUpdate(result.Pages, opts.MaxPages, opts.FeedType))

		if err := p.LoadNextPage(ctx, opts.Username, opts.Token); err != nil {
			result.Events = p.Events()
			return result, err
		}

		snap := p.Snapshot()
		fresh := snap.Events[before:]
		e.sendProgress(progress, fetchedPageUpdate(result.Pages, opts.MaxPages, len(fresh), len(snap.Events)))

		if len(fresh) > 0 && e.archive != nil {
			added, err := e.archive.Archive(ctx, opts.FeedType, opts.Username, fresh)
			result.Archived += added
			if err != nil {
				result.ArchiveErrors++
				e.logger.Warn("failed to archive page", "feed", opts.FeedType, "page", result.Pages, "err", err)
			} else {
				e.sendProgress(progress, archivedUpdate(result.Pages, opts.MaxPages, added))
			}
		}

		if !snap.MoreAvailable {
			result.Exhausted = true
			e.sendProgress(progress, caughtUpUpdate(result.Pages, opts.FeedType, len(snap.Events)))
			break
		}
	}

	result.Events = p.Events()
	e.logger.Info("sync finished", "feed", opts.FeedType, "user", opts.Username,
		"pages", result.Pages, "events", len(result.Events), "archived", result.Archived)
	return result, nil
}
