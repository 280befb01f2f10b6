package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/desertthunder/lbx/internal/feed"
	"github.com/desertthunder/lbx/internal/formatter"
	"github.com/desertthunder/lbx/internal/models"
	"github.com/desertthunder/lbx/internal/shared"
	"github.com/desertthunder/lbx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// trackRef is a recording identified on the command line.
type trackRef struct {
	name   string
	artist string
	msid   string
	mbid   string
}

func trackRefFromFlags(cmd *cli.Command) trackRef {
	return trackRef{
		name:   cmd.String("track"),
		artist: cmd.String("artist"),
		msid:   cmd.String("msid"),
		mbid:   cmd.String("mbid"),
	}
}

func (t trackRef) TrackName() string     { return t.name }
func (t trackRef) ArtistName() string    { return t.artist }
func (t trackRef) RecordingMSID() string { return t.msid }
func (t trackRef) RecordingMBID() string { return t.mbid }
func (t trackRef) CoverArtURL() string   { return "" }
func (t trackRef) OriginURL() string     { return "" }
func (t trackRef) EntityName() string    { return t.name }

func (t trackRef) validate() error {
	if t.msid == "" && t.mbid == "" {
		return fmt.Errorf("%w: --msid or --mbid", shared.ErrMissingArgument)
	}
	return nil
}

func (r *Runner) newPaginator(feedType models.FeedType) *feed.Paginator {
	return feed.NewPaginator(r.feeds, feed.PaginatorOpts{
		FeedType: feedType,
		PageSize: r.pageSize(),
		Logger:   r.logger,
	})
}

func (r *Runner) requireFeeds() error {
	if r.feeds == nil {
		return fmt.Errorf("%w: ListenBrainz service not initialized", shared.ErrServiceUnavailable)
	}
	return nil
}

// FeedList prints the newest events of a feed.
func (r *Runner) FeedList(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireFeeds(); err != nil {
		return err
	}
	user, token, err := r.credentials(false)
	if err != nil {
		return err
	}
	feedType, err := parseFeedType(cmd.String("type"))
	if err != nil {
		return err
	}

	result, err := r.engine.Sync(ctx, nil, tasks.SyncOpts{
		Username: user,
		Token:    token,
		FeedType: feedType,
		PageSize: r.pageSize(),
		MaxPages: cmd.Int("pages"),
	})
	if err != nil {
		return fmt.Errorf("failed to load %s feed: %w", feedType, err)
	}

	export := &formatter.EventExport{
		FeedType:   feedType,
		Username:   user,
		ExportedAt: time.Now(),
		Events:     result.Events,
	}

	if cmd.Bool("json") {
		return r.writeJSON(export, cmd.Bool("pretty"))
	}

	text, err := formatter.ExportToText(export)
	if err != nil {
		return err
	}
	if err := r.writePlain("%s", text); err != nil {
		return err
	}
	if result.Exhausted {
		return r.writePlainln("You are all caught up!")
	}
	return nil
}

// FeedSync walks a feed and archives every event it sees.
func (r *Runner) FeedSync(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireFeeds(); err != nil {
		return err
	}
	user, token, err := r.credentials(false)
	if err != nil {
		return err
	}
	feedType, err := parseFeedType(cmd.String("type"))
	if err != nil {
		return err
	}

	archive, closeArchive, err := r.openArchive(ctx)
	if err != nil {
		return err
	}
	defer closeArchive()
	r.engine.SetArchive(archive)

	r.logger.Info("starting sync", "feed", feedType, "user", user)
	r.writePlain("Syncing %s for %s...\n\n", feedType.Title(), user)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go r.printProgress(progressCh, done)

	result, err := r.engine.Sync(ctx, progressCh, tasks.SyncOpts{
		Username: user,
		Token:    token,
		FeedType: feedType,
		PageSize: r.pageSize(),
		MaxPages: cmd.Int("pages"),
	})
	close(progressCh)
	<-done

	if result != nil {
		r.writePlain("\n")
		r.writePlainHeader("Sync Complete")
		r.writePlain("Feed: %s\n", feedType.Title())
		r.writePlain("Pages: %d\n", result.Pages)
		r.writePlain("Events: %d\n", len(result.Events))
		r.writePlain("Newly archived: %d\n", result.Archived)
		if result.ArchiveErrors > 0 {
			r.writePlain("⚠ %d pages could not be archived\n", result.ArchiveErrors)
		}
		if result.Exhausted {
			r.writePlain("You are all caught up!\n")
		}
	}
	return err
}

// FeedExport exports one or more feeds with the bulk export worker pool.
func (r *Runner) FeedExport(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireFeeds(); err != nil {
		return err
	}
	user, token, err := r.credentials(false)
	if err != nil {
		return err
	}

	var feedTypes []models.FeedType
	for _, name := range cmd.StringSlice("type") {
		feedType, err := parseFeedType(name)
		if err != nil {
			return err
		}
		feedTypes = append(feedTypes, feedType)
	}

	if cmd.Bool("archive") {
		archive, closeArchive, err := r.openArchive(ctx)
		if err != nil {
			return err
		}
		defer closeArchive()
		r.engine.SetArchive(archive)
	}

	outputDir := cmd.String("output")
	if outputDir == "" {
		outputDir = r.config.Export.OutputDir
	}

	r.writePlain("Exporting feeds for %s...\n\n", user)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go r.printProgress(progressCh, done)

	result, err := r.engine.BulkExport(ctx, progressCh, tasks.BulkExportOpts{
		Username:   user,
		Token:      token,
		FeedTypes:  feedTypes,
		Format:     cmd.String("format"),
		OutputDir:  outputDir,
		MaxPages:   cmd.Int("pages"),
		NumWorkers: cmd.Int("workers"),
	})
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Export Complete")
	r.writePlain("Output: %s\n", result.OutputDirectory)
	r.writePlain("Exported: %d/%d feeds\n", result.SuccessfulExports, result.TotalFeeds)
	if result.FailedExports > 0 {
		r.writePlain("\nFailed feeds:\n")
		for _, res := range result.Results {
			if !res.Success {
				r.writePlain("  - %s: %v\n", res.FeedType, res.Error)
			}
		}
	}
	r.writePlain("Manifest: %s\n", result.ManifestPath)
	return nil
}

// FeedArt downloads the cover art referenced by the newest events of a feed.
func (r *Runner) FeedArt(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireFeeds(); err != nil {
		return err
	}
	user, token, err := r.credentials(false)
	if err != nil {
		return err
	}
	feedType, err := parseFeedType(cmd.String("type"))
	if err != nil {
		return err
	}

	archive, closeArchive, err := r.openArchive(ctx)
	if err != nil {
		return err
	}
	defer closeArchive()
	r.engine.SetCoverArtCache(archive)

	synced, err := r.engine.Sync(ctx, nil, tasks.SyncOpts{
		Username: user,
		Token:    token,
		FeedType: feedType,
		PageSize: r.pageSize(),
		MaxPages: cmd.Int("pages"),
	})
	if err != nil {
		return fmt.Errorf("failed to load %s feed: %w", feedType, err)
	}

	workers := cmd.Int("workers")
	if workers == 0 {
		workers = r.config.Export.Workers
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go r.printProgress(progressCh, done)

	outputDir := cmd.String("output")
	result, err := r.engine.DownloadCoverArt(ctx, progressCh, synced.Events, tasks.CoverArtOpts{
		OutputDir:  outputDir,
		NumWorkers: workers,
	})
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Cover Art")
	r.writePlain("Images: %d (downloaded %d, skipped %d, failed %d)\n", result.Total, result.Downloaded, result.Skipped, result.Failed)
	r.writePlain("Output: %s\n", outputDir)

	export := &formatter.EventExport{FeedType: feedType, Username: user, ExportedAt: time.Now(), Events: synced.Events}
	readme, err := formatter.WriteMarkdownExport(export, outputDir)
	if err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	r.writePlain("Index: %s\n", filepath.Clean(readme))
	return nil
}

// FeedDelete removes a recommendation or pin from the user's feed and the archive.
func (r *Runner) FeedDelete(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireFeeds(); err != nil {
		return err
	}
	user, token, err := r.credentials(true)
	if err != nil {
		return err
	}

	event := models.Event{
		ID:        models.NewEventID(cmd.Int64("id")),
		EventType: models.EventType(cmd.String("event-type")),
		UserName:  user,
	}

	if err := r.newPaginator(models.FeedEvents).DeleteEvent(ctx, user, event, token); err != nil {
		return err
	}

	if archive, closeArchive, err := r.openArchive(ctx); err == nil {
		defer closeArchive()
		if err := archive.Forget(ctx, user, event.ID.Value); err != nil {
			r.logger.Warn("failed to forget archived event", "id", event.ID, "error", err)
		}
	} else {
		r.logger.Debug("archive unavailable", "error", err)
	}

	return r.writePlain("✓ Deleted %s event %s\n", event.EventType, event.ID)
}

// FeedPin pins a recording to the user's profile.
func (r *Runner) FeedPin(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireFeeds(); err != nil {
		return err
	}
	_, token, err := r.credentials(true)
	if err != nil {
		return err
	}

	track := trackRefFromFlags(cmd)
	if err := track.validate(); err != nil {
		return err
	}

	if err := r.newPaginator(models.FeedEvents).PinTrack(ctx, track, cmd.String("blurb"), token); err != nil {
		return fmt.Errorf("failed to pin track: %w", err)
	}
	return r.writePlain("✓ Pinned %s\n", describeTrack(track))
}

// FeedRecommend recommends a recording to followers, or personally with --to.
func (r *Runner) FeedRecommend(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireFeeds(); err != nil {
		return err
	}
	user, token, err := r.credentials(true)
	if err != nil {
		return err
	}

	track := trackRefFromFlags(cmd)
	if err := track.validate(); err != nil {
		return err
	}

	p := r.newPaginator(models.FeedEvents)
	if users := cmd.StringSlice("to"); len(users) > 0 {
		if err := p.RecommendToUsersPersonally(ctx, user, track, users, cmd.String("blurb"), token); err != nil {
			return fmt.Errorf("failed to send recommendation: %w", err)
		}
		return r.writePlain("✓ Recommended %s to %d users\n", describeTrack(track), len(users))
	}

	if err := p.RecommendToFollowers(ctx, user, track, token); err != nil {
		return fmt.Errorf("failed to recommend track: %w", err)
	}
	return r.writePlain("✓ Recommended %s to your followers\n", describeTrack(track))
}

// FeedReview posts a CritiqueBrainz review through ListenBrainz.
func (r *Runner) FeedReview(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireFeeds(); err != nil {
		return err
	}
	user, token, err := r.credentials(true)
	if err != nil {
		return err
	}

	track := trackRefFromFlags(cmd)
	entityID := cmd.String("entity-id")
	if entityID == "" {
		entityID = track.mbid
	}

	review := models.ReviewRequest{
		EntityName: track.name,
		EntityID:   entityID,
		EntityType: cmd.String("entity-type"),
		Text:       cmd.String("text"),
		Language:   cmd.String("language"),
		Rating:     cmd.Int("rating"),
	}

	if err := r.newPaginator(models.FeedEvents).WriteReview(ctx, user, track, token, review); err != nil {
		return fmt.Errorf("failed to write review: %w", err)
	}
	return r.writePlain("✓ Reviewed %s (%d/5)\n", describeTrack(track), review.Rating)
}

func describeTrack(t trackRef) string {
	switch {
	case t.name != "" && t.artist != "":
		return fmt.Sprintf("%s by %s", t.name, t.artist)
	case t.name != "":
		return t.name
	case t.mbid != "":
		return t.mbid
	default:
		return t.msid
	}
}
