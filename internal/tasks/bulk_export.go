package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/lbx/internal/formatter"
	"github.com/desertthunder/lbx/internal/models"
	"github.com/desertthunder/lbx/internal/shared"
	"golang.org/x/time/rate"
)

const manifestName = "export_manifest.json"

// BulkExportOpts contains configuration for bulk feed exports.
type BulkExportOpts struct {
	Username   string
	Token      string
	FeedTypes  []models.FeedType // defaults to every feed
	Format     string            // Export format: json, csv, markdown, txt (default: json)
	OutputDir  string            // Base output directory (default: lbx_export_{epoch})
	MaxPages   int               // Page limit per feed, 0 for the whole feed
	NumWorkers int               // Concurrent workers (default: 3, max: 10)
	RateLimit  float64           // Feeds started per second (default: 2)
}

// FeedExportResult is the outcome of exporting one feed.
type FeedExportResult struct {
	FeedType models.FeedType
	Events   int
	Files    []string
	Success  bool
	Error    error
}

// BulkExportResult summarises a [FeedEngine.BulkExport] run.
type BulkExportResult struct {
	TotalFeeds        int
	SuccessfulExports int
	FailedExports     int
	Results           []FeedExportResult
	OutputDirectory   string
	ManifestPath      string
}

// BulkExport syncs and exports several feeds concurrently with rate limiting and progress tracking.
//
// Each worker syncs one feed (archiving through the engine's [EventArchiver] when set) and
// writes it with the formatter. Partial failures are recorded per feed, and a manifest
// summarising the run is written to {OutputDir}/export_manifest.json.
func (e *FeedEngine) BulkExport(ctx context.Context, prog chan<- ProgressUpdate, opts BulkExportOpts) (*BulkExportResult, error) {
	if e.repo == nil {
		return nil, fmt.Errorf("%w: feed repository not initialized", shared.ErrServiceUnavailable)
	}
	if opts.Username == "" {
		return nil, fmt.Errorf("%w: username", shared.ErrMissingArgument)
	}

	if len(opts.FeedTypes) == 0 {
		opts.FeedTypes = models.FeedTypes
	}
	if opts.Format == "" {
		opts.Format = "json"
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("lbx_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 3
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	total := len(opts.FeedTypes)
	result := &BulkExportResult{
		TotalFeeds:      total,
		OutputDirectory: opts.OutputDir,
		Results:         make([]FeedExportResult, 0, total),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan models.FeedType, total)
	results := make(chan FeedExportResult, total)

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, feedType := range opts.FeedTypes {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			e.sendProgress(prog, exportingFeedUpdate(i+1, total, feedType))
			jobs <- feedType
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	manifest := formatter.NewManifest("feed_export", opts.Format, opts.OutputDir)
	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			manifest.Success(res.FeedType.String(), res.Files...)
			e.sendProgress(prog, exportCompletedUpdate(completed, total, res.FeedType.Title(), len(res.Files)))
		} else {
			result.FailedExports++
			manifest.Failure(res.FeedType.String(), res.Error)
			e.sendProgress(prog, exportFailedUpdate(completed, total, res.FeedType.Title(), res.Error))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifestPath := filepath.Join(opts.OutputDir, manifestName)
	if err := formatter.WriteManifest(manifest, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	e.sendProgress(prog, manifestUpdate(manifestPath))
	return result, nil
}

// exportWorker is a worker goroutine that exports feeds from the jobs channel.
func (e *FeedEngine) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan models.FeedType,
	results chan<- FeedExportResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for feedType := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		results <- e.exportSingleFeed(ctx, feedType, opts)
	}
}

// exportSingleFeed syncs one feed and writes it in the requested format.
func (e *FeedEngine) exportSingleFeed(ctx context.Context, feedType models.FeedType, opts BulkExportOpts) FeedExportResult {
	result := FeedExportResult{FeedType: feedType, Files: []string{}}

	synced, err := e.Sync(ctx, nil, SyncOpts{
		Username: opts.Username,
		Token:    opts.Token,
		FeedType: feedType,
		MaxPages: opts.MaxPages,
	})
	if err != nil {
		result.Error = fmt.Errorf("failed to fetch feed: %w", err)
		return result
	}
	result.Events = len(synced.Events)

	export := &formatter.EventExport{
		FeedType:   feedType,
		Username:   opts.Username,
		ExportedAt: time.Now(),
		Events:     synced.Events,
	}

	target := filepath.Join(opts.OutputDir, feedType.String())
	if opts.Format == "txt" || opts.Format == "text" {
		target += ".txt"
	} else if opts.Format == "json" {
		target += ".json"
	}

	files, err := formatter.WriteExport(export, opts.Format, target)
	if err != nil {
		result.Error = fmt.Errorf("%s export failed: %w", opts.Format, err)
		return result
	}

	result.Files = files
	result.Success = true
	return result
}
