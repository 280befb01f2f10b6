package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/desertthunder/lbx/internal/formatter"
	"github.com/desertthunder/lbx/internal/models"
	"github.com/desertthunder/lbx/internal/shared"
	"golang.org/x/time/rate"
)

// CoverArtOpts configures [FeedEngine.DownloadCoverArt].
type CoverArtOpts struct {
	OutputDir  string  // Directory the images are written to (required)
	NumWorkers int     // Concurrent downloads (default: 4, max: 10)
	RateLimit  float64 // Downloads started per second (default: 5)
}

// CoverArtDownload is the outcome for one Cover Art Archive image.
type CoverArtDownload struct {
	CAAID       int64
	ReleaseMBID string
	URL         string
	Path        string
	Bytes       int64
	Skipped     bool // already on disk
	Error       error
}

// CoverArtResult summarises a cover art download run.
type CoverArtResult struct {
	Total        int
	Downloaded   int
	Skipped      int
	Failed       int
	Downloads    []CoverArtDownload
	ManifestPath string
}

type coverArtJob struct {
	caaID       int64
	releaseMBID string
	url         string
}

// coverArtJobs returns one job per distinct cover art id, in event order.
func coverArtJobs(events []models.Event) []coverArtJob {
	seen := make(map[int64]struct{})
	var jobs []coverArtJob
	for _, ev := range events {
		id, url := ev.CAAID(), ev.CoverArtURL()
		if id == 0 || url == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		jobs = append(jobs, coverArtJob{caaID: id, releaseMBID: ev.CAAReleaseMBID(), url: url})
	}
	return jobs
}

// DownloadCoverArt writes the cover art of events to {OutputDir}/{caa_id}.jpg using a
// rate limited worker pool. Images already recorded in the engine's [CoverArtCache],
// or already present in OutputDir, are skipped. A manifest is written when done.
func (e *FeedEngine) DownloadCoverArt(ctx context.Context, prog chan<- ProgressUpdate, events []models.Event, opts CoverArtOpts) (*CoverArtResult, error) {
	if e.repo == nil {
		return nil, fmt.Errorf("%w: feed repository not initialized", shared.ErrServiceUnavailable)
	}
	if opts.OutputDir == "" {
		return nil, fmt.Errorf("%w: output directory", shared.ErrMissingArgument)
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	pending := coverArtJobs(events)
	total := len(pending)
	result := &CoverArtResult{Total: total, Downloads: make([]CoverArtDownload, 0, total)}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan coverArtJob, total)
	results := make(chan CoverArtDownload, total)

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.coverArtWorker(ctx, &wg, limiter, jobs, results, opts.OutputDir)
	}

	for _, j := range pending {
		jobs <- j
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	manifest := formatter.NewManifest("cover_art", "jpg", opts.OutputDir)
	completed := 0
	for res := range results {
		completed++
		result.Downloads = append(result.Downloads, res)
		name := strconv.FormatInt(res.CAAID, 10)

		switch {
		case res.Error != nil:
			result.Failed++
			manifest.Failure(name, res.Error)
		case res.Skipped:
			result.Skipped++
			manifest.Skip(name, res.Path)
		default:
			result.Downloaded++
			manifest.Success(name, res.Path)
		}
		e.sendProgress(prog, coverArtUpdate(completed, total, res))
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifestPath := filepath.Join(opts.OutputDir, manifestName)
	if err := formatter.WriteManifest(manifest, manifestPath); err != nil {
		return result, fmt.Errorf("download completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	e.sendProgress(prog, manifestUpdate(manifestPath))
	return result, nil
}

func (e *FeedEngine) coverArtWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	jobs <-chan coverArtJob,
	results chan<- CoverArtDownload,
	outputDir string,
) {
	defer wg.Done()

	for job := range jobs {
		if ctx.Err() != nil {
			return
		}
		results <- e.downloadOne(ctx, limiter, job, outputDir)
	}
}

func (e *FeedEngine) downloadOne(ctx context.Context, limiter *rate.Limiter, job coverArtJob, outputDir string) CoverArtDownload {
	res := CoverArtDownload{
		CAAID:       job.caaID,
		ReleaseMBID: job.releaseMBID,
		URL:         job.url,
		Path:        filepath.Join(outputDir, fmt.Sprintf("%d.jpg", job.caaID)),
	}

	if e.coverArt != nil {
		if path, ok := e.coverArt.CoverArtPath(ctx, job.caaID); ok {
			res.Path = path
			res.Skipped = true
			return res
		}
	}
	if info, err := os.Stat(res.Path); err == nil && info.Size() > 0 {
		res.Bytes = info.Size()
		res.Skipped = true
		e.record(ctx, res)
		return res
	}

	if err := limiter.Wait(ctx); err != nil {
		res.Error = err
		return res
	}

	data, err := e.repo.FetchCoverArt(ctx, job.url)
	if err != nil {
		res.Error = fmt.Errorf("failed to download cover art: %w", err)
		return res
	}
	if err := os.WriteFile(res.Path, data, 0644); err != nil {
		res.Error = fmt.Errorf("failed to save cover art: %w", err)
		return res
	}
	res.Bytes = int64(len(data))
	e.record(ctx, res)
	return res
}

// record stores a finished download in the cache. Failures only cost a re-download later.
func (e *FeedEngine) record(ctx context.Context, res CoverArtDownload) {
	if e.coverArt == nil {
		return
	}
	if err := e.coverArt.RecordCoverArt(ctx, res.CAAID, res.ReleaseMBID, res.Path, res.Bytes); err != nil {
		e.logger.Warn("failed to record cover art", "caa_id", res.CAAID, "err", err)
	}
}
