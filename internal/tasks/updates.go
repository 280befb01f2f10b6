package tasks

import (
	"fmt"

	"github.com/desertthunder/lbx/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase (0 when unknown)
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchPage Phase = iota
	ArchiveEvents
	ExportFeed
	DownloadCoverArt
	WriteManifest
)

func (p Phase) String() string {
	switch p {
	case FetchPage:
		return "fetch_page"
	case ArchiveEvents:
		return "archive_events"
	case ExportFeed:
		return "export_feed"
	case DownloadCoverArt:
		return "download_cover_art"
	case WriteManifest:
		return "write_manifest"
	default:
		return ""
	}
}

func fetchingPageUpdate(step, total int, feedType models.FeedType) ProgressUpdate {
	if total > 0 {
		return ProgressUpdate{
			Phase:   FetchPage,
			Step:    step,
			Total:   total,
			Message: fmt.Sprintf("[%d/%d] Fetching %s page...", step, total, feedType),
		}
	}
	return ProgressUpdate{
		Phase:   FetchPage,
		Step:    step,
		Message: fmt.Sprintf("Fetching %s page %d...", feedType, step),
	}
}

func fetchedPageUpdate(step, total, added, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPage,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Page %d: %d new events (%d total)", step, added, count),
		Data:    added,
	}
}

func caughtUpUpdate(step int, feedType models.FeedType, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPage,
		Step:    step,
		Total:   step,
		Message: fmt.Sprintf("All caught up on %s (%d events)", feedType.Title(), count),
	}
}

func archivedUpdate(step, total, added int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ArchiveEvents,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Archived %d new events", added),
		Data:    added,
	}
}

func exportingFeedUpdate(step, total int, feedType models.FeedType) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportFeed,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, feedType.Title()),
	}
}

func exportCompletedUpdate(step, total int, name string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportFeed,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, name, filesCount),
	}
}

func exportFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportFeed,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}

func coverArtUpdate(step, total int, res CoverArtDownload) ProgressUpdate {
	var msg string
	switch {
	case res.Error != nil:
		msg = fmt.Sprintf("[%d/%d] ✗ %d: %v", step, total, res.CAAID, res.Error)
	case res.Skipped:
		msg = fmt.Sprintf("[%d/%d] - %d (cached)", step, total, res.CAAID)
	default:
		msg = fmt.Sprintf("[%d/%d] ✓ %d (%d bytes)", step, total, res.CAAID, res.Bytes)
	}
	return ProgressUpdate{
		Phase:   DownloadCoverArt,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    res,
	}
}

func manifestUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteManifest,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Wrote manifest %s", path),
	}
}
