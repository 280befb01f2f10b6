// Package tasks runs long feed operations with real-time progress reporting.
//
// # Core Operations
//
// [FeedEngine] exposes three operations:
//
//  1. [FeedEngine.Sync] : walk one feed to the end (or a page limit)
//     - Drives a feed.Paginator, so deduplication and cursor handling match the UI
//     - Archives each page's new events through an optional [EventArchiver]
//
//  2. [FeedEngine.BulkExport] : sync and export several feeds concurrently
//     - Worker pool with a rate limiter, one job per feed
//     - Writes every feed with the formatter and an export_manifest.json
//
//  3. [FeedEngine.DownloadCoverArt] : fetch the cover art of a set of events
//     - One download per distinct Cover Art Archive id, written as {caa_id}.jpg
//     - Skips images already known to the optional [CoverArtCache]
//
// # Progress Reporting
//
// All operations report progress over a caller-supplied channel. The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Persistence
//
// Archive and cover art cache failures are logged and counted; they never abort a run.
// repositories.Archive implements both interfaces.
package tasks
