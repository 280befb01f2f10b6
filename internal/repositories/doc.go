// Package repositories implements SQLite persistence for fetched feed data.
//
// Key Implementations:
//   - [EventRepository] : archive of feed events, one row per (feed type, user, event)
//   - [CoverArtRepository] : record of cover art images written to disk
//   - [Archive] : adapter the sync and export tasks write through
//
// Events are keyed by their dedup key: "id:{id}" when the event carries a valid id,
// otherwise a key derived from type, actor and creation time. Saving an event that is
// already archived is a no-op; saving one that was soft-deleted restores it.
//
// Rows are soft deleted via deleted_at and excluded from queries by default.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
