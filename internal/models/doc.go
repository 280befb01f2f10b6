// Package models defines the ListenBrainz feed and playlist types shared by the client, paginator, archive and UIs.
//
// The package contains three groups of types:
//
// 1. Feed events, decoded from the feed endpoints:
//   - [Event] : one feed entry (listen, follow, pin, review, recommendation, notification)
//   - [EventID] : explicit optional identifier; absent or malformed ids are never used for dedup
//   - [EventMetadata] / [TrackMetadata] : the per-type payload
//
// 2. Feed requests and responses:
//   - [FeedType] : own events, followed users' listens, or similar users' listens
//   - [FeedQuery] : one page request (user, token, count, max_ts / min_ts cursors)
//   - [FeedPage] : one page of events, newest first
//
// 3. Playlists ([Playlist], [PlaylistTrack]) decoded from JSPF.
//
// [Event] and [PlaylistTrack] both implement [TrackItem], the shape the pin, recommend and review calls accept.
package models
