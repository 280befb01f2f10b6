// package services defines the ListenBrainz gateways used by the feed paginator and UIs
package services

import (
	"context"

	"github.com/desertthunder/lbx/internal/models"
)

// FeedRepository is a stateless gateway to the ListenBrainz feed and timeline endpoints.
//
// Implementations keep no state between calls and never retry.
type FeedRepository interface {
	// FetchPage reads one page of the feed selected by q.FeedType, newest first.
	FetchPage(ctx context.Context, q models.FeedQuery) (*models.FeedPage, error)

	// FetchCoverArt returns the raw bytes behind a cover art URL.
	FetchCoverArt(ctx context.Context, url string) ([]byte, error)

	// PinTrack pins a recording to the user's profile for a week. mbid and blurb may be empty.
	PinTrack(ctx context.Context, msid, mbid, blurb, token string) error

	// DeleteEvent removes one of the user's own events from their feed.
	DeleteEvent(ctx context.Context, user string, id int64, eventType models.EventType, token string) error

	// RecommendToFollowers posts a recording recommendation to the user's followers.
	RecommendToFollowers(ctx context.Context, user string, item models.TrackItem, token string) error

	// RecommendToUsersPersonally sends a recording recommendation to specific users.
	RecommendToUsersPersonally(ctx context.Context, user string, item models.TrackItem, users []string, blurb, token string) error

	// WriteReview validates and posts a CritiqueBrainz review of item.
	WriteReview(ctx context.Context, user string, item models.TrackItem, token string, review models.ReviewRequest) error
}

// PlaylistRepository fetches playlist details.
type PlaylistRepository interface {
	Playlist(ctx context.Context, mbid, token string) (*models.Playlist, error)
}
