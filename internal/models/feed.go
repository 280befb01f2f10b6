package models

import (
	"fmt"
	"strings"
)

// FeedType selects which feed endpoint a page is read from.
type FeedType int

const (
	// FeedEvents is the user's own timeline: follows, pins, recommendations, reviews.
	FeedEvents FeedType = iota
	// FeedFollowing is the listens of the users the user follows.
	FeedFollowing
	// FeedSimilar is the listens of users with similar taste.
	FeedSimilar
)

// FeedTypes lists every feed type in tab order.
var FeedTypes = []FeedType{FeedEvents, FeedFollowing, FeedSimilar}

func (f FeedType) String() string {
	switch f {
	case FeedEvents:
		return "events"
	case FeedFollowing:
		return "following"
	case FeedSimilar:
		return "similar"
	default:
		return fmt.Sprintf("FeedType(%d)", int(f))
	}
}

// Title is the display name used for tabs and headers.
func (f FeedType) Title() string {
	switch f {
	case FeedEvents:
		return "My Feed"
	case FeedFollowing:
		return "Following"
	case FeedSimilar:
		return "Similar Users"
	default:
		return f.String()
	}
}

// ParseFeedType parses the flag form of a feed type.
func ParseFeedType(s string) (FeedType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "events", "feed", "mine":
		return FeedEvents, nil
	case "following", "follow":
		return FeedFollowing, nil
	case "similar":
		return FeedSimilar, nil
	default:
		return FeedEvents, fmt.Errorf("unknown feed type %q (want events, following or similar)", s)
	}
}

func (f FeedType) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *FeedType) UnmarshalText(text []byte) error {
	parsed, err := ParseFeedType(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// FeedQuery holds the parameters of a single page request.
//
// MaxTs and MinTs are optional epoch-second bounds; nil omits the parameter.
type FeedQuery struct {
	FeedType FeedType
	UserName string
	Token    string
	Count    int
	MaxTs    *int64
	MinTs    *int64
}

// FeedPage is one decoded page, newest event first.
//
// The feed has no explicit "has more" flag: an empty page means the feed is exhausted.
type FeedPage struct {
	Payload struct {
		Count  int     `json:"count"`
		UserID string  `json:"user_id"`
		Events []Event `json:"events"`
	} `json:"payload"`
}

// Events returns the page's events.
func (p *FeedPage) Events() []Event {
	if p == nil {
		return nil
	}
	return p.Payload.Events
}

// NewFeedPage builds a page from events.
func NewFeedPage(user string, events ...Event) *FeedPage {
	page := &FeedPage{}
	page.Payload.UserID = user
	page.Payload.Count = len(events)
	page.Payload.Events = events
	return page
}

// TrackItem is anything that refers to a single recording: feed events and playlist tracks.
type TrackItem interface {
	TrackName() string
	ArtistName() string
	RecordingMSID() string
	RecordingMBID() string
	CoverArtURL() string
	OriginURL() string
	EntityName() string
}

// MusicBrainzURL links to the recording page, or "" when there is no MBID.
func MusicBrainzURL(item TrackItem) string {
	if mbid := item.RecordingMBID(); mbid != "" {
		return "https://musicbrainz.org/recording/" + mbid
	}
	return ""
}

// ReviewRequest is the user supplied part of a CritiqueBrainz review.
type ReviewRequest struct {
	EntityName string
	EntityID   string
	EntityType string
	Text       string
	Language   string // accepted but not sent; reviews are always posted as "en"
	Rating     int
}
