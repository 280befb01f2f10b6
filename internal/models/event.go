package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

const coverArtArchiveURL = "https://coverartarchive.org/release"

// EventType identifies the kind of feed entry. Unknown values are kept verbatim.
type EventType string

const (
	EventListen                 EventType = "listen"
	EventFollow                 EventType = "follow"
	EventNotification           EventType = "notification"
	EventRecommendation         EventType = "recording_recommendation"
	EventPersonalRecommendation EventType = "personal_recording_recommendation"
	EventPin                    EventType = "recording_pin"
	EventPinShort               EventType = "pin"
	EventReview                 EventType = "critiquebrainz_review"
	EventLike                   EventType = "like"
	EventUnknown                EventType = ""
)

// Deletable reports whether the owner may remove events of this type from their feed.
func (t EventType) Deletable() bool {
	return t == EventRecommendation || t == EventPinShort
}

// Label returns a short human readable name for the type.
func (t EventType) Label() string {
	switch t {
	case EventListen:
		return "listened"
	case EventFollow:
		return "follow"
	case EventNotification:
		return "notification"
	case EventRecommendation:
		return "recommended"
	case EventPersonalRecommendation:
		return "personally recommended"
	case EventPin, EventPinShort:
		return "pinned"
	case EventReview:
		return "reviewed"
	case EventLike:
		return "liked"
	case EventUnknown:
		return "event"
	default:
		return string(t)
	}
}

// EventID is an optional feed event identifier.
//
// The feed does not guarantee ids: they may be missing, null or of the wrong
// JSON type. Only a Valid id takes part in deduplication. A malformed id keeps
// its raw JSON in Raw so callers can report it.
type EventID struct {
	Value int64
	Valid bool
	Raw   string
}

// NewEventID returns a valid id.
func NewEventID(v int64) EventID {
	return EventID{Value: v, Valid: true}
}

// Malformed reports whether the id was present but not an integer.
func (id EventID) Malformed() bool {
	return !id.Valid && id.Raw != ""
}

func (id EventID) String() string {
	if !id.Valid {
		return "-"
	}
	return strconv.FormatInt(id.Value, 10)
}

func (id *EventID) UnmarshalJSON(data []byte) error {
	*id = EventID{}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		id.Raw = string(data)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		id.Raw = string(data)
		return nil
	}

	v, err := n.Int64()
	if err != nil {
		id.Raw = string(data)
		return nil
	}

	id.Value = v
	id.Valid = true
	return nil
}

func (id EventID) MarshalJSON() ([]byte, error) {
	if !id.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(id.Value, 10)), nil
}

// MBIDMapping is the MusicBrainz match the server attached to a listen.
type MBIDMapping struct {
	RecordingMBID  string `json:"recording_mbid,omitempty"`
	CAAID          *int64 `json:"caa_id,omitempty"`
	CAAReleaseMBID string `json:"caa_release_mbid,omitempty"`
	ReleaseMBID    string `json:"release_mbid,omitempty"`
}

// AdditionalInfo carries submission details of a listen.
type AdditionalInfo struct {
	RecordingMSID string `json:"recording_msid,omitempty"`
	RecordingMBID string `json:"recording_mbid,omitempty"`
	OriginURL     string `json:"origin_url,omitempty"`
}

// TrackMetadata describes the recording an event refers to.
type TrackMetadata struct {
	TrackName      string          `json:"track_name,omitempty"`
	ArtistName     string          `json:"artist_name,omitempty"`
	ReleaseName    string          `json:"release_name,omitempty"`
	AdditionalInfo *AdditionalInfo `json:"additional_info,omitempty"`
	MBIDMapping    *MBIDMapping    `json:"mbid_mapping,omitempty"`
}

// CoverArtURL returns the Cover Art Archive thumbnail, or "" when the release is unmatched.
func (t *TrackMetadata) CoverArtURL() string {
	if t == nil || t.MBIDMapping == nil || t.MBIDMapping.CAAID == nil || t.MBIDMapping.CAAReleaseMBID == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/%d-250.jpg", coverArtArchiveURL, t.MBIDMapping.CAAReleaseMBID, *t.MBIDMapping.CAAID)
}

// EventMetadata is the type specific payload of an event. Fields that do not
// apply to the event's type are left empty.
type EventMetadata struct {
	TrackMetadata *TrackMetadata `json:"track_metadata,omitempty"`
	RecordingMSID string         `json:"recording_msid,omitempty"`
	RecordingMBID string         `json:"recording_mbid,omitempty"`
	BlurbContent  string         `json:"blurb_content,omitempty"`
	PinnedUntil   int64          `json:"pinned_until,omitempty"`

	// Reviews
	EntityName string `json:"entity_name,omitempty"`
	EntityID   string `json:"entity_id,omitempty"`
	EntityType string `json:"entity_type,omitempty"`
	Text       string `json:"text,omitempty"`
	Rating     *int   `json:"rating,omitempty"`
	ReviewMBID string `json:"review_mbid,omitempty"`

	// Follows
	User0            string `json:"user_name_0,omitempty"`
	User1            string `json:"user_name_1,omitempty"`
	RelationshipType string `json:"relationship_type,omitempty"`

	Message string   `json:"message,omitempty"`
	Users   []string `json:"users,omitempty"`
}

// Event is one entry of a ListenBrainz feed.
type Event struct {
	ID        EventID       `json:"id"`
	EventType EventType     `json:"event_type"`
	UserName  string        `json:"user_name"`
	Created   int64         `json:"created"`
	Hidden    bool          `json:"hidden,omitempty"`
	Metadata  EventMetadata `json:"metadata"`
}

// Deletable reports whether the event may be removed from the owner's feed.
func (e Event) Deletable() bool {
	return e.EventType.Deletable()
}

// DedupKey identifies the event for archival. Events without an id are keyed by content.
func (e Event) DedupKey() string {
	if e.ID.Valid {
		return "id:" + e.ID.String()
	}
	return fmt.Sprintf("anon:%s:%s:%d", e.EventType, e.UserName, e.Created)
}

func (e Event) TrackName() string {
	if e.Metadata.TrackMetadata == nil {
		return ""
	}
	return e.Metadata.TrackMetadata.TrackName
}

func (e Event) ArtistName() string {
	if e.Metadata.TrackMetadata == nil {
		return ""
	}
	return e.Metadata.TrackMetadata.ArtistName
}

func (e Event) RecordingMSID() string {
	if tm := e.Metadata.TrackMetadata; tm != nil && tm.AdditionalInfo != nil && tm.AdditionalInfo.RecordingMSID != "" {
		return tm.AdditionalInfo.RecordingMSID
	}
	return e.Metadata.RecordingMSID
}

func (e Event) RecordingMBID() string {
	if tm := e.Metadata.TrackMetadata; tm != nil {
		if tm.MBIDMapping != nil && tm.MBIDMapping.RecordingMBID != "" {
			return tm.MBIDMapping.RecordingMBID
		}
		if tm.AdditionalInfo != nil && tm.AdditionalInfo.RecordingMBID != "" {
			return tm.AdditionalInfo.RecordingMBID
		}
	}
	return e.Metadata.RecordingMBID
}

func (e Event) CoverArtURL() string {
	return e.Metadata.TrackMetadata.CoverArtURL()
}

// CAAID returns the Cover Art Archive id of the matched release, or 0.
func (e Event) CAAID() int64 {
	if tm := e.Metadata.TrackMetadata; tm != nil && tm.MBIDMapping != nil && tm.MBIDMapping.CAAID != nil {
		return *tm.MBIDMapping.CAAID
	}
	return 0
}

// CAAReleaseMBID returns the release the cover art belongs to, or "".
func (e Event) CAAReleaseMBID() string {
	if tm := e.Metadata.TrackMetadata; tm != nil && tm.MBIDMapping != nil {
		return tm.MBIDMapping.CAAReleaseMBID
	}
	return ""
}

func (e Event) OriginURL() string {
	if tm := e.Metadata.TrackMetadata; tm != nil && tm.AdditionalInfo != nil {
		return tm.AdditionalInfo.OriginURL
	}
	return ""
}

// EntityName is the reviewed entity for reviews and the track name otherwise.
func (e Event) EntityName() string {
	if e.Metadata.EntityName != "" {
		return e.Metadata.EntityName
	}
	return e.TrackName()
}

// Summary renders a one line description of the event.
func (e Event) Summary() string {
	switch e.EventType {
	case EventFollow:
		return fmt.Sprintf("%s is now following %s", e.Metadata.User0, e.Metadata.User1)
	case EventNotification:
		return e.Metadata.Message
	case EventReview:
		return fmt.Sprintf("%s reviewed %s", e.UserName, e.Metadata.EntityName)
	}

	if name := e.TrackName(); name != "" {
		if artist := e.ArtistName(); artist != "" {
			return fmt.Sprintf("%s %s %s by %s", e.UserName, e.EventType.Label(), name, artist)
		}
		return fmt.Sprintf("%s %s %s", e.UserName, e.EventType.Label(), name)
	}
	return fmt.Sprintf("%s %s", e.UserName, e.EventType.Label())
}
