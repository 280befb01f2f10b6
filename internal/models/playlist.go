package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	jspfTrackExtension    = "https://musicbrainz.org/doc/jspf#track"
	jspfPlaylistExtension = "https://musicbrainz.org/doc/jspf#playlist"
	recordingURLPrefix    = "https://musicbrainz.org/recording/"
	playlistURLPrefix     = "https://listenbrainz.org/playlist/"
)

// PlaylistResponse wraps the JSPF document returned by the playlist endpoint.
type PlaylistResponse struct {
	Playlist Playlist `json:"playlist"`
}

// Playlist is a ListenBrainz playlist in JSPF form.
type Playlist struct {
	Title      string                     `json:"title"`
	Creator    string                     `json:"creator"`
	Annotation string                     `json:"annotation,omitempty"`
	Identifier string                     `json:"identifier"`
	Date       string                     `json:"date,omitempty"`
	Extension  map[string]json.RawMessage `json:"extension,omitempty"`
	Tracks     []PlaylistTrack            `json:"track"`
}

// MBID returns the playlist id parsed from its identifier URL.
func (p Playlist) MBID() string {
	return strings.TrimSuffix(strings.TrimPrefix(p.Identifier, playlistURLPrefix), "/")
}

// Public reports the playlist's visibility from the MusicBrainz extension. Missing data reads as public.
func (p Playlist) Public() bool {
	raw, ok := p.Extension[jspfPlaylistExtension]
	if !ok {
		return true
	}
	var ext struct {
		Public *bool `json:"public"`
	}
	if err := json.Unmarshal(raw, &ext); err != nil || ext.Public == nil {
		return true
	}
	return *ext.Public
}

// Identifiers accepts the JSPF identifier as a single string or a list of strings.
type Identifiers []string

func (ids *Identifiers) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		if one == "" {
			*ids = nil
		} else {
			*ids = Identifiers{one}
		}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("identifier: %w", err)
	}
	*ids = many
	return nil
}

// TrackExtension is the MusicBrainz JSPF track extension.
type TrackExtension struct {
	AddedAt            string `json:"added_at,omitempty"`
	AddedBy            string `json:"added_by,omitempty"`
	AdditionalMetadata struct {
		CAAID          *int64 `json:"caa_id,omitempty"`
		CAAReleaseMBID string `json:"caa_release_mbid,omitempty"`
	} `json:"additional_metadata"`
}

// PlaylistTrack is one JSPF track.
type PlaylistTrack struct {
	Title      string                    `json:"title"`
	Creator    string                    `json:"creator"`
	Album      string                    `json:"album,omitempty"`
	Duration   int64                     `json:"duration,omitempty"`
	Identifier Identifiers               `json:"identifier"`
	Extension  map[string]TrackExtension `json:"extension,omitempty"`
}

func (t PlaylistTrack) ext() TrackExtension {
	return t.Extension[jspfTrackExtension]
}

func (t PlaylistTrack) TrackName() string  { return t.Title }
func (t PlaylistTrack) ArtistName() string { return t.Creator }
func (t PlaylistTrack) EntityName() string { return t.Title }
func (t PlaylistTrack) OriginURL() string  { return "" }

// RecordingMSID is always empty: playlist tracks are MusicBrainz matched.
func (t PlaylistTrack) RecordingMSID() string { return "" }

func (t PlaylistTrack) RecordingMBID() string {
	for _, id := range t.Identifier {
		if mbid, ok := strings.CutPrefix(id, recordingURLPrefix); ok {
			return strings.TrimSuffix(mbid, "/")
		}
	}
	return ""
}

func (t PlaylistTrack) CoverArtURL() string {
	meta := t.ext().AdditionalMetadata
	tm := &TrackMetadata{MBIDMapping: &MBIDMapping{CAAID: meta.CAAID, CAAReleaseMBID: meta.CAAReleaseMBID}}
	return tm.CoverArtURL()
}
