package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/lbx/internal/models"
	"github.com/desertthunder/lbx/internal/shared"
)

var (
	_ list.Item = eventItem{}
	_ list.Item = trackItem{}
)

// eventItem wraps [models.Event] to implement [list.Item].
type eventItem struct {
	event models.Event
	now   time.Time
}

func (i eventItem) FilterValue() string { return i.event.Summary() }
func (i eventItem) Title() string       { return i.event.Summary() }
func (i eventItem) Description() string {
	desc := fmt.Sprintf("%s • %s", shared.FormatRelative(i.event.Created, i.now), i.event.EventType.Label())
	if blurb := i.event.Metadata.BlurbContent; blurb != "" {
		desc = fmt.Sprintf("%s • %s", desc, shared.Truncate(blurb, 60))
	} else if text := i.event.Metadata.Text; text != "" {
		desc = fmt.Sprintf("%s • %s", desc, shared.Truncate(text, 60))
	}
	return desc
}

// trackItem wraps [models.PlaylistTrack] to implement [list.Item].
type trackItem struct {
	track models.PlaylistTrack
}

func (i trackItem) FilterValue() string { return i.track.Title }
func (i trackItem) Title() string       { return i.track.Title }
func (i trackItem) Description() string {
	desc := i.track.Creator
	if i.track.Album != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.track.Album)
	}
	return desc
}

func eventItems(events []models.Event, now time.Time) []list.Item {
	items := make([]list.Item, len(events))
	for i, e := range events {
		items[i] = eventItem{event: e, now: now}
	}
	return items
}
