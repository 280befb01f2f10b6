package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/lbx/internal/feed"
	"github.com/desertthunder/lbx/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgSnapshot MsgKind = iota
	MsgPageLoaded
	MsgActionDone
	MsgPlaylistState
)

// snapshotMsg is the constructor for [MsgSnapshot]
func snapshotMsg(snap feed.Snapshot) Msg {
	return Msg{kind: MsgSnapshot, data: snap}
}

// pageLoadedMsg is the constructor for [MsgPageLoaded]
func pageLoadedMsg(err error) Msg {
	return Msg{kind: MsgPageLoaded, data: err}
}

type actionResult struct {
	action string
	err    error
}

// actionDoneMsg is the constructor for [MsgActionDone]
func actionDoneMsg(action string, err error) Msg {
	return Msg{kind: MsgActionDone, data: actionResult{action, err}}
}

// playlistStateMsg is the constructor for [MsgPlaylistState]
func playlistStateMsg(state feed.UIState[*models.Playlist]) Msg {
	return Msg{kind: MsgPlaylistState, data: state}
}
