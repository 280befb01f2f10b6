package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up        key.Binding
	down      key.Binding
	nextFeed  key.Binding
	prevFeed  key.Binding
	refresh   key.Binding
	remove    key.Binding
	pin       key.Binding
	recommend key.Binding
	open      key.Binding
	playlist  key.Binding
	back      key.Binding
	quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		nextFeed:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next feed")),
		prevFeed:  key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev feed")),
		refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		remove:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		pin:       key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pin")),
		recommend: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "recommend")),
		open:      key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "musicbrainz")),
		playlist:  key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "playlist")),
		back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.nextFeed, k.prevFeed},
		{k.refresh, k.remove, k.pin, k.recommend},
		{k.open, k.playlist, k.back, k.quit},
	}
}
