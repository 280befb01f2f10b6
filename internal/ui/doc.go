// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI has two views:
//  1. [FeedView] : the user's feeds as tabs (My Feed, Following, Similar Users) with infinite scroll
//  2. [PlaylistView] : the tracks of one playlist, loaded through a [feed.UIState] stream
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Feed state comes from a feed.Paginator; its snapshots are delivered through a subscription channel, so the
// loading and failure states render while a page is still in flight.
//
// Keyboard navigation uses vim-style bindings (j/k, tab, r, d, p, s, o, l, esc, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
