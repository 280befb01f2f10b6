package ui

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/lbx/internal/feed"
	"github.com/desertthunder/lbx/internal/models"
	"github.com/desertthunder/lbx/internal/services"
	"github.com/desertthunder/lbx/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	FeedView ViewState = iota
	PlaylistView
)

// Session holds the signed in user and the optional playlist shown by the playlist view.
type Session struct {
	Username     string
	Token        string
	PlaylistMBID string
}

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	view      ViewState
	paginator *feed.Paginator
	playlists services.PlaylistRepository
	session   Session
	openURL   func(string) error
	now       func() time.Time

	width       int
	height      int
	snapshot    feed.Snapshot
	snapshots   <-chan feed.Snapshot
	unsubscribe func()
	feedList    list.Model

	playlist       feed.UIState[*models.Playlist]
	playlistStream <-chan feed.UIState[*models.Playlist]
	trackList      list.Model

	status    string
	statusErr bool
	help      help.Model
	keys      keyMap
}

// NewModel creates a new TUI model over paginator. playlists may be nil when no playlist view is wanted.
func NewModel(ctx context.Context, paginator *feed.Paginator, playlists services.PlaylistRepository, session Session) *Model {
	m := &Model{
		ctx:       ctx,
		view:      FeedView,
		paginator: paginator,
		playlists: playlists,
		session:   session,
		openURL:   shared.OpenBrowser,
		now:       time.Now,
		snapshot:  paginator.Snapshot(),
		help:      help.New(),
		keys:      newKeyMap(),
	}
	m.feedList = newList(m.snapshot.FeedType.Title())
	m.trackList = newList("Playlist")
	return m
}

func newList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()
	return l
}

// Init subscribes to the paginator and loads the first page.
func (m *Model) Init() tea.Cmd {
	m.snapshots, m.unsubscribe = m.paginator.Subscribe()
	return tea.Batch(m.waitForSnapshot(), m.loadNextPage())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.feedList.SetSize(msg.Width-4, msg.Height-8)
		m.trackList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case FeedView:
			return m.handleFeedKeys(msg)
		case PlaylistView:
			return m.handlePlaylistKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgSnapshot:
		m.applySnapshot(msg.data.(feed.Snapshot))
		return m, m.waitForSnapshot()

	case MsgPageLoaded:
		snap := m.paginator.Snapshot()
		m.applySnapshot(snap)
		// A page discarded after a feed switch or refresh leaves the new epoch unloaded.
		if snap.InitialLoad && !snap.Fetching && snap.MoreAvailable {
			return m, m.loadNextPage()
		}
		return m, nil

	case MsgActionDone:
		res := msg.data.(actionResult)
		if res.err != nil {
			m.setStatus(fmt.Sprintf("✗ %s failed: %v", res.action, res.err), true)
		} else {
			m.setStatus(fmt.Sprintf("✓ %s", res.action), false)
		}
		m.applySnapshot(m.paginator.Snapshot())
		return m, nil

	case MsgPlaylistState:
		state := msg.data.(feed.UIState[*models.Playlist])
		m.playlist = state
		if state.Status == feed.StatusSuccess && state.Result != nil {
			items := make([]list.Item, len(state.Result.Tracks))
			for i, t := range state.Result.Tracks {
				items[i] = trackItem{track: t}
			}
			m.trackList.Title = state.Result.Title
			m.trackList.SetItems(items)
		}
		if !state.Done() {
			return m, m.waitForPlaylist()
		}
		return m, nil
	}
	return m, nil
}

// applySnapshot replaces the rendered feed, keeping the cursor where it was.
func (m *Model) applySnapshot(snap feed.Snapshot) {
	if snap.Epoch != m.snapshot.Epoch || snap.FeedType != m.snapshot.FeedType {
		m.feedList.ResetSelected()
	}
	idx := m.feedList.Index()
	m.snapshot = snap
	m.feedList.Title = snap.FeedType.Title()
	m.feedList.SetItems(eventItems(snap.Events, m.now()))
	if n := len(snap.Events); n > 0 {
		m.feedList.Select(min(idx, n-1))
	}
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func (m *Model) handleFeedKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		if m.unsubscribe != nil {
			m.unsubscribe()
		}
		return m, tea.Quit
	case key.Matches(msg, m.keys.nextFeed):
		return m, m.switchFeed(1)
	case key.Matches(msg, m.keys.prevFeed):
		return m, m.switchFeed(-1)
	case key.Matches(msg, m.keys.refresh):
		m.paginator.Reset()
		m.feedList.ResetSelected()
		m.setStatus("", false)
		return m, m.loadNextPage()
	case key.Matches(msg, m.keys.remove):
		ev, ok := m.selectedEvent()
		if !ok {
			return m, nil
		}
		if !ev.Deletable() || !ev.ID.Valid {
			m.setStatus(fmt.Sprintf("%s events cannot be deleted", ev.EventType), true)
			return m, nil
		}
		return m, m.runAction("delete", func(ctx context.Context) error {
			return m.paginator.DeleteEvent(ctx, m.session.Username, ev, m.session.Token)
		})
	case key.Matches(msg, m.keys.pin):
		if ev, ok := m.selectedEvent(); ok {
			return m, m.pin(ev)
		}
		return m, nil
	case key.Matches(msg, m.keys.recommend):
		if ev, ok := m.selectedEvent(); ok {
			return m, m.recommend(ev)
		}
		return m, nil
	case key.Matches(msg, m.keys.open):
		if ev, ok := m.selectedEvent(); ok {
			m.openMusicBrainz(ev)
		}
		return m, nil
	case key.Matches(msg, m.keys.playlist):
		return m, m.openPlaylist()
	}

	var cmd tea.Cmd
	m.feedList, cmd = m.feedList.Update(msg)
	if m.shouldLoadMore() {
		return m, tea.Batch(cmd, m.loadNextPage())
	}
	return m, cmd
}

func (m *Model) handlePlaylistKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		if m.unsubscribe != nil {
			m.unsubscribe()
		}
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = FeedView
		return m, nil
	case key.Matches(msg, m.keys.pin):
		if t, ok := m.selectedTrack(); ok {
			return m, m.pin(t)
		}
		return m, nil
	case key.Matches(msg, m.keys.recommend):
		if t, ok := m.selectedTrack(); ok {
			return m, m.recommend(t)
		}
		return m, nil
	case key.Matches(msg, m.keys.open):
		if t, ok := m.selectedTrack(); ok {
			m.openMusicBrainz(t)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

// shouldLoadMore reports whether the cursor reached the last loaded event of a feed with more pages.
func (m *Model) shouldLoadMore() bool {
	n := len(m.snapshot.Events)
	return n > 0 && m.feedList.Index() >= n-1 && m.snapshot.MoreAvailable && !m.snapshot.Fetching
}

func (m *Model) switchFeed(delta int) tea.Cmd {
	n := len(models.FeedTypes)
	i := slices.Index(models.FeedTypes, m.paginator.FeedType())
	next := models.FeedTypes[((i+delta)%n+n)%n]

	m.paginator.ChangeFeedType(next)
	m.feedList.ResetSelected()
	m.setStatus("", false)
	m.applySnapshot(m.paginator.Snapshot())
	return m.loadNextPage()
}

func (m *Model) selectedEvent() (models.Event, bool) {
	item, ok := m.feedList.SelectedItem().(eventItem)
	if !ok {
		return models.Event{}, false
	}
	return item.event, true
}

func (m *Model) selectedTrack() (models.PlaylistTrack, bool) {
	item, ok := m.trackList.SelectedItem().(trackItem)
	if !ok {
		return models.PlaylistTrack{}, false
	}
	return item.track, true
}

func (m *Model) pin(item models.TrackItem) tea.Cmd {
	return m.runAction("pin", func(ctx context.Context) error {
		return m.paginator.PinTrack(ctx, item, "", m.session.Token)
	})
}

func (m *Model) recommend(item models.TrackItem) tea.Cmd {
	return m.runAction("recommend", func(ctx context.Context) error {
		return m.paginator.RecommendToFollowers(ctx, m.session.Username, item, m.session.Token)
	})
}

func (m *Model) openMusicBrainz(item models.TrackItem) {
	url := models.MusicBrainzURL(item)
	if url == "" {
		m.setStatus("no MusicBrainz recording for this track", true)
		return
	}
	if err := m.openURL(url); err != nil {
		m.setStatus(fmt.Sprintf("failed to open browser: %v", err), true)
		return
	}
	m.setStatus("opened "+url, false)
}

func (m *Model) openPlaylist() tea.Cmd {
	if m.playlists == nil || m.session.PlaylistMBID == "" {
		m.setStatus("no playlist configured", true)
		return nil
	}

	m.view = PlaylistView
	mbid, token := m.session.PlaylistMBID, m.session.Token
	m.playlistStream = feed.Stream(m.ctx, func(ctx context.Context) (*models.Playlist, error) {
		return m.playlists.Playlist(ctx, mbid, token)
	})
	return m.waitForPlaylist()
}

func (m *Model) runAction(name string, fn func(context.Context) error) tea.Cmd {
	m.setStatus(name+"…", false)
	return func() tea.Msg {
		return actionDoneMsg(name, fn(m.ctx))
	}
}

func (m *Model) loadNextPage() tea.Cmd {
	return func() tea.Msg {
		return pageLoadedMsg(m.paginator.LoadNextPage(m.ctx, m.session.Username, m.session.Token))
	}
}

func (m *Model) waitForSnapshot() tea.Cmd {
	ch := m.snapshots
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}
		return snapshotMsg(snap)
	}
}

func (m *Model) waitForPlaylist() tea.Cmd {
	ch := m.playlistStream
	return func() tea.Msg {
		state, ok := <-ch
		if !ok {
			return nil
		}
		return playlistStateMsg(state)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case FeedView:
		return m.renderFeed()
	case PlaylistView:
		return m.renderPlaylist()
	default:
		return ""
	}
}

func (m *Model) renderTabs() string {
	tabs := make([]string, len(models.FeedTypes))
	for i, ft := range models.FeedTypes {
		if ft == m.snapshot.FeedType {
			tabs[i] = styles.activeTab.Render(ft.Title())
		} else {
			tabs[i] = styles.tab.Render(ft.Title())
		}
	}
	return strings.Join(tabs, " ")
}

func (m *Model) renderFeed() string {
	var body, footer string

	switch m.snapshot.Phase() {
	case feed.PhaseIdle, feed.PhaseLoading:
		body = "Loading…"
	case feed.PhaseFailed:
		body = styles.err.Render(fmt.Sprintf("failed to load %s: %v", m.snapshot.FeedType.Title(), m.snapshot.Err)) +
			"\n\n" + styles.help.Render("press r to retry")
	case feed.PhaseEmpty:
		body = styles.warn.Render("No events found")
	case feed.PhaseCaughtUp:
		body = m.feedList.View()
		footer = styles.ok.Render("You are all caught up!")
	case feed.PhaseReady:
		body = m.feedList.View()
		switch {
		case m.snapshot.Fetching:
			footer = styles.help.Render("Loading more…")
		case m.snapshot.Err != nil:
			footer = styles.err.Render(fmt.Sprintf("failed to load more: %v", m.snapshot.Err))
		}
	}

	helpKeys := []key.Binding{m.keys.nextFeed, m.keys.refresh, m.keys.remove, m.keys.pin, m.keys.recommend, m.keys.open}
	if m.session.PlaylistMBID != "" {
		helpKeys = append(helpKeys, m.keys.playlist)
	}
	helpKeys = append(helpKeys, m.keys.quit)

	return m.layout(m.renderTabs(), body, footer, m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderPlaylist() string {
	var body string
	switch m.playlist.Status {
	case feed.StatusLoading:
		body = "Loading playlist…"
	case feed.StatusFailure:
		body = styles.err.Render(fmt.Sprintf("failed to load playlist: %v", m.playlist.Err))
	case feed.StatusSuccess:
		body = m.trackList.View()
	}

	helpKeys := []key.Binding{m.keys.pin, m.keys.recommend, m.keys.open, m.keys.back, m.keys.quit}
	return m.layout(styles.title.Render("Playlist"), body, "", m.help.ShortHelpView(helpKeys))
}

func (m *Model) layout(header, body, footer, helpView string) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n")
	b.WriteString(body)
	if footer != "" {
		b.WriteString("\n")
		b.WriteString(footer)
	}
	if m.status != "" {
		b.WriteString("\n")
		if m.statusErr {
			b.WriteString(styles.err.Render(m.status))
		} else {
			b.WriteString(styles.ok.Render(m.status))
		}
	}
	b.WriteString("\n\n")
	b.WriteString(helpView)
	return b.String()
}
