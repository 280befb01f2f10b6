package feed

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/lbx/internal/models"
	"github.com/desertthunder/lbx/internal/services"
	"github.com/desertthunder/lbx/internal/shared"
)

// DefaultPageSize is the number of events requested per page.
const DefaultPageSize = 25

// Phase is the presentation status derived from a [Snapshot].
type Phase int

const (
	// PhaseIdle is a fresh epoch before its first load starts.
	PhaseIdle Phase = iota
	// PhaseLoading is a fetch in flight with nothing to show yet.
	PhaseLoading
	// PhaseFailed means loading failed and there is nothing to show.
	PhaseFailed
	// PhaseEmpty means the feed has no events at all.
	PhaseEmpty
	// PhaseCaughtUp means every available event has been loaded.
	PhaseCaughtUp
	// PhaseReady means events are shown and more may follow.
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseFailed:
		return "failed"
	case PhaseEmpty:
		return "empty"
	case PhaseCaughtUp:
		return "caught_up"
	case PhaseReady:
		return "ready"
	default:
		return ""
	}
}

// Snapshot is a consistent copy of a paginator's state.
type Snapshot struct {
	FeedType      models.FeedType
	Events        []models.Event
	MoreAvailable bool
	InitialLoad   bool
	Fetching      bool
	Err           error
	Epoch         uint64
}

// Phase derives the presentation status.
func (s Snapshot) Phase() Phase {
	switch {
	case len(s.Events) == 0 && s.Fetching:
		return PhaseLoading
	case len(s.Events) == 0 && s.InitialLoad:
		return PhaseIdle
	case len(s.Events) == 0 && s.Err != nil:
		return PhaseFailed
	case len(s.Events) == 0 && !s.MoreAvailable:
		return PhaseEmpty
	case !s.MoreAvailable:
		return PhaseCaughtUp
	default:
		return PhaseReady
	}
}

// Cursor returns the max_ts the next load would send, or nil for an initial load.
func (s Snapshot) Cursor() *int64 {
	if s.InitialLoad || len(s.Events) == 0 {
		return nil
	}
	ts := s.Events[len(s.Events)-1].Created
	return &ts
}

// PaginatorOpts configures a [Paginator].
type PaginatorOpts struct {
	FeedType models.FeedType
	PageSize int         // defaults to [DefaultPageSize]
	Logger   *log.Logger // defaults to a discarding logger
}

// Paginator is the stateful feed controller.
//
// It is safe for concurrent use.
type Paginator struct {
	repo     services.FeedRepository
	pageSize int
	logger   *log.Logger

	mu            sync.Mutex
	feedType      models.FeedType
	events        []models.Event
	seen          map[int64]struct{}
	moreAvailable bool
	initialLoad   bool
	fetching      bool
	epoch         uint64
	lastErr       error
	subscribers   []chan Snapshot
}

// NewPaginator creates a paginator over repo in its initial state.
func NewPaginator(repo services.FeedRepository, opts PaginatorOpts) *Paginator {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	return &Paginator{
		repo:          repo,
		pageSize:      opts.PageSize,
		logger:        shared.WithLogger(opts.Logger, "component", "paginator"),
		feedType:      opts.FeedType,
		seen:          make(map[int64]struct{}),
		moreAvailable: true,
		initialLoad:   true,
	}
}

// PageSize returns the configured page size.
func (p *Paginator) PageSize() int { return p.pageSize }

// snapshotLocked copies the state. Callers hold p.mu.
func (p *Paginator) snapshotLocked() Snapshot {
	return Snapshot{
		FeedType:      p.feedType,
		Events:        slices.Clone(p.events),
		MoreAvailable: p.moreAvailable,
		InitialLoad:   p.initialLoad,
		Fetching:      p.fetching,
		Err:           p.lastErr,
		Epoch:         p.epoch,
	}
}

// Snapshot returns a copy of the current state.
func (p *Paginator) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Events returns a copy of the accumulated events.
func (p *Paginator) Events() []models.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.events)
}

// FeedType returns the active feed type.
func (p *Paginator) FeedType() models.FeedType {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.feedType
}

// Subscribe returns a channel that receives a snapshot after every state change, and
// a function that stops delivery and closes the channel.
//
// Delivery never blocks the paginator: a slow subscriber only sees the latest snapshot.
func (p *Paginator) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	p.mu.Lock()
	p.subscribers = append(p.subscribers, ch)
	p.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			p.subscribers = slices.DeleteFunc(p.subscribers, func(c chan Snapshot) bool { return c == ch })
			close(ch)
		})
	}
	return ch, cancel
}

// publishLocked sends snap to every subscriber without blocking. Callers hold p.mu.
func (p *Paginator) publishLocked() {
	if len(p.subscribers) == 0 {
		return
	}
	snap := p.snapshotLocked()
	for _, ch := range p.subscribers {
		select {
		case ch <- snap:
			continue
		default:
		}

		// Replace the stale pending snapshot with the newer one.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

// LoadNextPage fetches and merges the next page of the active feed.
//
// It is a no-op while another fetch is in flight or once the feed is exhausted.
// On failure the error is returned and the accumulated events, seen set and
// exhaustion flag are left as they were. A result that arrives after Reset or
// ChangeFeedType is discarded and nil is returned.
func (p *Paginator) LoadNextPage(ctx context.Context, user, token string) error {
	p.mu.Lock()
	if p.fetching || !p.moreAvailable {
		p.mu.Unlock()
		return nil
	}

	p.fetching = true
	epoch := p.epoch
	query := models.FeedQuery{
		FeedType: p.feedType,
		UserName: user,
		Token:    token,
		Count:    p.pageSize,
		MaxTs:    p.snapshotCursorLocked(),
	}
	p.publishLocked()
	p.mu.Unlock()

	p.logger.Debug("loading page", "feed", query.FeedType, "epoch", epoch, "max_ts", cursorValue(query.MaxTs))

	page, err := p.repo.FetchPage(ctx, query)

	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.publishLocked()

	p.fetching = false

	if epoch != p.epoch {
		p.logger.Debug("discarding stale page", "feed", query.FeedType, "epoch", epoch, "current", p.epoch, "err", err)
		return nil
	}

	p.initialLoad = false

	if err != nil {
		p.lastErr = err
		p.logger.Warn("failed to load page", "feed", query.FeedType, "err", err)
		return fmt.Errorf("load %s page: %w", query.FeedType, err)
	}
	p.lastErr = nil

	events := page.Events()
	if len(events) == 0 {
		p.moreAvailable = false
		p.logger.Debug("feed exhausted", "feed", query.FeedType, "total", len(p.events))
		return nil
	}

	added := p.mergeLocked(events)
	p.logger.Debug("merged page", "feed", query.FeedType, "received", len(events), "added", added, "total", len(p.events))
	return nil
}

// snapshotCursorLocked returns the max_ts for the next fetch. Callers hold p.mu.
func (p *Paginator) snapshotCursorLocked() *int64 {
	if p.initialLoad || len(p.events) == 0 {
		return nil
	}
	ts := p.events[len(p.events)-1].Created
	return &ts
}

// mergeLocked appends events whose valid id has not been seen, in order, and returns
// how many were added. Events without a valid id are always appended. Callers hold p.mu.
func (p *Paginator) mergeLocked(events []models.Event) int {
	merged := slices.Clone(p.events)
	added := 0
	for _, e := range events {
		if e.ID.Valid {
			if _, ok := p.seen[e.ID.Value]; ok {
				continue
			}
			p.seen[e.ID.Value] = struct{}{}
		}
		merged = append(merged, e)
		added++
	}
	p.events = merged
	return added
}

// Reset clears the accumulated events and starts a new epoch.
//
// A fetch in flight keeps the fetching flag until it returns, but its result is discarded.
func (p *Paginator) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
	p.publishLocked()
}

func (p *Paginator) resetLocked() {
	p.events = nil
	p.seen = make(map[int64]struct{})
	p.moreAvailable = true
	p.initialLoad = true
	p.lastErr = nil
	p.epoch++
}

// ChangeFeedType switches the active feed and resets.
func (p *Paginator) ChangeFeedType(feedType models.FeedType) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.feedType = feedType
	p.resetLocked()
	p.publishLocked()
}

// RemoveEvent drops the event with id from the accumulated events and the seen set,
// so a later page carrying the same id is admitted again. It reports whether an event was removed.
func (p *Paginator) RemoveEvent(id int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.seen, id)

	idx := slices.IndexFunc(p.events, func(e models.Event) bool { return e.ID.Valid && e.ID.Value == id })
	if idx < 0 {
		return false
	}
	p.events = slices.Delete(slices.Clone(p.events), idx, idx+1)
	p.publishLocked()
	return true
}

// DeleteEvent removes event remotely and, on success, from the accumulated events.
func (p *Paginator) DeleteEvent(ctx context.Context, user string, event models.Event, token string) error {
	if !event.ID.Valid {
		return fmt.Errorf("%w: event has no id", shared.ErrInvalidArgument)
	}
	if !event.Deletable() {
		return fmt.Errorf("%w: %s events cannot be deleted", shared.ErrInvalidArgument, event.EventType)
	}

	if err := p.repo.DeleteEvent(ctx, user, event.ID.Value, event.EventType, token); err != nil {
		p.logger.Warn("failed to delete event", "id", event.ID, "err", err)
		return err
	}

	p.RemoveEvent(event.ID.Value)
	p.logger.Info("deleted event", "id", event.ID, "type", event.EventType)
	return nil
}

// PinTrack pins item with an optional blurb.
func (p *Paginator) PinTrack(ctx context.Context, item models.TrackItem, blurb, token string) error {
	if item.RecordingMSID() == "" && item.RecordingMBID() == "" {
		return fmt.Errorf("%w: track has no recording id", shared.ErrValidation)
	}
	return p.repo.PinTrack(ctx, item.RecordingMSID(), item.RecordingMBID(), blurb, token)
}

// RecommendToFollowers recommends item to the user's followers.
func (p *Paginator) RecommendToFollowers(ctx context.Context, user string, item models.TrackItem, token string) error {
	return p.repo.RecommendToFollowers(ctx, user, item, token)
}

// RecommendToUsersPersonally recommends item to users.
func (p *Paginator) RecommendToUsersPersonally(ctx context.Context, user string, item models.TrackItem, users []string, blurb, token string) error {
	return p.repo.RecommendToUsersPersonally(ctx, user, item, users, blurb, token)
}

// WriteReview posts a review of item.
func (p *Paginator) WriteReview(ctx context.Context, user string, item models.TrackItem, token string, review models.ReviewRequest) error {
	return p.repo.WriteReview(ctx, user, item, token, review)
}

func cursorValue(ts *int64) any {
	if ts == nil {
		return "none"
	}
	return *ts
}
