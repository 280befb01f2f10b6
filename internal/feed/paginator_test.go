package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/lbx/internal/models"
	"github.com/desertthunder/lbx/internal/shared"
	tu "github.com/desertthunder/lbx/internal/testing"
)

func ids(events []models.Event) []int64 {
	out := make([]int64, 0, len(events))
	for _, e := range events {
		if e.ID.Valid {
			out = append(out, e.ID.Value)
		} else {
			out = append(out, -1)
		}
	}
	return out
}

func page(events ...models.Event) tu.PageResult {
	return tu.PageResult{Page: models.NewFeedPage("rob", events...)}
}

func failure(err error) tu.PageResult {
	return tu.PageResult{Err: err}
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPaginator(t *testing.T) {
	ctx := context.Background()

	t.Run("Initial State", func(t *testing.T) {
		p := NewPaginator(tu.NewFakeFeedRepository(), PaginatorOpts{})
		snap := p.Snapshot()

		if !snap.MoreAvailable || !snap.InitialLoad || snap.Fetching {
			t.Errorf("unexpected initial flags %+v", snap)
		}
		if len(snap.Events) != 0 {
			t.Errorf("expected no events, got %d", len(snap.Events))
		}
		if snap.Phase() != PhaseIdle {
			t.Errorf("expected idle phase, got %s", snap.Phase())
		}
		if p.PageSize() != DefaultPageSize {
			t.Errorf("expected default page size, got %d", p.PageSize())
		}
	})

	t.Run("Cursor From Last Event", func(t *testing.T) {
		repo := tu.NewFakeFeedRepository(
			tu.PageResult{Page: tu.DescendingPage(1000, 25)},
			tu.PageResult{Page: tu.DescendingPage(975, 25)},
		)
		p := NewPaginator(repo, PaginatorOpts{})

		if err := p.LoadNextPage(ctx, "rob", "secret"); err != nil {
			t.Fatalf("first load failed: %v", err)
		}
		if err := p.LoadNextPage(ctx, "rob", "secret"); err != nil {
			t.Fatalf("second load failed: %v", err)
		}

		first, second := repo.Query(0), repo.Query(1)
		if first.MaxTs != nil {
			t.Errorf("expected no cursor on first load, got %d", *first.MaxTs)
		}
		if first.Count != 25 || first.MinTs != nil {
			t.Errorf("unexpected first query %+v", first)
		}
		if first.UserName != "rob" || first.Token != "secret" || first.FeedType != models.FeedEvents {
			t.Errorf("unexpected first query identity %+v", first)
		}
		if second.MaxTs == nil || *second.MaxTs != 976 {
			t.Fatalf("expected max_ts=976 on second load, got %v", second.MaxTs)
		}
		if second.MinTs != nil {
			t.Error("expected no min_ts")
		}
		if got := len(p.Events()); got != 50 {
			t.Errorf("expected 50 events, got %d", got)
		}
	})

	t.Run("Accumulates In Arrival Order", func(t *testing.T) {
		repo := tu.NewFakeFeedRepository(
			page(tu.ListenEvent(9, 90), tu.ListenEvent(8, 80)),
			page(tu.ListenEvent(7, 70)),
			page(tu.ListenEvent(6, 60), tu.ListenEvent(5, 50), tu.ListenEvent(4, 40)),
		)
		p := NewPaginator(repo, PaginatorOpts{})

		for range 3 {
			if err := p.LoadNextPage(ctx, "rob", "secret"); err != nil {
				t.Fatalf("load failed: %v", err)
			}
		}

		if got := ids(p.Events()); !equalIDs(got, []int64{9, 8, 7, 6, 5, 4}) {
			t.Errorf("unexpected order %v", got)
		}
	})

	t.Run("Dedup Across Pages", func(t *testing.T) {
		repo := tu.NewFakeFeedRepository(
			page(tu.ListenEvent(3, 30), tu.ListenEvent(2, 20), tu.ListenEvent(1, 10)),
			page(tu.ListenEvent(2, 20), tu.ListenEvent(0, 5)),
		)
		p := NewPaginator(repo, PaginatorOpts{})

		p.LoadNextPage(ctx, "rob", "secret")
		p.LoadNextPage(ctx, "rob", "secret")

		if got := ids(p.Events()); !equalIDs(got, []int64{3, 2, 1, 0}) {
			t.Errorf("expected repeated id once at first position, got %v", got)
		}
	})

	t.Run("Dedup Within Page", func(t *testing.T) {
		repo := tu.NewFakeFeedRepository(
			page(tu.ListenEvent(5, 50), tu.ListenEvent(5, 49), tu.ListenEvent(4, 40)),
		)
		p := NewPaginator(repo, PaginatorOpts{})
		p.LoadNextPage(ctx, "rob", "secret")

		events := p.Events()
		if got := ids(events); !equalIDs(got, []int64{5, 4}) {
			t.Errorf("unexpected ids %v", got)
		}
		if events[0].Created != 50 {
			t.Errorf("expected first occurrence to win, got created=%d", events[0].Created)
		}
	})

	t.Run("Events Without IDs Are Kept", func(t *testing.T) {
		repo := tu.NewFakeFeedRepository(
			page(tu.AnonymousEvent(30), tu.AnonymousEvent(30), tu.ListenEvent(1, 20)),
			page(tu.AnonymousEvent(30)),
		)
		p := NewPaginator(repo, PaginatorOpts{})
		p.LoadNextPage(ctx, "rob", "secret")
		p.LoadNextPage(ctx, "rob", "secret")

		if got := ids(p.Events()); !equalIDs(got, []int64{-1, -1, 1, -1}) {
			t.Errorf("expected anonymous events to be kept, got %v", got)
		}
	})

	t.Run("Exhaustion", func(t *testing.T) {
		repo := tu.NewFakeFeedRepository(
			page(tu.ListenEvent(2, 20), tu.ListenEvent(1, 10)),
			page(),
		)
		p := NewPaginator(repo, PaginatorOpts{})

		p.LoadNextPage(ctx, "rob", "secret")
		p.LoadNextPage(ctx, "rob", "secret")

		snap := p.Snapshot()
		if snap.MoreAvailable {
			t.Fatal("expected feed to be exhausted after an empty page")
		}
		if snap.Phase() != PhaseCaughtUp {
			t.Errorf("expected caught up phase, got %s", snap.Phase())
		}

		for range 3 {
			if err := p.LoadNextPage(ctx, "rob", "secret"); err != nil {
				t.Fatalf("expected no-op, got %v", err)
			}
		}
		if repo.Calls() != 2 {
			t.Errorf("expected no fetches after exhaustion, got %d calls", repo.Calls())
		}
		if p.Snapshot().MoreAvailable {
			t.Error("expected exhaustion to persist")
		}

		p.Reset()
		if !p.Snapshot().MoreAvailable {
			t.Error("expected reset to clear exhaustion")
		}
		p.LoadNextPage(ctx, "rob", "secret")
		if repo.Calls() != 3 {
			t.Errorf("expected a fetch after reset, got %d calls", repo.Calls())
		}
	})

	t.Run("Empty Feed", func(t *testing.T) {
		p := NewPaginator(tu.NewFakeFeedRepository(page()), PaginatorOpts{})
		p.LoadNextPage(ctx, "rob", "secret")

		if got := p.Snapshot().Phase(); got != PhaseEmpty {
			t.Errorf("expected empty phase, got %s", got)
		}
	})

	t.Run("Reset", func(t *testing.T) {
		repo := tu.NewFakeFeedRepository(
			page(tu.ListenEvent(2, 20), tu.ListenEvent(1, 10)),
			page(tu.ListenEvent(2, 20)),
		)
		p := NewPaginator(repo, PaginatorOpts{})
		p.LoadNextPage(ctx, "rob", "secret")

		before := p.Snapshot().Epoch
		p.Reset()
		snap := p.Snapshot()

		if len(snap.Events) != 0 || !snap.MoreAvailable || !snap.InitialLoad || snap.Err != nil {
			t.Errorf("unexpected state after reset %+v", snap)
		}
		if snap.Epoch != before+1 {
			t.Errorf("expected epoch to advance, got %d -> %d", before, snap.Epoch)
		}

		p.LoadNextPage(ctx, "rob", "secret")
		if repo.Query(1).MaxTs != nil {
			t.Error("expected no cursor after reset")
		}
		if got := ids(p.Events()); !equalIDs(got, []int64{2}) {
			t.Errorf("expected seen set to be cleared, got %v", got)
		}
	})

	t.Run("Failure Leaves State Unchanged", func(t *testing.T) {
		netErr := fmt.Errorf("%w: connection reset", shared.ErrNetwork)
		repo := tu.NewFakeFeedRepository(
			page(tu.ListenEvent(2, 20), tu.ListenEvent(1, 10)),
			failure(netErr),
			page(tu.ListenEvent(0, 5)),
		)
		p := NewPaginator(repo, PaginatorOpts{})
		p.LoadNextPage(ctx, "rob", "secret")

		err := p.LoadNextPage(ctx, "rob", "secret")
		if !errors.Is(err, shared.ErrNetwork) {
			t.Fatalf("expected network error, got %v", err)
		}

		snap := p.Snapshot()
		if got := ids(snap.Events); !equalIDs(got, []int64{2, 1}) {
			t.Errorf("expected events untouched, got %v", got)
		}
		if !snap.MoreAvailable || snap.InitialLoad || snap.Fetching {
			t.Errorf("unexpected flags after failure %+v", snap)
		}
		if snap.Phase() != PhaseReady {
			t.Errorf("expected loaded events to stay visible, got %s", snap.Phase())
		}

		if err := p.LoadNextPage(ctx, "rob", "secret"); err != nil {
			t.Fatalf("retry failed: %v", err)
		}
		if q := repo.Query(2); q.MaxTs == nil || *q.MaxTs != 10 {
			t.Errorf("expected retry with the same cursor, got %v", q.MaxTs)
		}
		if snap := p.Snapshot(); snap.Err != nil || len(snap.Events) != 3 {
			t.Errorf("unexpected state after retry %+v", snap)
		}
	})

	t.Run("Initial Failure", func(t *testing.T) {
		httpErr := &shared.HTTPError{Status: 500}
		p := NewPaginator(tu.NewFakeFeedRepository(failure(httpErr)), PaginatorOpts{})

		err := p.LoadNextPage(ctx, "rob", "secret")
		var got *shared.HTTPError
		if !errors.As(err, &got) || got.Status != 500 {
			t.Fatalf("expected HTTPError 500, got %v", err)
		}

		snap := p.Snapshot()
		if snap.InitialLoad {
			t.Error("expected the first attempt to end the initial load")
		}
		if snap.Phase() != PhaseFailed {
			t.Errorf("expected failed phase, got %s", snap.Phase())
		}
	})

	t.Run("Concurrent Loads Issue One Fetch", func(t *testing.T) {
		repo := tu.NewFakeFeedRepository(tu.PageResult{Page: tu.DescendingPage(1000, 25)})
		repo.Hold()
		p := NewPaginator(repo, PaginatorOpts{})

		done := make(chan error, 1)
		go func() { done <- p.LoadNextPage(ctx, "rob", "secret") }()
		<-repo.Started

		if got := p.Snapshot().Phase(); got != PhaseLoading {
			t.Errorf("expected loading phase while fetching, got %s", got)
		}

		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := p.LoadNextPage(ctx, "rob", "secret"); err != nil {
					t.Errorf("expected no-op, got %v", err)
				}
			}()
		}
		wg.Wait()

		if repo.Calls() != 1 {
			t.Errorf("expected exactly one fetch, got %d", repo.Calls())
		}

		repo.Release()
		if err := <-done; err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if got := len(p.Events()); got != 25 {
			t.Errorf("expected 25 events, got %d", got)
		}
	})

	t.Run("Stale Result After Reset Is Discarded", func(t *testing.T) {
		repo := tu.NewFakeFeedRepository(
			page(tu.ListenEvent(2, 20), tu.ListenEvent(1, 10)),
			page(tu.ListenEvent(7, 70)),
		)
		repo.Hold()
		p := NewPaginator(repo, PaginatorOpts{})

		done := make(chan error, 1)
		go func() { done <- p.LoadNextPage(ctx, "rob", "secret") }()
		<-repo.Started

		p.Reset()

		if err := p.LoadNextPage(ctx, "rob", "secret"); err != nil {
			t.Fatalf("expected no-op while stale fetch is in flight, got %v", err)
		}
		if repo.Calls() != 1 {
			t.Errorf("expected the guard to hold across reset, got %d calls", repo.Calls())
		}

		repo.Release()
		if err := <-done; err != nil {
			t.Fatalf("expected stale load to return nil, got %v", err)
		}

		snap := p.Snapshot()
		if len(snap.Events) != 0 {
			t.Errorf("expected stale events to be dropped, got %v", ids(snap.Events))
		}
		if !snap.InitialLoad || !snap.MoreAvailable || snap.Fetching {
			t.Errorf("expected fresh epoch state, got %+v", snap)
		}

		go func() { done <- p.LoadNextPage(ctx, "rob", "secret") }()
		<-repo.Started
		repo.Release()
		if err := <-done; err != nil {
			t.Fatalf("load failed: %v", err)
		}

		if repo.Query(1).MaxTs != nil {
			t.Error("expected the new epoch to load without a cursor")
		}
		if got := ids(p.Events()); !equalIDs(got, []int64{7}) {
			t.Errorf("unexpected events %v", got)
		}
	})

	t.Run("Stale Failure Is Swallowed", func(t *testing.T) {
		repo := tu.NewFakeFeedRepository(failure(errors.New("boom")))
		repo.Hold()
		p := NewPaginator(repo, PaginatorOpts{})

		done := make(chan error, 1)
		go func() { done <- p.LoadNextPage(ctx, "rob", "secret") }()
		<-repo.Started
		p.ChangeFeedType(models.FeedSimilar)
		repo.Release()

		if err := <-done; err != nil {
			t.Errorf("expected stale failure to be discarded, got %v", err)
		}
		if snap := p.Snapshot(); snap.Err != nil || !snap.InitialLoad {
			t.Errorf("expected untouched new epoch, got %+v", snap)
		}
	})

	t.Run("Stale Empty Page Does Not Exhaust", func(t *testing.T) {
		repo := tu.NewFakeFeedRepository(page())
		repo.Hold()
		p := NewPaginator(repo, PaginatorOpts{})

		done := make(chan error, 1)
		go func() { done <- p.LoadNextPage(ctx, "rob", "secret") }()
		<-repo.Started
		p.Reset()
		repo.Release()
		<-done

		if !p.Snapshot().MoreAvailable {
			t.Error("expected stale empty page to leave the new epoch open")
		}
	})

	t.Run("ChangeFeedType", func(t *testing.T) {
		repo := tu.NewFakeFeedRepository(
			page(tu.ListenEvent(1, 10)),
			page(tu.ListenEvent(1, 10)),
		)
		p := NewPaginator(repo, PaginatorOpts{FeedType: models.FeedFollowing})
		p.LoadNextPage(ctx, "rob", "secret")

		p.ChangeFeedType(models.FeedSimilar)
		snap := p.Snapshot()
		if snap.FeedType != models.FeedSimilar || len(snap.Events) != 0 || !snap.InitialLoad || !snap.MoreAvailable {
			t.Errorf("unexpected state after change %+v", snap)
		}

		p.LoadNextPage(ctx, "rob", "secret")
		if repo.Query(0).FeedType != models.FeedFollowing || repo.Query(1).FeedType != models.FeedSimilar {
			t.Errorf("unexpected feed types %v, %v", repo.Query(0).FeedType, repo.Query(1).FeedType)
		}
		if got := ids(p.Events()); !equalIDs(got, []int64{1}) {
			t.Errorf("expected id 1 to be unseen in the new feed, got %v", got)
		}
	})

	t.Run("RemoveEvent Readmits ID", func(t *testing.T) {
		repo := tu.NewFakeFeedRepository(
			page(tu.ListenEvent(43, 30), tu.ListenEvent(42, 20), tu.ListenEvent(41, 10)),
			page(tu.ListenEvent(42, 9), tu.ListenEvent(40, 5)),
		)
		p := NewPaginator(repo, PaginatorOpts{})
		p.LoadNextPage(ctx, "rob", "secret")

		if !p.RemoveEvent(42) {
			t.Fatal("expected event 42 to be removed")
		}
		if got := ids(p.Events()); !equalIDs(got, []int64{43, 41}) {
			t.Errorf("unexpected events after removal %v", got)
		}

		p.LoadNextPage(ctx, "rob", "secret")
		if got := ids(p.Events()); !equalIDs(got, []int64{43, 41, 42, 40}) {
			t.Errorf("expected 42 to be readmitted, got %v", got)
		}

		if p.RemoveEvent(999) {
			t.Error("expected removing an unknown id to be a no-op")
		}
	})

	t.Run("RemoveEvent While Fetching", func(t *testing.T) {
		repo := tu.NewFakeFeedRepository(
			page(tu.ListenEvent(2, 20), tu.ListenEvent(1, 10)),
			page(tu.ListenEvent(0, 5)),
		)
		p := NewPaginator(repo, PaginatorOpts{})
		p.LoadNextPage(ctx, "rob", "secret")

		repo.Hold()
		done := make(chan error, 1)
		go func() { done <- p.LoadNextPage(ctx, "rob", "secret") }()
		<-repo.Started

		if !p.RemoveEvent(2) {
			t.Error("expected removal during fetch")
		}
		repo.Release()
		<-done

		if got := ids(p.Events()); !equalIDs(got, []int64{1, 0}) {
			t.Errorf("unexpected events %v", got)
		}
	})

	t.Run("DeleteEvent", func(t *testing.T) {
		rec := tu.ListenEvent(42, 20)
		rec.EventType = models.EventRecommendation
		listen := tu.ListenEvent(41, 10)

		repo := tu.NewFakeFeedRepository(page(rec, listen))
		p := NewPaginator(repo, PaginatorOpts{})
		p.LoadNextPage(ctx, "rob", "secret")

		if err := p.DeleteEvent(ctx, "rob", listen, "secret"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected listen deletion to be rejected, got %v", err)
		}
		if err := p.DeleteEvent(ctx, "rob", tu.AnonymousEvent(5), "secret"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected id-less deletion to be rejected, got %v", err)
		}

		repo.DeleteErr = &shared.HTTPError{Status: 403}
		if err := p.DeleteEvent(ctx, "rob", rec, "secret"); err == nil {
			t.Error("expected delete failure to surface")
		}
		if len(p.Events()) != 2 {
			t.Error("expected event to stay after a failed delete")
		}

		repo.DeleteErr = nil
		if err := p.DeleteEvent(ctx, "rob", rec, "secret"); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if got := ids(p.Events()); !equalIDs(got, []int64{41}) {
			t.Errorf("expected deleted event to be removed, got %v", got)
		}
		if len(repo.Deleted) != 1 || repo.Deleted[0] != 42 {
			t.Errorf("unexpected remote deletes %v", repo.Deleted)
		}
	})

	t.Run("Track Actions", func(t *testing.T) {
		repo := tu.NewFakeFeedRepository()
		p := NewPaginator(repo, PaginatorOpts{})
		item := tu.ListenEvent(1, 10)

		if err := p.PinTrack(ctx, item, "", "secret"); err != nil {
			t.Errorf("pin failed: %v", err)
		}
		if err := p.PinTrack(ctx, models.Event{}, "", "secret"); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected pin without ids to be rejected, got %v", err)
		}
		if err := p.RecommendToFollowers(ctx, "rob", item, "secret"); err != nil {
			t.Errorf("recommend failed: %v", err)
		}
		if err := p.RecommendToUsersPersonally(ctx, "rob", item, []string{"alice"}, "hi", "secret"); err != nil {
			t.Errorf("personal recommend failed: %v", err)
		}
		if err := p.WriteReview(ctx, "rob", item, "secret", models.ReviewRequest{}); err != nil {
			t.Errorf("review failed: %v", err)
		}

		if len(repo.Pinned) != 1 || len(repo.Writes) != 3 {
			t.Errorf("unexpected delegated calls pinned=%v writes=%v", repo.Pinned, repo.Writes)
		}
	})

	t.Run("Subscribe", func(t *testing.T) {
		repo := tu.NewFakeFeedRepository(page(tu.ListenEvent(1, 10)))
		p := NewPaginator(repo, PaginatorOpts{})

		updates, cancel := p.Subscribe()
		defer cancel()

		p.LoadNextPage(ctx, "rob", "secret")

		select {
		case snap := <-updates:
			if len(snap.Events) != 1 || snap.Fetching {
				t.Errorf("expected latest snapshot after load, got %+v", snap)
			}
		case <-time.After(time.Second):
			t.Fatal("expected a snapshot notification")
		}

		cancel()
		if _, ok := <-updates; ok {
			t.Error("expected channel to be closed after cancel")
		}
		cancel()
		p.Reset()
	})
}

func TestStream(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		var seen []Status
		final := Collect(Stream(ctx, func(context.Context) (string, error) {
			return "playlist", nil
		}), func(s UIState[string]) { seen = append(seen, s.Status) })

		if len(seen) != 2 || seen[0] != StatusLoading || seen[1] != StatusSuccess {
			t.Errorf("unexpected states %v", seen)
		}
		if final.Result != "playlist" || !final.Done() {
			t.Errorf("unexpected final state %+v", final)
		}
	})

	t.Run("Failure", func(t *testing.T) {
		boom := errors.New("boom")
		final := Collect(Stream(ctx, func(context.Context) (int, error) {
			return 0, boom
		}), nil)

		if final.Status != StatusFailure || !errors.Is(final.Err, boom) {
			t.Errorf("unexpected final state %+v", final)
		}
	})
}
