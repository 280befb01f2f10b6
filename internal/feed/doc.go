// Package feed implements the paginating view model over a [services.FeedRepository].
//
// # Paginator
//
// [Paginator] accumulates events page by page for the active [models.FeedType]:
//
//	LoadNextPage -> cursor from last event -> FetchPage -> dedup merge -> publish
//
// The first load of an epoch sends no cursor. Later loads send max_ts equal to the
// creation time of the last accumulated event. An empty page marks the feed
// exhausted until [Paginator.Reset] or [Paginator.ChangeFeedType].
//
// Events whose id is valid are deduplicated against a seen set; events without a
// usable id are always kept.
//
// # Concurrency
//
// At most one fetch is in flight per paginator: a call made while fetching, or after
// exhaustion, returns immediately. Every fetch is tagged with the epoch active when it
// started. Reset and ChangeFeedType advance the epoch, and a result that arrives for an
// older epoch is dropped without touching state.
//
// All state lives behind one mutex; the network call runs outside it. Readers take a
// [Snapshot], which is a copy and never changes underneath them. [Paginator.Subscribe]
// delivers a fresh snapshot after every state change without blocking the paginator.
//
// # UIState
//
// [UIState] and [Stream] model one-shot loads (playlist details, cover art): a stream
// yields Loading, then Success or Failure, then closes.
package feed
