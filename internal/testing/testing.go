// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/lbx/internal/models"
)

// PageResult is one scripted response of [FakeFeedRepository].
type PageResult struct {
	Page *models.FeedPage
	Err  error
}

// FakeFeedRepository is a scripted test double for services.FeedRepository.
//
// FetchPage pops Pages in order and returns an empty page once they run out.
// When Gate is set, each FetchPage signals Started and then blocks until Gate
// receives a value, which lets tests hold a fetch in flight.
type FakeFeedRepository struct {
	mu      sync.Mutex
	Pages   []PageResult
	Queries []models.FeedQuery

	Gate    chan struct{}
	Started chan struct{}

	DeleteErr error
	WriteErr  error
	Deleted   []int64
	Pinned    []string
	Writes    []string
	CoverArt  map[string][]byte
}

// NewFakeFeedRepository returns a fake that answers with results in order.
func NewFakeFeedRepository(results ...PageResult) *FakeFeedRepository {
	return &FakeFeedRepository{Pages: results, CoverArt: map[string][]byte{}}
}

// Hold makes FetchPage block until Release is called once per fetch.
func (f *FakeFeedRepository) Hold() {
	f.Gate = make(chan struct{})
	f.Started = make(chan struct{}, 16)
}

// Release lets one held FetchPage return.
func (f *FakeFeedRepository) Release() {
	f.Gate <- struct{}{}
}

// Calls returns the number of FetchPage calls observed so far.
func (f *FakeFeedRepository) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Queries)
}

// Query returns the i-th recorded query.
func (f *FakeFeedRepository) Query(i int) models.FeedQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Queries[i]
}

func (f *FakeFeedRepository) FetchPage(ctx context.Context, q models.FeedQuery) (*models.FeedPage, error) {
	f.mu.Lock()
	f.Queries = append(f.Queries, q)
	var next PageResult
	if len(f.Pages) > 0 {
		next, f.Pages = f.Pages[0], f.Pages[1:]
	} else {
		next = PageResult{Page: models.NewFeedPage(q.UserName)}
	}
	gate, started := f.Gate, f.Started
	f.mu.Unlock()

	if gate != nil {
		started <- struct{}{}
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return next.Page, next.Err
}

func (f *FakeFeedRepository) FetchCoverArt(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.CoverArt[url]
	if !ok {
		return nil, errors.New("cover art not found")
	}
	return data, nil
}

func (f *FakeFeedRepository) PinTrack(ctx context.Context, msid, mbid, blurb, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Pinned = append(f.Pinned, msid)
	return f.WriteErr
}

func (f *FakeFeedRepository) DeleteEvent(ctx context.Context, user string, id int64, eventType models.EventType, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.Deleted = append(f.Deleted, id)
	return nil
}

func (f *FakeFeedRepository) RecommendToFollowers(ctx context.Context, user string, item models.TrackItem, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Writes = append(f.Writes, "recommend:"+item.RecordingMSID())
	return f.WriteErr
}

func (f *FakeFeedRepository) RecommendToUsersPersonally(ctx context.Context, user string, item models.TrackItem, users []string, blurb, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Writes = append(f.Writes, "personal:"+item.RecordingMSID())
	return f.WriteErr
}

func (f *FakeFeedRepository) WriteReview(ctx context.Context, user string, item models.TrackItem, token string, review models.ReviewRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Writes = append(f.Writes, "review:"+item.RecordingMSID())
	return f.WriteErr
}

// ListenEvent builds a listen event with a valid id.
func ListenEvent(id, created int64) models.Event {
	return models.Event{
		ID:        models.NewEventID(id),
		EventType: models.EventListen,
		UserName:  "rob",
		Created:   created,
		Metadata: models.EventMetadata{TrackMetadata: &models.TrackMetadata{
			TrackName:      "Roads",
			ArtistName:     "Portishead",
			AdditionalInfo: &models.AdditionalInfo{RecordingMSID: "msid"},
		}},
	}
}

// CoverArtEvent builds a listen event whose release has cover art caaID.
func CoverArtEvent(id, created, caaID int64) models.Event {
	e := ListenEvent(id, created)
	e.Metadata.TrackMetadata.MBIDMapping = &models.MBIDMapping{
		RecordingMBID:  "mbid",
		CAAID:          &caaID,
		CAAReleaseMBID: "release",
	}
	return e
}

// AnonymousEvent builds an event without an id.
func AnonymousEvent(created int64) models.Event {
	return models.Event{EventType: models.EventFollow, UserName: "rob", Created: created,
		Metadata: models.EventMetadata{User0: "rob", User1: "alice"}}
}

// DescendingPage builds a page of listen events with ids and timestamps counting down from newest.
func DescendingPage(newest int64, n int) *models.FeedPage {
	events := make([]models.Event, 0, n)
	for i := range int64(n) {
		events = append(events, ListenEvent(newest-i, newest-i))
	}
	return models.NewFeedPage("rob", events...)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
