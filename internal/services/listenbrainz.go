package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/desertthunder/lbx/internal/models"
	"github.com/desertthunder/lbx/internal/shared"
)

const (
	DefaultAPIURL = "https://api.listenbrainz.org/1"

	// authTokenType is the scheme ListenBrainz expects in the Authorization header.
	authTokenType = "Token"

	pinDuration     = 7 * 24 * time.Hour
	minReviewLength = 25
	reviewLanguage  = "en"

	// maxErrorBody caps how much of a failed response is kept on [shared.HTTPError].
	maxErrorBody = 512
)

// ListenBrainzService implements [FeedRepository] and [PlaylistRepository] against the ListenBrainz JSON API.
type ListenBrainzService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
	now        func() time.Time
}

// NewListenBrainzService creates a client for the API rooted at baseURL.
func NewListenBrainzService(baseURL string, client *http.Client) *ListenBrainzService {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &ListenBrainzService{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: client,
		logger:     log.New(io.Discard),
		now:        time.Now,
	}
}

// NewListenBrainzServiceFromConfig builds a service with the configured timeout and request rate.
func NewListenBrainzServiceFromConfig(cfg shared.ListenBrainzConfig, logger *log.Logger) *ListenBrainzService {
	svc := NewListenBrainzService(cfg.APIURL, &http.Client{Timeout: cfg.Timeout()})
	svc.SetRateLimit(cfg.RequestsPerSecond)
	if logger != nil {
		svc.SetLogger(logger)
	}
	return svc
}

// SetRateLimit paces outbound requests to rps per second. Zero or less disables pacing.
func (s *ListenBrainzService) SetRateLimit(rps float64) {
	if rps <= 0 {
		s.limiter = nil
		return
	}
	s.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
}

// SetLogger replaces the service's logger.
func (s *ListenBrainzService) SetLogger(l *log.Logger) {
	s.logger = shared.WithLogger(l, "service", "listenbrainz")
}

// feedPath returns the endpoint for a feed type.
func feedPath(feedType models.FeedType, user string) (string, error) {
	base := "/user/" + url.PathEscape(user) + "/feed/events"
	switch feedType {
	case models.FeedEvents:
		return base, nil
	case models.FeedFollowing:
		return base + "/listens/following", nil
	case models.FeedSimilar:
		return base + "/listens/similar", nil
	default:
		return "", fmt.Errorf("%w: unknown feed type %v", shared.ErrInvalidArgument, feedType)
	}
}

func timelinePath(user, kind string) string {
	return "/user/" + url.PathEscape(user) + "/timeline-event/create/" + kind
}

func (s *ListenBrainzService) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrNetwork, err)
	}
	return nil
}

// doRequest performs a request against the API.
//
// body, when non-nil, is sent as JSON. result, when non-nil, receives the decoded response.
func (s *ListenBrainzService) doRequest(ctx context.Context, method, endpoint string, query url.Values, token string, body, result any) error {
	if err := s.wait(ctx); err != nil {
		return err
	}

	apiURL := s.baseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if token != "" {
		(&oauth2.Token{AccessToken: token, TokenType: authTokenType}).SetAuthHeader(req)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	s.logger.Debug("request", "method", method, "endpoint", endpoint, "query", query.Encode())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		s.logger.Debug("request failed", "method", method, "endpoint", endpoint, "status", resp.StatusCode)
		return &shared.HTTPError{Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	if result == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", shared.ErrNetwork, err)
		}
		return fmt.Errorf("%w: %w", shared.ErrDecode, err)
	}
	return nil
}

// FetchPage reads one page of the selected feed.
func (s *ListenBrainzService) FetchPage(ctx context.Context, q models.FeedQuery) (*models.FeedPage, error) {
	endpoint, err := feedPath(q.FeedType, q.UserName)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("count", strconv.Itoa(q.Count))
	if q.MaxTs != nil {
		query.Set("max_ts", strconv.FormatInt(*q.MaxTs, 10))
	}
	if q.MinTs != nil {
		query.Set("min_ts", strconv.FormatInt(*q.MinTs, 10))
	}

	var page models.FeedPage
	if err := s.doRequest(ctx, http.MethodGet, endpoint, query, q.Token, nil, &page); err != nil {
		return nil, fmt.Errorf("fetch %s feed: %w", q.FeedType, err)
	}

	for _, e := range page.Payload.Events {
		if e.ID.Malformed() {
			s.logger.Warn("malformed event id", "feed", q.FeedType, "event_type", e.EventType, "raw", e.ID.Raw)
		}
	}
	return &page, nil
}

// FetchCoverArt downloads the image at rawURL. No auth header is sent.
func (s *ListenBrainzService) FetchCoverArt(ctx context.Context, rawURL string) ([]byte, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("%w: empty cover art URL", shared.ErrInvalidArgument)
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &shared.HTTPError{Status: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrNetwork, err)
	}
	return data, nil
}

type pinRequest struct {
	RecordingMSID string  `json:"recording_msid"`
	RecordingMBID *string `json:"recording_mbid"`
	BlurbContent  string  `json:"blurb_content"`
	PinnedUntil   int64   `json:"pinned_until"`
}

// PinTrack pins a recording for seven days.
func (s *ListenBrainzService) PinTrack(ctx context.Context, msid, mbid, blurb, token string) error {
	body := pinRequest{
		RecordingMSID: msid,
		RecordingMBID: optional(mbid),
		BlurbContent:  blurb,
		PinnedUntil:   s.now().Add(pinDuration).Unix(),
	}
	if err := s.doRequest(ctx, http.MethodPost, "/pin", nil, token, body, nil); err != nil {
		return fmt.Errorf("pin track: %w", err)
	}
	return nil
}

type deleteEventRequest struct {
	EventType models.EventType `json:"event_type"`
	ID        int64            `json:"id"`
}

// DeleteEvent removes one of the user's events.
func (s *ListenBrainzService) DeleteEvent(ctx context.Context, user string, id int64, eventType models.EventType, token string) error {
	endpoint := "/user/" + url.PathEscape(user) + "/feed/events/delete"
	body := deleteEventRequest{EventType: eventType, ID: id}
	if err := s.doRequest(ctx, http.MethodPost, endpoint, nil, token, body, nil); err != nil {
		return fmt.Errorf("delete event %d: %w", id, err)
	}
	return nil
}

type recommendationMetadata struct {
	RecordingMSID *string  `json:"recording_msid"`
	RecordingMBID *string  `json:"recording_mbid"`
	Users         []string `json:"users,omitempty"`
	BlurbContent  *string  `json:"blurb_content,omitempty"`
}

type metadataRequest[T any] struct {
	Metadata T `json:"metadata"`
}

// RecommendToFollowers posts item to the user's followers.
func (s *ListenBrainzService) RecommendToFollowers(ctx context.Context, user string, item models.TrackItem, token string) error {
	body := metadataRequest[recommendationMetadata]{Metadata: recommendationMetadata{
		RecordingMSID: optional(item.RecordingMSID()),
		RecordingMBID: optional(item.RecordingMBID()),
	}}
	if err := s.doRequest(ctx, http.MethodPost, timelinePath(user, "recording"), nil, token, body, nil); err != nil {
		return fmt.Errorf("recommend to followers: %w", err)
	}
	return nil
}

// RecommendToUsersPersonally sends item to users with an optional note.
//
// It posts to create/recommend-personal, not create/recording. The latter is the
// followers recommendation sent by [ListenBrainzService.RecommendToFollowers].
func (s *ListenBrainzService) RecommendToUsersPersonally(ctx context.Context, user string, item models.TrackItem, users []string, blurb, token string) error {
	if len(users) == 0 {
		return fmt.Errorf("%w: at least one recipient is required", shared.ErrValidation)
	}

	body := metadataRequest[recommendationMetadata]{Metadata: recommendationMetadata{
		RecordingMSID: optional(item.RecordingMSID()),
		RecordingMBID: optional(item.RecordingMBID()),
		Users:         users,
		BlurbContent:  &blurb,
	}}
	if err := s.doRequest(ctx, http.MethodPost, timelinePath(user, "recommend-personal"), nil, token, body, nil); err != nil {
		return fmt.Errorf("recommend personally: %w", err)
	}
	return nil
}

type reviewMetadata struct {
	EntityName string `json:"entity_name"`
	EntityID   string `json:"entity_id"`
	EntityType string `json:"entity_type"`
	Text       string `json:"text"`
	Language   string `json:"language"`
	Rating     int    `json:"rating"`
}

// ValidateReview checks a review locally. It returns an error wrapping [shared.ErrValidation].
func ValidateReview(item models.TrackItem, review models.ReviewRequest) error {
	switch {
	case item.TrackName() == "":
		return fmt.Errorf("%w: track name is required", shared.ErrValidation)
	case item.RecordingMSID() == "":
		return fmt.Errorf("%w: recording msid is required", shared.ErrValidation)
	case utf8.RuneCountInString(review.Text) < minReviewLength:
		return fmt.Errorf("%w: review must be at least %d characters", shared.ErrValidation, minReviewLength)
	case review.Rating < 1 || review.Rating > 5:
		return fmt.Errorf("%w: rating must be between 1 and 5", shared.ErrValidation)
	}
	return nil
}

// WriteReview validates the review then posts it. The language is always sent as "en".
func (s *ListenBrainzService) WriteReview(ctx context.Context, user string, item models.TrackItem, token string, review models.ReviewRequest) error {
	if err := ValidateReview(item, review); err != nil {
		return err
	}

	body := metadataRequest[reviewMetadata]{Metadata: reviewMetadata{
		EntityName: review.EntityName,
		EntityID:   review.EntityID,
		EntityType: review.EntityType,
		Text:       review.Text,
		Language:   reviewLanguage,
		Rating:     review.Rating,
	}}
	if err := s.doRequest(ctx, http.MethodPost, timelinePath(user, "review"), nil, token, body, nil); err != nil {
		return fmt.Errorf("write review: %w", err)
	}
	return nil
}

// Playlist fetches a playlist by MBID.
func (s *ListenBrainzService) Playlist(ctx context.Context, mbid, token string) (*models.Playlist, error) {
	if mbid == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	var resp models.PlaylistResponse
	err := s.doRequest(ctx, http.MethodGet, "/playlist/"+url.PathEscape(mbid), nil, token, nil, &resp)

	var httpErr *shared.HTTPError
	if errors.As(err, &httpErr) && httpErr.Status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s: %w", shared.ErrPlaylistNotFound, mbid, err)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch playlist: %w", err)
	}
	return &resp.Playlist, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
