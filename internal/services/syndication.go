package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"

	"github.com/desertthunder/lbx/internal/shared"
)

const (
	DefaultSiteURL = "https://listenbrainz.org"

	// maxFeedSize bounds the syndication document read from the network.
	maxFeedSize = 5 << 20
)

// SyndicationItem is one entry of the public events feed.
type SyndicationItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Author    string    `json:"author,omitempty"`
	Content   string    `json:"content,omitempty"`
	Published time.Time `json:"published"`
}

// SyndicationFeed is the parsed public events feed of a user.
type SyndicationFeed struct {
	Title   string            `json:"title"`
	Link    string            `json:"link"`
	Updated time.Time         `json:"updated"`
	Items   []SyndicationItem `json:"items"`
}

// SyndicationService reads the unauthenticated Atom feed ListenBrainz publishes for each user.
type SyndicationService struct {
	siteURL    string
	httpClient *http.Client
	parser     *gofeed.Parser
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewSyndicationService creates a reader for the site rooted at siteURL.
func NewSyndicationService(siteURL string, client *http.Client, logger *log.Logger) *SyndicationService {
	if siteURL == "" {
		siteURL = DefaultSiteURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &SyndicationService{
		siteURL:    strings.TrimSuffix(siteURL, "/"),
		httpClient: client,
		parser:     gofeed.NewParser(),
		logger:     shared.WithLogger(logger, "service", "syndication"),
	}
}

// SetRateLimit paces feed reads. Zero or less disables pacing.
func (s *SyndicationService) SetRateLimit(rps float64) {
	if rps <= 0 {
		s.limiter = nil
		return
	}
	s.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
}

// FeedURL returns the events feed address for user.
func (s *SyndicationService) FeedURL(user string) string {
	return s.siteURL + "/syndication-feed/user/" + url.PathEscape(user) + "/events"
}

// Events fetches and parses the user's public events feed.
func (s *SyndicationService) Events(ctx context.Context, user string) (*SyndicationFeed, error) {
	if user == "" {
		return nil, fmt.Errorf("%w: username", shared.ErrMissingArgument)
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", shared.ErrNetwork, err)
		}
	}

	feedURL := s.FeedURL(user)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &shared.HTTPError{Status: resp.StatusCode}
	}

	parsed, err := s.parser.Parse(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrDecode, err)
	}

	feed := &SyndicationFeed{Title: parsed.Title, Link: parsed.Link}
	if parsed.UpdatedParsed != nil {
		feed.Updated = *parsed.UpdatedParsed
	}

	feed.Items = make([]SyndicationItem, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		entry := SyndicationItem{
			ID:      item.GUID,
			Title:   item.Title,
			Link:    item.Link,
			Content: item.Content,
		}
		if entry.Content == "" {
			entry.Content = item.Description
		}
		if item.Author != nil {
			entry.Author = item.Author.Name
		}
		switch {
		case item.PublishedParsed != nil:
			entry.Published = *item.PublishedParsed
		case item.UpdatedParsed != nil:
			entry.Published = *item.UpdatedParsed
		}
		feed.Items = append(feed.Items, entry)
	}

	s.logger.Debug("parsed syndication feed", "user", user, "items", len(feed.Items))
	return feed, nil
}
