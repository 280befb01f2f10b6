package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/lbx/internal/feed"
	"github.com/desertthunder/lbx/internal/models"
	"github.com/desertthunder/lbx/internal/shared"
)

// EventForgetter drops a deleted event from local storage.
//
// Implemented by repositories.Archive.
type EventForgetter interface {
	Forget(ctx context.Context, username string, eventID int64) error
}

// FeedHandler serves one user's paginator.
//
// Routes:
//   - GET /feed : current snapshot
//   - POST /feed/next : load the next page
//   - POST /feed/reset : start over from the newest events
//   - POST /feed/type : switch feed ({"feed_type": "following"} or ?type=following)
//   - DELETE /feed/events/{id} : delete a recommendation or pin
//   - GET /healthz : liveness
type FeedHandler struct {
	paginator *feed.Paginator
	username  string
	token     string
	archive   EventForgetter
	logger    *log.Logger
	mux       *http.ServeMux
}

// NewFeedHandler creates a FeedHandler. archive may be nil.
func NewFeedHandler(p *feed.Paginator, username, token string, archive EventForgetter, logger *log.Logger) *FeedHandler {
	h := &FeedHandler{
		paginator: p,
		username:  username,
		token:     token,
		archive:   archive,
		logger:    shared.WithLogger(logger, "component", "feed_handler"),
		mux:       http.NewServeMux(),
	}

	h.mux.HandleFunc("GET /feed", h.getFeed)
	h.mux.HandleFunc("POST /feed/next", h.nextPage)
	h.mux.HandleFunc("POST /feed/reset", h.reset)
	h.mux.HandleFunc("POST /feed/type", h.changeType)
	h.mux.HandleFunc("DELETE /feed/events/{id}", h.deleteEvent)
	h.mux.HandleFunc("GET /healthz", h.health)
	return h
}

// Routes returns the HTTP routes this handler serves.
func (h *FeedHandler) Routes() []string {
	return []string{
		"GET /feed",
		"POST /feed/next",
		"POST /feed/reset",
		"POST /feed/type",
		"DELETE /feed/events/{id}",
		"GET /healthz",
	}
}

func (h *FeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// FeedResponse is the JSON form of a [feed.Snapshot].
type FeedResponse struct {
	FeedType      models.FeedType `json:"feed_type"`
	Title         string          `json:"title"`
	Phase         string          `json:"phase"`
	Events        []models.Event  `json:"events"`
	MoreAvailable bool            `json:"more_available"`
	Fetching      bool            `json:"fetching"`
	Cursor        *int64          `json:"cursor"`
	Epoch         uint64          `json:"epoch"`
	Error         string          `json:"error,omitempty"`
}

func newFeedResponse(s feed.Snapshot) FeedResponse {
	resp := FeedResponse{
		FeedType:      s.FeedType,
		Title:         s.FeedType.Title(),
		Phase:         s.Phase().String(),
		Events:        s.Events,
		MoreAvailable: s.MoreAvailable,
		Fetching:      s.Fetching,
		Cursor:        s.Cursor(),
		Epoch:         s.Epoch,
	}
	if resp.Events == nil {
		resp.Events = []models.Event{}
	}
	if s.Err != nil {
		resp.Error = s.Err.Error()
	}
	return resp
}

func (h *FeedHandler) getFeed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newFeedResponse(h.paginator.Snapshot()))
}

func (h *FeedHandler) nextPage(w http.ResponseWriter, r *http.Request) {
	if err := h.paginator.LoadNextPage(r.Context(), h.username, h.token); err != nil {
		status := statusFor(err)
		resp := newFeedResponse(h.paginator.Snapshot())
		resp.Error = err.Error()
		writeJSON(w, status, resp)
		return
	}
	writeJSON(w, http.StatusOK, newFeedResponse(h.paginator.Snapshot()))
}

func (h *FeedHandler) reset(w http.ResponseWriter, r *http.Request) {
	h.paginator.Reset()
	writeJSON(w, http.StatusOK, newFeedResponse(h.paginator.Snapshot()))
}

type changeTypeRequest struct {
	FeedType string `json:"feed_type"`
}

func (h *FeedHandler) changeType(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("type")
	if name == "" {
		var req changeTypeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "expected a feed_type")
			return
		}
		name = req.FeedType
	}

	feedType, err := models.ParseFeedType(name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.paginator.ChangeFeedType(feedType)
	writeJSON(w, http.StatusOK, newFeedResponse(h.paginator.Snapshot()))
}

func (h *FeedHandler) deleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	var (
		event models.Event
		found bool
	)
	for _, e := range h.paginator.Events() {
		if e.ID.Valid && e.ID.Value == id {
			event, found = e, true
			break
		}
	}
	if !found {
		writeError(w, http.StatusNotFound, shared.ErrEventNotFound.Error())
		return
	}

	if err := h.paginator.DeleteEvent(r.Context(), h.username, event, h.token); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	if h.archive != nil {
		if err := h.archive.Forget(r.Context(), h.username, id); err != nil {
			h.logger.Warn("failed to forget archived event", "id", id, "err", err)
		}
	}
	writeJSON(w, http.StatusOK, newFeedResponse(h.paginator.Snapshot()))
}

func (h *FeedHandler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps feed errors onto HTTP statuses.
func statusFor(err error) int {
	var httpErr *shared.HTTPError
	switch {
	case errors.Is(err, shared.ErrInvalidArgument), errors.Is(err, shared.ErrValidation), errors.Is(err, shared.ErrMissingArgument):
		return http.StatusBadRequest
	case errors.As(err, &httpErr) && (httpErr.Status == http.StatusUnauthorized || httpErr.Status == http.StatusForbidden):
		return httpErr.Status
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, shared.ErrAPIRequest), errors.Is(err, shared.ErrNetwork), errors.Is(err, shared.ErrDecode):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// NewFeedRouter builds a router with request id, logging and recovery middleware around h.
func NewFeedRouter(h *FeedHandler, logger *log.Logger) *BasicRouter {
	r := NewBasicRouter()
	r.Use(RequestID(), Logging(logger), Recover(logger))
	r.Handler(h)
	return r
}
