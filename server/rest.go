package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/feedwatch/pkg/domain"
	"github.com/umputun/feedwatch/pkg/reader"
	"github.com/umputun/feedwatch/pkg/scheduler"
	"github.com/umputun/feedwatch/pkg/store"
	"github.com/umputun/feedwatch/pkg/validator"
)

// errorResponse is the body of failed api calls
type errorResponse struct {
	Error  string                  `json:"error"`
	Kinds  []domain.ValidationKind `json:"kinds,omitempty"`
	Status string                  `json:"status,omitempty"`
}

// submitRequest is the body of feed submission
type submitRequest struct {
	URL string `json:"url"`
}

// postView is a post with its read mark
type postView struct {
	domain.Post
	Read bool `json:"read"`
}

// statusResponse describes the form and polling state
type statusResponse struct {
	Status  string                     `json:"status"`
	Version string                     `json:"version"`
	Time    time.Time                  `json:"time"`
	Form    domain.FormStatus          `json:"form"`
	Errors  []domain.ValidationKind    `json:"errors"`
	Stats   store.Stats                `json:"stats"`
	Polling []string                   `json:"polling"`
	Tasks   map[string]scheduler.Stats `json:"tasks"`
}

// statusHandler returns server, form and polling status
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	errs := s.reader.Errors()
	if errs == nil {
		errs = []domain.ValidationKind{}
	}
	renderJSON(w, r, http.StatusOK, statusResponse{
		Status:  "ok",
		Version: s.version,
		Time:    time.Now().UTC(),
		Form:    s.reader.Status(),
		Errors:  errs,
		Stats:   s.store.Stats(),
		Polling: s.scheduler.Active(),
		Tasks:   s.scheduler.Stats(),
	})
}

// listFeedsHandler returns subscribed feeds, most recent first
func (s *Server) listFeedsHandler(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, r, http.StatusOK, s.store.Feeds())
}

// submitFeedHandler subscribes to a new feed
func (s *Server) submitFeedHandler(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if _, timeout := s.config.GetServerConfig(); timeout > 2*time.Second {
		// answer before the write timeout even if the download is stuck in retries
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout-time.Second)
		defer cancel()
	}

	err := s.reader.SubmitFeedURL(ctx, req.URL)
	if err == nil {
		feed, ok := s.store.FeedByURL(validator.Normalize(req.URL))
		if !ok {
			renderError(w, r, fmt.Errorf("feed %s not found after subscription", req.URL), http.StatusInternalServerError)
			return
		}
		renderJSON(w, r, http.StatusCreated, feed)
		return
	}

	resp := errorResponse{Error: err.Error(), Status: s.reader.Status().String()}
	var verr *domain.ValidationError
	var netErr *domain.NetworkError
	var parseErr *domain.ParseError
	switch {
	case errors.As(err, &verr):
		resp.Kinds = verr.Kinds
		renderJSON(w, r, http.StatusUnprocessableEntity, resp)
	case errors.Is(err, reader.ErrSubmissionInProgress):
		resp.Status = ""
		renderJSON(w, r, http.StatusConflict, resp)
	case errors.As(err, &parseErr):
		renderJSON(w, r, http.StatusUnprocessableEntity, resp)
	case errors.As(err, &netErr):
		renderJSON(w, r, http.StatusBadGateway, resp)
	default:
		lgr.Printf("[ERROR] unexpected submission error: %v", err)
		renderJSON(w, r, http.StatusInternalServerError, resp)
	}
}

// listPostsHandler returns posts in viewing order with read marks, optionally for a single feed
func (s *Server) listPostsHandler(w http.ResponseWriter, r *http.Request) {
	var posts []domain.Post
	if feedID := r.URL.Query().Get("feed"); feedID != "" {
		if _, ok := s.store.Feed(feedID); !ok {
			renderError(w, r, fmt.Errorf("feed %s: %w", feedID, domain.ErrFeedNotFound), http.StatusNotFound)
			return
		}
		posts = s.store.PostsByFeed(feedID)
	} else {
		posts = s.store.Posts()
	}

	read := make(map[string]bool)
	for _, id := range s.store.ReadIDs() {
		read[id] = true
	}
	res := make([]postView, len(posts))
	for i, p := range posts {
		res[i] = postView{Post: p, Read: read[p.ID]}
	}
	renderJSON(w, r, http.StatusOK, res)
}

// markReadHandler marks the post as read, unknown ids are accepted and ignored
func (s *Server) markReadHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.reader.MarkRead(id)
	renderJSON(w, r, http.StatusOK, map[string]any{"id": id, "read": s.store.IsRead(id)})
}
