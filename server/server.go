package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/umputun/feedwatch/pkg/domain"
	"github.com/umputun/feedwatch/pkg/scheduler"
	"github.com/umputun/feedwatch/pkg/state"
	"github.com/umputun/feedwatch/pkg/store"
)

//go:generate moq -out mocks/config.go -pkg mocks -skip-ensure -fmt goimports . ConfigProvider
//go:generate moq -out mocks/reader.go -pkg mocks -skip-ensure -fmt goimports . Reader
//go:generate moq -out mocks/scheduler.go -pkg mocks -skip-ensure -fmt goimports . Scheduler
//go:generate moq -out mocks/observable.go -pkg mocks -skip-ensure -fmt goimports . Observable

// apiThrottle limits concurrent api requests, event streams excluded
const apiThrottle = 100

// Server represents HTTP server instance
type Server struct {
	config    ConfigProvider
	reader    Reader
	store     Store
	scheduler Scheduler
	state     Observable
	version   string
	debug     bool

	lock       sync.Mutex
	httpServer *http.Server
	router     *routegroup.Bundle
}

// ConfigProvider provides server configuration
type ConfigProvider interface {
	GetServerConfig() (listen string, timeout time.Duration)
	GetBaseURL() string
}

// Reader interface for subscription operations
type Reader interface {
	SubmitFeedURL(ctx context.Context, raw string) error
	MarkRead(postID string)
	Status() domain.FormStatus
	Errors() []domain.ValidationKind
}

// Store interface for read access to feeds and posts
type Store interface {
	Feeds() []domain.Feed
	Feed(id string) (domain.Feed, bool)
	FeedByURL(feedURL string) (domain.Feed, bool)
	Posts() []domain.Post
	PostsByFeed(feedID string) []domain.Post
	IsRead(postID string) bool
	ReadIDs() []string
	Stats() store.Stats
}

// Scheduler interface for polling status
type Scheduler interface {
	Active() []string
	Stats() map[string]scheduler.Stats
}

// Observable is the state container the server listens to
type Observable interface {
	Subscribe(path string, handler state.Handler) (unsubscribe func())
	Snapshot() map[string]any
}

// Params for the server
type Params struct {
	Config    ConfigProvider
	Reader    Reader
	Store     Store
	Scheduler Scheduler
	State     Observable
	Version   string
	Debug     bool
}

// New initializes a new server instance
func New(params Params) *Server {
	s := &Server{
		config:    params.Config,
		reader:    params.Reader,
		store:     params.Store,
		scheduler: params.Scheduler,
		state:     params.State,
		version:   params.Version,
		debug:     params.Debug,
		router:    routegroup.New(http.NewServeMux()),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Run starts the HTTP server and handles graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	listen, timeout := s.config.GetServerConfig()
	lgr.Printf("[INFO] starting server on %s", listen)

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:              listen,
		Handler:           s.router,
		ReadHeaderTimeout: timeout,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout,
	}
	httpServer := s.httpServer
	s.lock.Unlock()

	go func() {
		<-ctx.Done()
		lgr.Printf("[INFO] shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			lgr.Printf("[WARN] server shutdown error: %v", err)
		}
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// setupMiddleware configures standard middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(rest.AppInfo("feedwatch", "umputun", s.version))
	s.router.Use(rest.Ping)

	if s.debug {
		s.router.Use(logger.New(logger.Log(lgr.Default()), logger.Prefix("[DEBUG]")).Handler)
	}

	s.router.Use(rest.Recoverer(lgr.Default()))
}

// setupRoutes configures application routes
func (s *Server) setupRoutes() {
	// event streams stay open for the whole session and are not throttled
	s.router.HandleFunc("GET /api/v1/events", s.eventsHandler)

	limited := s.router.With(rest.Throttle(apiThrottle), rest.SizeLimit(64*1024))
	limited.Mount("/api/v1").Route(func(r *routegroup.Bundle) {
		r.HandleFunc("GET /status", s.statusHandler)
		r.HandleFunc("GET /feeds", s.listFeedsHandler)
		r.HandleFunc("POST /feeds", s.submitFeedHandler)
		r.HandleFunc("GET /posts", s.listPostsHandler)
		r.HandleFunc("POST /posts/{id}/read", s.markReadHandler)
	})

	limited.HandleFunc("GET /rss", s.rssHandler)
	limited.HandleFunc("GET /opml", s.opmlHandler)
}

// renderJSON sends JSON response
func renderJSON(w http.ResponseWriter, _ *http.Request, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			lgr.Printf("[ERROR] can't encode response to JSON: %v", err)
		}
	}
}

// renderError sends error response as JSON
func renderError(w http.ResponseWriter, r *http.Request, err error, code int) {
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	renderJSON(w, r, code, errorResponse{Error: errMsg})
}
