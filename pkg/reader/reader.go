// Package reader drives feed subscriptions. SubmitFeedURL validates the user input,
// downloads and parses the feed, registers it in the store and starts polling it, moving
// the form status through filling, validating, downloading and downloaded or failed.
package reader

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-pkgz/lgr"
	"golang.org/x/sync/errgroup"

	"github.com/umputun/feedwatch/pkg/domain"
	"github.com/umputun/feedwatch/pkg/scheduler"
	"github.com/umputun/feedwatch/pkg/state"
	"github.com/umputun/feedwatch/pkg/store"
	"github.com/umputun/feedwatch/pkg/validator"
)

//go:generate moq -out mocks/fetcher.go -pkg mocks -skip-ensure -fmt goimports . Fetcher

// ErrSubmissionInProgress returned when a submission is made while another one is running
var ErrSubmissionInProgress = errors.New("another submission is in progress")

// Fetcher retrieves raw feed documents
type Fetcher interface {
	Fetch(ctx context.Context, feedURL string) (string, error)
}

// Parser turns raw documents into feeds
type Parser interface {
	Parse(raw string) (*domain.ParsedFeed, error)
}

// Params for the reader
type Params struct {
	State          *state.State
	Store          *store.Store
	Scheduler      *scheduler.Scheduler
	Fetcher        Fetcher
	Parser         Parser
	UpdateInterval time.Duration // polling interval of subscribed feeds, 5s if not set
}

// Reader is the caller-facing side of subscriptions
type Reader struct {
	Params
	busy   atomic.Bool
	ctx    context.Context // parent of all polling tasks
	cancel context.CancelFunc
	once   sync.Once
}

// New makes a reader and resets the form to filling
func New(params Params) *Reader {
	if params.UpdateInterval <= 0 {
		params.UpdateInterval = 5 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Reader{Params: params, ctx: ctx, cancel: cancel}
	r.State.Set(state.PathFormErrors, []domain.ValidationKind{})
	r.State.Set(state.PathFormStatus, domain.FormStatus{State: domain.FormFilling})
	return r
}

// SubmitFeedURL subscribes to the feed entered by the user. Each stage is reflected in the
// form status, validation kinds are stored in form errors. The returned error is one of
// *domain.ValidationError, *domain.NetworkError, *domain.ParseError or
// ErrSubmissionInProgress, in the last case the form is left untouched.
func (r *Reader) SubmitFeedURL(ctx context.Context, raw string) error {
	if !r.busy.CompareAndSwap(false, true) {
		return ErrSubmissionInProgress
	}
	defer r.busy.Store(false)

	if st := r.Status(); st.State == domain.FormDownloaded || st.State == domain.FormFailed {
		r.setStatus(domain.FormStatus{State: domain.FormFilling})
	}
	r.setStatus(domain.FormStatus{State: domain.FormValidating})

	feedURL := validator.Normalize(raw)
	if kinds := validator.Validate(feedURL, r.Store.FeedURLs()); len(kinds) > 0 {
		r.State.Set(state.PathFormErrors, kinds)
		r.setStatus(domain.FormStatus{State: domain.FormFilling})
		return &domain.ValidationError{Kinds: kinds}
	}
	r.State.Set(state.PathFormErrors, []domain.ValidationKind{})
	r.setStatus(domain.FormStatus{State: domain.FormDownloading})

	feed, err := r.subscribe(ctx, feedURL)
	switch {
	case err == nil:
		r.setStatus(domain.FormStatus{State: domain.FormDownloaded})
		lgr.Printf("[INFO] subscribed to %s (%s)", feed.URL, feed.Title)
		return nil
	case errors.Is(err, domain.ErrDuplicateFeed):
		// registered by someone else after validation
		kinds := []domain.ValidationKind{domain.ValidationNotOneOf}
		r.State.Set(state.PathFormErrors, kinds)
		r.setStatus(domain.FormStatus{State: domain.FormFailed, Failure: domain.FailureInvalidFeed})
		return &domain.ValidationError{Kinds: kinds}
	case isParseError(err):
		r.setStatus(domain.FormStatus{State: domain.FormFailed, Failure: domain.FailureInvalidFeed})
	default:
		r.setStatus(domain.FormStatus{State: domain.FormFailed, Failure: domain.FailureNetwork})
	}
	lgr.Printf("[WARN] failed to subscribe to %s: %v", feedURL, err)
	return err
}

// SubscribeAll subscribes to feeds known in advance, i.e. listed in the configuration,
// without touching the form. Up to workers feeds are downloaded concurrently. Failed
// and already known feeds are logged and skipped. Returns the number of new subscriptions.
func (r *Reader) SubscribeAll(ctx context.Context, urls []string, workers int) int {
	if workers <= 0 {
		workers = 1
	}
	var added atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, u := range urls {
		feedURL := validator.Normalize(u)
		g.Go(func() error {
			if kinds := validator.Validate(feedURL, r.Store.FeedURLs()); len(kinds) > 0 {
				lgr.Printf("[WARN] skip feed %q: %v", feedURL, &domain.ValidationError{Kinds: kinds})
				return nil
			}
			if _, err := r.subscribe(gctx, feedURL); err != nil {
				lgr.Printf("[WARN] failed to subscribe to %s: %v", feedURL, err)
				return nil
			}
			added.Add(1)
			return nil
		})
	}
	_ = g.Wait() // workers never fail, errors are logged
	lgr.Printf("[INFO] subscribed to %d of %d configured feeds", added.Load(), len(urls))
	return int(added.Load())
}

// MarkRead records the post as read, unknown ids are ignored
func (r *Reader) MarkRead(postID string) {
	r.Store.MarkRead(postID)
}

// Status returns the current form status
func (r *Reader) Status() domain.FormStatus {
	st, _ := state.Value[domain.FormStatus](r.State, state.PathFormStatus)
	return st
}

// Errors returns validation kinds of the last submission
func (r *Reader) Errors() []domain.ValidationKind {
	kinds, _ := state.Value[[]domain.ValidationKind](r.State, state.PathFormErrors)
	return kinds
}

// Shutdown stops polling of all feeds
func (r *Reader) Shutdown() {
	r.once.Do(func() {
		r.cancel()
		r.Scheduler.Shutdown()
	})
}

// subscribe downloads, parses and registers the feed, then starts polling it
func (r *Reader) subscribe(ctx context.Context, feedURL string) (domain.Feed, error) {
	body, err := r.Fetcher.Fetch(ctx, feedURL)
	if err != nil {
		var netErr *domain.NetworkError
		if !errors.As(err, &netErr) {
			err = &domain.NetworkError{URL: feedURL, Err: err}
		}
		return domain.Feed{}, err
	}

	parsed, err := r.Parser.Parse(body)
	if err != nil {
		if !isParseError(err) {
			err = &domain.ParseError{Kind: domain.ParseMalformed, Err: err}
		}
		return domain.Feed{}, err
	}

	feed, err := r.Store.RegisterFeed(domain.Feed{
		URL:         feedURL,
		Title:       parsed.Title,
		Description: parsed.Description,
		Link:        parsed.Link,
	}, parsed.Posts)
	if err != nil {
		return domain.Feed{}, err
	}

	if _, err := r.Scheduler.StartPolling(r.ctx, feedURL, r.UpdateInterval, r.Fetcher.Fetch, r.onMerged); err != nil {
		lgr.Printf("[WARN] polling of %s not started: %v", feedURL, err)
	}
	return feed, nil
}

func (r *Reader) onMerged(feedURL string, inserted []domain.Post) {
	lgr.Printf("[INFO] %d new posts in %s", len(inserted), feedURL)
}

// setStatus moves the form to the next status, invalid transitions are refused
func (r *Reader) setStatus(next domain.FormStatus) {
	cur := r.Status()
	if !cur.CanTransition(next) {
		lgr.Printf("[ERROR] invalid form transition %s -> %s", cur, next)
		return
	}
	r.State.Set(state.PathFormStatus, next)
}

func isParseError(err error) bool {
	var parseErr *domain.ParseError
	return errors.As(err, &parseErr)
}
