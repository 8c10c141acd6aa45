// Package scheduler keeps known feeds fresh by re-fetching them periodically and merging
// new posts into the store. Each feed is polled by its own task, cycles of one task never
// overlap and the next cycle is scheduled only after the previous one completed.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/feedwatch/pkg/domain"
)

//go:generate moq -out mocks/parser.go -pkg mocks -skip-ensure -fmt goimports . Parser
//go:generate moq -out mocks/store.go -pkg mocks -skip-ensure -fmt goimports . Store

// ErrAlreadyPolling returned when a task for the feed url is already running
var ErrAlreadyPolling = errors.New("feed is already polled")

// Parser interface for feed parsing
type Parser interface {
	Parse(raw string) (*domain.ParsedFeed, error)
}

// Store interface for merging fetched posts
type Store interface {
	FeedByURL(feedURL string) (domain.Feed, bool)
	MergePosts(feedID string, candidates []domain.Post) ([]domain.Post, error)
}

// FetchFunc retrieves the raw feed document
type FetchFunc func(ctx context.Context, feedURL string) (string, error)

// MergedFunc is called after a cycle inserted new posts. It runs on the task goroutine,
// calling Task.Stop or Scheduler.Stop for the same feed from it will deadlock.
type MergedFunc func(feedURL string, inserted []domain.Post)

// Params for the scheduler
type Params struct {
	Parser Parser
	Store  Store
}

// Scheduler manages polling tasks, one per feed url
type Scheduler struct {
	parser Parser
	store  Store

	mu    sync.Mutex
	tasks map[string]*Task
}

// Task is a single feed polling loop
type Task struct {
	url      string
	interval time.Duration
	fetch    FetchFunc
	onMerged MergedFunc
	cancel   context.CancelFunc
	done     chan struct{}

	mu    sync.Mutex
	stats Stats
}

// Stats of a polling task
type Stats struct {
	Cycles    int       `json:"cycles"`
	Failures  int       `json:"failures"`
	Inserted  int       `json:"inserted"`
	LastError string    `json:"last_error,omitempty"`
	LastRun   time.Time `json:"last_run"`
}

// NewScheduler creates a new scheduler instance
func NewScheduler(params Params) *Scheduler {
	return &Scheduler{parser: params.Parser, store: params.Store, tasks: make(map[string]*Task)}
}

// StartPolling begins the recurring update of the feed. The first cycle runs one interval
// after the start, every next one an interval after the previous cycle completed.
// Errors of a cycle are logged and never stop the task. The task ends on Stop, Shutdown
// or when ctx is canceled.
func (s *Scheduler) StartPolling(ctx context.Context, feedURL string, interval time.Duration,
	fetch FetchFunc, onMerged MergedFunc) (*Task, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("invalid update interval %v for %s", interval, feedURL)
	}
	if fetch == nil {
		return nil, fmt.Errorf("no fetch function for %s", feedURL)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[feedURL]; ok {
		return nil, fmt.Errorf("start polling %s: %w", feedURL, ErrAlreadyPolling)
	}

	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		url:      feedURL,
		interval: interval,
		fetch:    fetch,
		onMerged: onMerged,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	s.tasks[feedURL] = t
	go s.run(ctx, t)

	lgr.Printf("[INFO] polling %s every %v", feedURL, interval)
	return t, nil
}

// Stop ends polling of the feed and waits for the running cycle, if any.
// Returns false if the feed is not polled.
func (s *Scheduler) Stop(feedURL string) bool {
	s.mu.Lock()
	t, ok := s.tasks[feedURL]
	s.mu.Unlock()
	if !ok {
		return false
	}
	t.Stop()
	return true
}

// Shutdown stops all tasks and waits for them to finish
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	tasks := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.mu.Unlock()

	for _, t := range tasks {
		t.cancel()
	}
	for _, t := range tasks {
		<-t.done
	}
	lgr.Printf("[INFO] scheduler stopped, %d tasks finished", len(tasks))
}

// Active returns polled feed urls, sorted
func (s *Scheduler) Active() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]string, 0, len(s.tasks))
	for u := range s.tasks {
		res = append(res, u)
	}
	sort.Strings(res)
	return res
}

// Stats returns stats of all running tasks keyed by feed url
func (s *Scheduler) Stats() map[string]Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make(map[string]Stats, len(s.tasks))
	for u, t := range s.tasks {
		res[u] = t.Stats()
	}
	return res
}

// URL of the polled feed
func (t *Task) URL() string { return t.url }

// Stop cancels the task and waits until its goroutine exits
func (t *Task) Stop() {
	t.cancel()
	<-t.done
}

// Done is closed when the task is finished
func (t *Task) Done() <-chan struct{} { return t.done }

// Stats returns a copy of the task counters
func (t *Task) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

func (t *Task) record(start time.Time, inserted int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.Cycles++
	t.stats.LastRun = start
	t.stats.Inserted += inserted
	if err != nil {
		t.stats.Failures++
		t.stats.LastError = err.Error()
	}
}

// run is the polling loop of a single task
func (s *Scheduler) run(ctx context.Context, t *Task) {
	defer close(t.done)
	defer s.forget(t)

	timer := time.NewTimer(t.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			lgr.Printf("[DEBUG] polling of %s stopped", t.url)
			return
		case <-timer.C:
		}

		s.cycle(ctx, t)
		timer.Reset(t.interval)
	}
}

// cycle runs a single update and records the outcome, errors are swallowed
func (s *Scheduler) cycle(ctx context.Context, t *Task) {
	start := time.Now()
	inserted, err := s.update(ctx, t)
	if err != nil && ctx.Err() != nil {
		return // stopped in the middle of the cycle, not a failure
	}
	t.record(start, len(inserted), err)
	if err != nil {
		lgr.Printf("[WARN] failed to update feed %s: %v", t.url, err)
		return
	}
	if len(inserted) > 0 {
		lgr.Printf("[DEBUG] feed %s got %d new posts in %v", t.url, len(inserted), time.Since(start))
	}
}

// update fetches, parses and merges the feed. Panics are turned into errors.
func (s *Scheduler) update(ctx context.Context, t *Task) (inserted []domain.Post, err error) {
	defer func() {
		if r := recover(); r != nil {
			inserted, err = nil, fmt.Errorf("update cycle panic: %v", r)
		}
	}()

	raw, err := t.fetch(ctx, t.url)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	parsed, err := s.parser.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	feed, ok := s.store.FeedByURL(t.url)
	if !ok {
		return nil, fmt.Errorf("lookup %s: %w", t.url, domain.ErrFeedNotFound)
	}
	inserted, err = s.store.MergePosts(feed.ID, parsed.Posts)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	if len(inserted) > 0 && t.onMerged != nil {
		t.onMerged(t.url, inserted)
	}
	return inserted, nil
}

// forget removes the finished task unless it was already replaced
func (s *Scheduler) forget(t *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.tasks[t.url]; ok && cur == t {
		delete(s.tasks, t.url)
	}
}
