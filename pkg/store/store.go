// Package store keeps the canonical in-memory collection of feeds and posts.
//
// Feed urls are unique, post links are unique within a feed and new posts are always
// placed ahead of the known ones. Every mutation is applied and published to the
// observable state atomically with respect to other store operations.
package store

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/samber/lo"

	"github.com/umputun/feedwatch/pkg/domain"
	"github.com/umputun/feedwatch/pkg/state"
)

// Publisher receives snapshots after every mutation, *state.State implements it
type Publisher interface {
	Set(path string, value any)
}

// Store is the reconciliation store.
// Snapshots are published while the store is locked, handlers observing them
// must use the published value and not call back into the store.
type Store struct {
	mu        sync.RWMutex
	pub       Publisher
	feeds     []domain.Feed          // most recently registered first
	posts     []domain.Post          // newest merges first
	byURL     map[string]string      // feed url -> feed id
	byID      map[string]domain.Feed // feed id -> feed
	links     map[string]map[string]struct{}
	postIDs   map[string]struct{}
	readMarks map[string]struct{}
	readOrder []string
	now       func() time.Time
}

// Stats summarizes store content
type Stats struct {
	Feeds int `json:"feeds"`
	Posts int `json:"posts"`
	Read  int `json:"read"`
}

// New makes an empty store publishing to pub, pub can be nil.
// Collections start empty, not nil, so that they are rendered as empty lists.
func New(pub Publisher) *Store {
	s := &Store{
		pub:       pub,
		feeds:     []domain.Feed{},
		posts:     []domain.Post{},
		readOrder: []string{},
		byURL:     make(map[string]string),
		byID:      make(map[string]domain.Feed),
		links:     make(map[string]map[string]struct{}),
		postIDs:   make(map[string]struct{}),
		readMarks: make(map[string]struct{}),
		now:       time.Now,
	}
	s.publishAll()
	return s
}

// RegisterFeed adds a new feed with its initial posts. The feed id is derived from the url
// if not set, posts get bound to the feed. Fails with domain.ErrDuplicateFeed if the url
// is already registered.
func (s *Store) RegisterFeed(feed domain.Feed, initial []domain.Post) (domain.Feed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byURL[feed.URL]; ok {
		return domain.Feed{}, fmt.Errorf("register %s: %w", feed.URL, domain.ErrDuplicateFeed)
	}
	if feed.ID == "" {
		feed.ID = domain.FeedIDFor(feed.URL)
	}
	if _, ok := s.byID[feed.ID]; ok {
		return domain.Feed{}, fmt.Errorf("register %s, id %s: %w", feed.URL, feed.ID, domain.ErrDuplicateFeed)
	}
	if feed.CreatedAt.IsZero() {
		feed.CreatedAt = s.now()
	}

	s.byURL[feed.URL] = feed.ID
	s.byID[feed.ID] = feed
	s.links[feed.ID] = make(map[string]struct{}, len(initial))
	s.feeds = append([]domain.Feed{feed}, s.feeds...)
	inserted := s.insert(feed.ID, initial)

	lgr.Printf("[INFO] registered feed %s (%s) with %d posts", feed.URL, feed.ID, len(inserted))
	s.publish(state.PathFeeds, slices.Clone(s.feeds))
	s.publish(state.PathPosts, slices.Clone(s.posts))
	return feed, nil
}

// MergePosts inserts candidates whose link is not yet known for the feed, ahead of
// existing posts and in candidate order. Returns exactly the inserted posts, empty if
// nothing is new. Fails with domain.ErrFeedNotFound for unknown feeds.
func (s *Store) MergePosts(feedID string, candidates []domain.Post) ([]domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[feedID]; !ok {
		return nil, fmt.Errorf("merge into %s: %w", feedID, domain.ErrFeedNotFound)
	}

	inserted := s.insert(feedID, candidates)
	if len(inserted) == 0 {
		return []domain.Post{}, nil
	}

	lgr.Printf("[DEBUG] merged %d new posts into feed %s", len(inserted), feedID)
	s.publish(state.PathPosts, slices.Clone(s.posts))
	return inserted, nil
}

// MarkRead records the post as read. Unknown and already read ids are ignored.
func (s *Store) MarkRead(postID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.postIDs[postID]; !ok {
		return
	}
	if _, ok := s.readMarks[postID]; ok {
		return
	}
	s.readMarks[postID] = struct{}{}
	s.readOrder = append(s.readOrder, postID)
	s.publish(state.PathReadPostIDs, slices.Clone(s.readOrder))
}

// insert binds candidates to the feed, drops known and repeated links and prepends
// the rest. Must be called with the lock held.
func (s *Store) insert(feedID string, candidates []domain.Post) []domain.Post {
	known := s.links[feedID]
	fresh := lo.Filter(candidates, func(p domain.Post, _ int) bool {
		if p.Link == "" {
			return false
		}
		_, ok := known[p.Link]
		return !ok
	})
	fresh = lo.UniqBy(fresh, func(p domain.Post) string { return p.Link })
	if len(fresh) == 0 {
		return nil
	}

	inserted := make([]domain.Post, len(fresh))
	for i, p := range fresh {
		p.FeedID = feedID
		p.ID = domain.PostIDFor(feedID, p.Link)
		known[p.Link] = struct{}{}
		s.postIDs[p.ID] = struct{}{}
		inserted[i] = p
	}

	posts := make([]domain.Post, 0, len(inserted)+len(s.posts))
	posts = append(posts, inserted...)
	s.posts = append(posts, s.posts...)
	return slices.Clone(inserted)
}

// HasURL reports whether a feed with the url is registered
func (s *Store) HasURL(feedURL string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byURL[feedURL]
	return ok
}

// FeedURLs returns urls of all registered feeds, most recent first
func (s *Store) FeedURLs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Map(s.feeds, func(f domain.Feed, _ int) string { return f.URL })
}

// Feed returns feed by id
func (s *Store) Feed(id string) (domain.Feed, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.byID[id]
	return f, ok
}

// FeedByURL returns feed by url
func (s *Store) FeedByURL(feedURL string) (domain.Feed, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byURL[feedURL]
	if !ok {
		return domain.Feed{}, false
	}
	return s.byID[id], true
}

// Feeds returns all feeds, most recently registered first
func (s *Store) Feeds() []domain.Feed {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.feeds)
}

// Posts returns all posts in viewing order, newest merges first
func (s *Store) Posts() []domain.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.posts)
}

// PostsByFeed returns posts of a single feed in viewing order
func (s *Store) PostsByFeed(feedID string) []domain.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Filter(s.posts, func(p domain.Post, _ int) bool { return p.FeedID == feedID })
}

// IsRead reports whether the post was marked as read
func (s *Store) IsRead(postID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.readMarks[postID]
	return ok
}

// ReadIDs returns ids of read posts in the order they were marked
func (s *Store) ReadIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.readOrder)
}

// Stats returns counters of the store content
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{Feeds: len(s.feeds), Posts: len(s.posts), Read: len(s.readOrder)}
}

// publishAll pushes the initial empty collections so observers see typed values
func (s *Store) publishAll() {
	s.publish(state.PathFeeds, []domain.Feed{})
	s.publish(state.PathPosts, []domain.Post{})
	s.publish(state.PathReadPostIDs, []string{})
}

func (s *Store) publish(path string, value any) {
	if s.pub == nil {
		return
	}
	s.pub.Set(path, value)
}
