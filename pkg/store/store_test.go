package store

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/feedwatch/pkg/domain"
	"github.com/umputun/feedwatch/pkg/state"
)

func posts(links ...string) []domain.Post {
	res := make([]domain.Post, len(links))
	for i, l := range links {
		res[i] = domain.Post{Title: "title " + l, Link: "https://example.com/" + l}
	}
	return res
}

func links(pp []domain.Post) []string {
	res := make([]string, len(pp))
	for i, p := range pp {
		res[i] = p.Link[len("https://example.com/"):]
	}
	return res
}

func TestStore_EmptyCollections(t *testing.T) {
	s := New(nil)

	for name, v := range map[string]any{
		"feeds":    s.Feeds(),
		"posts":    s.Posts(),
		"read ids": s.ReadIDs(),
		"urls":     s.FeedURLs(),
		"by feed":  s.PostsByFeed("unknown"),
	} {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		assert.JSONEq(t, "[]", string(data), name)
	}

	// a feed without posts leaves posts empty, not nil
	_, err := s.RegisterFeed(domain.Feed{URL: "https://example.com/feed.xml"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, s.Posts())
	assert.Empty(t, s.Posts())
}

func TestStore_RegisterFeed(t *testing.T) {
	s := New(nil)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	feed, err := s.RegisterFeed(domain.Feed{URL: "https://example.com/feed.xml", Title: "Example"}, posts("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, domain.FeedIDFor("https://example.com/feed.xml"), feed.ID)
	assert.Equal(t, now, feed.CreatedAt)
	assert.Equal(t, "Example", feed.Title)

	all := s.Posts()
	require.Len(t, all, 2)
	assert.Equal(t, []string{"a", "b"}, links(all))
	for _, p := range all {
		assert.Equal(t, feed.ID, p.FeedID)
		assert.Equal(t, domain.PostIDFor(feed.ID, p.Link), p.ID)
	}

	assert.True(t, s.HasURL("https://example.com/feed.xml"))
	assert.False(t, s.HasURL("https://example.com/other.xml"))
	got, ok := s.Feed(feed.ID)
	require.True(t, ok)
	assert.Equal(t, feed, got)
	got, ok = s.FeedByURL(feed.URL)
	require.True(t, ok)
	assert.Equal(t, feed, got)
	_, ok = s.FeedByURL("https://nope")
	assert.False(t, ok)

	t.Run("duplicate url", func(t *testing.T) {
		_, err := s.RegisterFeed(domain.Feed{URL: "https://example.com/feed.xml", Title: "Again"}, posts("c"))
		require.ErrorIs(t, err, domain.ErrDuplicateFeed)
		assert.Equal(t, 1, s.Stats().Feeds)
		assert.Len(t, s.Posts(), 2)
	})

	t.Run("newer feeds go first", func(t *testing.T) {
		_, err := s.RegisterFeed(domain.Feed{URL: "https://example.com/second.xml"}, posts("x"))
		require.NoError(t, err)
		assert.Equal(t, []string{"https://example.com/second.xml", "https://example.com/feed.xml"}, s.FeedURLs())
		assert.Equal(t, []string{"x", "a", "b"}, links(s.Posts()))
	})
}

func TestStore_RegisterFeed_DuplicateLinksInInitialBatch(t *testing.T) {
	s := New(nil)
	_, err := s.RegisterFeed(domain.Feed{URL: "https://example.com/feed.xml"}, posts("a", "b", "a"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, links(s.Posts()))
}

func TestStore_MergePosts(t *testing.T) {
	s := New(nil)
	feed, err := s.RegisterFeed(domain.Feed{URL: "https://example.com/feed.xml"}, posts("a", "b"))
	require.NoError(t, err)

	inserted, err := s.MergePosts(feed.ID, posts("c", "a", "b"))
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, links(inserted))
	assert.Equal(t, feed.ID, inserted[0].FeedID)
	assert.NotEmpty(t, inserted[0].ID)
	assert.Equal(t, []string{"c", "a", "b"}, links(s.Posts()))

	t.Run("idempotent", func(t *testing.T) {
		before := s.Posts()
		inserted, err := s.MergePosts(feed.ID, posts("c", "a", "b"))
		require.NoError(t, err)
		assert.Empty(t, inserted)
		assert.NotNil(t, inserted)
		assert.Equal(t, before, s.Posts())
	})

	t.Run("new posts prepended as a block in candidate order", func(t *testing.T) {
		inserted, err := s.MergePosts(feed.ID, posts("e", "a", "d", "e"))
		require.NoError(t, err)
		assert.Equal(t, []string{"e", "d"}, links(inserted))
		assert.Equal(t, []string{"e", "d", "c", "a", "b"}, links(s.Posts()))
	})

	t.Run("posts without link are dropped", func(t *testing.T) {
		inserted, err := s.MergePosts(feed.ID, []domain.Post{{Title: "no link"}})
		require.NoError(t, err)
		assert.Empty(t, inserted)
	})

	t.Run("unknown feed", func(t *testing.T) {
		_, err := s.MergePosts("unknown", posts("z"))
		require.ErrorIs(t, err, domain.ErrFeedNotFound)
	})

	t.Run("same link in another feed is not a duplicate", func(t *testing.T) {
		other, err := s.RegisterFeed(domain.Feed{URL: "https://example.com/other.xml"}, nil)
		require.NoError(t, err)
		inserted, err := s.MergePosts(other.ID, posts("a"))
		require.NoError(t, err)
		require.Len(t, inserted, 1)
		assert.NotEqual(t, domain.PostIDFor(feed.ID, inserted[0].Link), inserted[0].ID)
		assert.Len(t, s.PostsByFeed(other.ID), 1)
		assert.Len(t, s.PostsByFeed(feed.ID), 5)
	})
}

func TestStore_MergeProperties(t *testing.T) {
	s := New(nil)
	feed, err := s.RegisterFeed(domain.Feed{URL: "https://example.com/feed.xml"}, nil)
	require.NoError(t, err)

	batches := [][]domain.Post{
		posts("1", "2", "3"),
		posts("3", "4"),
		posts("1", "5", "5", "6"),
		posts("2"),
		posts("7", "6", "8"),
	}
	for i, batch := range batches {
		before := s.Posts()
		inserted, err := s.MergePosts(feed.ID, batch)
		require.NoError(t, err)
		after := s.Posts()

		// new posts are a contiguous head block, previous order untouched
		require.Len(t, after, len(before)+len(inserted), "batch %d", i)
		assert.Equal(t, inserted, after[:len(inserted)], "batch %d", i)
		assert.Equal(t, before, after[len(inserted):], "batch %d", i)

		// no duplicate links
		seen := map[string]bool{}
		for _, p := range after {
			assert.False(t, seen[p.Link], "duplicate link %s after batch %d", p.Link, i)
			seen[p.Link] = true
		}
	}
	assert.Equal(t, []string{"7", "8", "5", "6", "4", "1", "2", "3"}, links(s.Posts()))
}

func TestStore_MarkRead(t *testing.T) {
	s := New(nil)
	_, err := s.RegisterFeed(domain.Feed{URL: "https://example.com/feed.xml"}, posts("a", "b"))
	require.NoError(t, err)
	id := s.Posts()[0].ID

	s.MarkRead(id)
	s.MarkRead(id)
	assert.Equal(t, []string{id}, s.ReadIDs())
	assert.True(t, s.IsRead(id))

	s.MarkRead("unknown-id")
	assert.Equal(t, []string{id}, s.ReadIDs())
	assert.False(t, s.IsRead("unknown-id"))
	assert.Equal(t, Stats{Feeds: 1, Posts: 2, Read: 1}, s.Stats())
}

func TestStore_PublishesToState(t *testing.T) {
	st := state.New()
	s := New(st)

	feeds, ok := state.Value[[]domain.Feed](st, state.PathFeeds)
	require.True(t, ok, "initial empty collections are published")
	assert.Empty(t, feeds)

	var events []state.Event
	st.Subscribe(state.PathRoot, func(e state.Event) { events = append(events, e) })

	feed, err := s.RegisterFeed(domain.Feed{URL: "https://example.com/feed.xml"}, posts("a"))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, state.PathFeeds, events[0].Path)
	assert.Equal(t, state.PathPosts, events[1].Path)
	assert.Len(t, events[1].New.([]domain.Post), 1)
	assert.Empty(t, events[1].Old.([]domain.Post))

	events = nil
	_, err = s.MergePosts(feed.ID, posts("a"))
	require.NoError(t, err)
	assert.Empty(t, events, "nothing new, nothing published")

	_, err = s.MergePosts(feed.ID, posts("b"))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Len(t, events[0].New.([]domain.Post), 2)

	events = nil
	id := s.Posts()[0].ID
	s.MarkRead(id)
	s.MarkRead(id)
	s.MarkRead("unknown")
	require.Len(t, events, 1)
	assert.Equal(t, state.PathReadPostIDs, events[0].Path)
	assert.Equal(t, []string{id}, events[0].New)
}

func TestStore_ConcurrentMerges(t *testing.T) {
	st := state.New()
	s := New(st)
	feedIDs := make([]string, 5)
	for i := range feedIDs {
		f, err := s.RegisterFeed(domain.Feed{URL: fmt.Sprintf("https://example.com/%d.xml", i)}, nil)
		require.NoError(t, err)
		feedIDs[i] = f.ID
	}

	var wg sync.WaitGroup
	for _, id := range feedIDs {
		for n := 0; n < 10; n++ {
			wg.Add(1)
			go func(id string, n int) {
				defer wg.Done()
				_, err := s.MergePosts(id, posts(fmt.Sprint(n), fmt.Sprint(n+1)))
				assert.NoError(t, err)
			}(id, n)
		}
	}
	wg.Wait()

	for _, id := range feedIDs {
		assert.Len(t, s.PostsByFeed(id), 11)
	}
	published, ok := state.Value[[]domain.Post](st, state.PathPosts)
	require.True(t, ok)
	assert.Equal(t, s.Posts(), published, "last published snapshot matches store")
}
