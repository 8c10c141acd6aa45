package domain

import "time"

// Feed represents a subscribed syndication source, identified by its origin URL
type Feed struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Link        string    `json:"link,omitempty"` // site link reported by the feed itself
	CreatedAt   time.Time `json:"created_at"`
}

// ParsedFeed represents a feed payload after parsing, not yet bound to a subscription
type ParsedFeed struct {
	Title       string
	Description string
	Link        string
	Posts       []Post
}
