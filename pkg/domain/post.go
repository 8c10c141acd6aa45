package domain

import "time"

// Post represents one syndicated item belonging to a feed.
// Link is the de-duplication key within a feed.
type Post struct {
	ID          string    `json:"id"`
	FeedID      string    `json:"feed_id"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Description string    `json:"description"`
	Published   time.Time `json:"published"`
}
