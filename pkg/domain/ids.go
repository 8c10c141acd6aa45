package domain

import "github.com/google/uuid"

// FeedIDFor returns a stable feed id derived from the feed url
func FeedIDFor(feedURL string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(feedURL)).String()
}

// PostIDFor returns a stable post id derived from the owning feed and the post link
func PostIDFor(feedID, link string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(feedID+"\n"+link)).String()
}
