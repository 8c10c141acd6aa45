package server

import (
	"net/http"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/feedwatch/pkg/feed"
)

// rssHandler serves all posts as a single RSS feed, in viewing order
func (s *Server) rssHandler(w http.ResponseWriter, r *http.Request) {
	generator := feed.NewGenerator(s.config.GetBaseURL(), "feedwatch")
	rss, err := generator.GenerateRSS(s.store.Posts(), s.store.Feeds())
	if err != nil {
		lgr.Printf("[ERROR] failed to generate RSS feed: %v", err)
		http.Error(w, "Failed to generate RSS feed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	if _, err := w.Write([]byte(rss)); err != nil {
		lgr.Printf("[ERROR] failed to write RSS response: %v", err)
	}
}

// opmlHandler exports subscriptions as OPML
func (s *Server) opmlHandler(w http.ResponseWriter, r *http.Request) {
	generator := feed.NewGenerator(s.config.GetBaseURL(), "feedwatch")
	opml, err := generator.GenerateOPML(s.store.Feeds())
	if err != nil {
		lgr.Printf("[ERROR] failed to generate OPML: %v", err)
		http.Error(w, "Failed to generate OPML", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/x-opml; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="feedwatch.opml"`)
	if _, err := w.Write([]byte(opml)); err != nil {
		lgr.Printf("[ERROR] failed to write OPML response: %v", err)
	}
}
