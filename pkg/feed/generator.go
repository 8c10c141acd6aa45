package feed

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/umputun/feedwatch/pkg/domain"
)

// Generator renders the merged post set back as feeds
type Generator struct {
	baseURL string
	title   string
}

// NewGenerator creates a new feed generator
func NewGenerator(baseURL, title string) *Generator {
	if title == "" {
		title = "feedwatch"
	}
	return &Generator{
		baseURL: strings.TrimRight(baseURL, "/"),
		title:   title,
	}
}

// GenerateRSS renders posts, in the given order, as RSS 2.0.
// Each item is categorized by the title of its feed, if known.
func (g *Generator) GenerateRSS(posts []domain.Post, feeds []domain.Feed) (string, error) {
	feedTitles := make(map[string]string, len(feeds))
	for _, f := range feeds {
		feedTitles[f.ID] = f.Title
	}

	items := make([]Item, 0, len(posts))
	for _, p := range posts {
		item := Item{Title: p.Title, Link: p.Link, GUID: p.ID, Description: p.Description, Category: feedTitles[p.FeedID]}
		if !p.Published.IsZero() {
			item.PubDate = p.Published.Format(time.RFC1123Z)
		}
		items = append(items, item)
	}

	feed := RSS{
		Version:   "2.0",
		AtomXMLNS: "http://www.w3.org/2005/Atom",
		Channel: &Channel{
			Title:         g.title,
			Link:          g.baseURL + "/",
			Description:   fmt.Sprintf("%d posts from %d feeds", len(posts), len(feeds)),
			Self:          &SelfLink{Href: g.baseURL + "/rss", Rel: "self", Type: "application/rss+xml"},
			LastBuildDate: time.Now().Format(time.RFC1123Z),
			Items:         items,
		},
	}

	output, err := xml.MarshalIndent(feed, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal RSS: %w", err)
	}
	return xml.Header + string(output), nil
}

// GenerateOPML creates an OPML document with feed subscriptions
func (g *Generator) GenerateOPML(feeds []domain.Feed) (string, error) {
	outlines := make([]Outline, 0, len(feeds))
	for _, f := range feeds {
		text := f.Title
		if text == "" {
			text = f.URL
		}
		outlines = append(outlines, Outline{Text: text, Title: text, Type: "rss", XMLURL: f.URL, HTMLURL: f.Link})
	}

	doc := OPML{
		Version: "2.0",
		Head:    OPMLHead{Title: g.title + " subscriptions", DateCreated: time.Now().Format(time.RFC1123Z)},
		Outline: outlines,
	}

	output, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal OPML: %w", err)
	}
	return xml.Header + string(output), nil
}
