package feed

import (
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html/charset"

	"github.com/umputun/feedwatch/pkg/domain"
)

// Parser turns raw RSS/Atom payloads into parsed feeds.
// It does no I/O and is safe for concurrent use.
type Parser struct {
	policy *bluemonday.Policy
}

// NewParser creates a new feed parser
func NewParser() *Parser {
	return &Parser{policy: bluemonday.StrictPolicy()}
}

// Parse parses raw feed xml. Returns *domain.ParseError with ParseMalformed if the payload
// is not xml at all and with ParseNotAFeed if it is xml but not a recognizable feed.
func (p *Parser) Parse(raw string) (*domain.ParsedFeed, error) {
	hasChannel, err := checkWellFormed(raw)
	if err != nil {
		return nil, &domain.ParseError{Kind: domain.ParseMalformed, Err: err}
	}
	if !hasChannel {
		return nil, &domain.ParseError{Kind: domain.ParseNotAFeed, Err: errors.New("no channel or feed element")}
	}

	// gofeed parsers keep per-document state, a fresh one per call keeps Parse reentrant
	feed, err := gofeed.NewParser().ParseString(raw)
	if err != nil {
		if errors.Is(err, gofeed.ErrFeedTypeNotDetected) {
			return nil, &domain.ParseError{Kind: domain.ParseNotAFeed, Err: err}
		}
		return nil, &domain.ParseError{Kind: domain.ParseMalformed, Err: err}
	}

	result := &domain.ParsedFeed{
		Title:       strings.TrimSpace(feed.Title),
		Description: p.plainText(feed.Description),
		Link:        strings.TrimSpace(feed.Link),
		Posts:       make([]domain.Post, 0, len(feed.Items)),
	}

	base, _ := url.Parse(result.Link)
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		link := itemLink(item, base)
		if link == "" {
			continue // no de-duplication key, can't be merged safely
		}

		post := domain.Post{
			Title:       strings.TrimSpace(item.Title),
			Link:        link,
			Description: p.plainText(item.Description),
		}
		if post.Description == "" {
			post.Description = p.plainText(item.Content)
		}

		// set published time
		if item.PublishedParsed != nil {
			post.Published = item.PublishedParsed.UTC()
		} else if item.UpdatedParsed != nil {
			post.Published = item.UpdatedParsed.UTC()
		}

		result.Posts = append(result.Posts, post)
	}

	return result, nil
}

// plainText strips markup from feed-provided html
func (p *Parser) plainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(p.policy.Sanitize(s)))
}

// itemLink returns an absolute link for the item or empty string if nothing usable found
func itemLink(item *gofeed.Item, base *url.URL) string {
	candidates := append([]string{item.Link}, item.Links...)
	candidates = append(candidates, item.GUID) // rss guid is often a permalink
	for i, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		u, err := url.Parse(c)
		if err != nil {
			continue
		}
		if u.IsAbs() && u.Host != "" {
			return u.String()
		}
		isGUID := i == len(candidates)-1
		if !isGUID && base != nil && base.IsAbs() {
			return base.ResolveReference(u).String()
		}
	}
	return ""
}

// checkWellFormed makes sure the payload is an xml document with a root element and reports
// whether it has a feed container, rss/rdf "channel" or atom "feed".
// Decoding is not strict, unknown html entities and unclosed void tags are common in feeds.
func checkWellFormed(raw string) (hasChannel bool, err error) {
	dec := xml.NewDecoder(strings.NewReader(strings.TrimPrefix(raw, "\ufeff")))
	dec.Strict = false
	dec.Entity = xml.HTMLEntity
	dec.CharsetReader = charset.NewReaderLabel

	hasRoot := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return false, fmt.Errorf("decode xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			hasRoot = true
			if name := strings.ToLower(t.Name.Local); name == "channel" || name == "feed" {
				hasChannel = true
			}
		case xml.CharData:
			if !hasRoot && strings.TrimSpace(string(t)) != "" {
				return false, errors.New("text outside of root element")
			}
		}
	}
	if !hasRoot {
		return false, errors.New("no root element")
	}
	return hasChannel, nil
}
