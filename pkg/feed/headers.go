package feed

import "net/http"

// feedAccept asks for feed formats first, html is accepted so that errors are readable
const feedAccept = "application/rss+xml,application/atom+xml,application/xml;q=0.9,text/xml;q=0.8,text/html;q=0.7,*/*;q=0.5"

// setRequestHeaders adds headers used for both direct and relayed feed fetching
func setRequestHeaders(req *http.Request, userAgent string) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", feedAccept)
	// feeds change often, intermediate caches serve stale items
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
}
