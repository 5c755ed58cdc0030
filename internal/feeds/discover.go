package feeds

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
)

// DiscoverFeed checks a web page for RSS/Atom feed <link> tags.
// Returns the feed URL if found, or empty string if none discovered.
func DiscoverFeed(ctx context.Context, pageURL string) (string, error) {
	if err := ValidateURL(pageURL); err != nil {
		return "", err
	}

	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.MaxDepth(0),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(10 * time.Second)

	var feedURL string
	var visitErr error
	var mu sync.Mutex

	c.OnHTML(`link[rel="alternate"]`, func(e *colly.HTMLElement) {
		mu.Lock()
		defer mu.Unlock()
		if feedURL != "" {
			return
		}
		typ := strings.ToLower(e.Attr("type"))
		if typ == "application/rss+xml" || typ == "application/atom+xml" {
			if href := e.Attr("href"); href != "" {
				feedURL = resolveURL(pageURL, href)
			}
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		mu.Lock()
		defer mu.Unlock()
		visitErr = fmt.Errorf("discover feed on %s: %w (status: %d)", pageURL, err, r.StatusCode)
	})

	if err := c.Visit(pageURL); err != nil && visitErr == nil {
		return "", fmt.Errorf("visit %s: %w", pageURL, err)
	}
	c.Wait()

	mu.Lock()
	defer mu.Unlock()
	if visitErr != nil {
		return "", visitErr
	}
	return feedURL, nil
}

// resolveURL resolves a potentially relative href against a base URL.
func resolveURL(base, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}

	ref, err := url.Parse(href)
	if err != nil {
		return href
	}

	return baseURL.ResolveReference(ref).String()
}
