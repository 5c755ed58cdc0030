package feeds

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/crypto/blake2b"

	"github.com/thinkscotty/apollo"
)

const (
	userAgent      = "Apollo/1.0 (Feed Reader; +https://github.com/thinkscotty/apollo)"
	requestTimeout = 20 * time.Second
)

// Fetcher turns RSS and Atom feeds into articles.
type Fetcher struct {
	parser   *gofeed.Parser
	log      *slog.Logger
	maxItems int
}

// NewFetcher creates a Fetcher. maxItems <= 0 keeps every item of a feed.
func NewFetcher(log *slog.Logger, maxItems int) *Fetcher {
	if log == nil {
		log = slog.Default()
	}

	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	parser.Client = &http.Client{Timeout: requestTimeout}

	return &Fetcher{parser: parser, log: log, maxItems: maxItems}
}

// Fetch downloads feedURL and returns its items as articles, newest first as
// the feed orders them. Items without any text are skipped.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) ([]apollo.Article, error) {
	if err := ValidateURL(feedURL); err != nil {
		return nil, err
	}

	parsed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %q: %w", feedURL, err)
	}

	articles := make([]apollo.Article, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if f.maxItems > 0 && len(articles) >= f.maxItems {
			break
		}

		a, ok := articleFromItem(item)
		if !ok {
			f.log.WarnContext(ctx, "Skipping feed item without content",
				"feed", feedURL, "title", item.Title, "link", item.Link)
			continue
		}
		articles = append(articles, a)
	}

	return articles, nil
}

func articleFromItem(item *gofeed.Item) (apollo.Article, bool) {
	body := item.Content
	if strings.TrimSpace(body) == "" {
		body = item.Description
	}
	content := PlainText(body)
	headline := cleanText(item.Title)
	if content == "" {
		content = headline
	}
	if content == "" {
		return apollo.Article{}, false
	}

	key := strings.TrimSpace(item.GUID)
	if key == "" {
		key = strings.TrimSpace(item.Link)
	}
	if key == "" {
		key = headline + "\n" + content
	}

	a := apollo.Article{
		ID:       ArticleID(key),
		Headline: headline,
		Content:  content,
		URL:      strings.TrimSpace(item.Link),
	}
	if item.PublishedParsed != nil {
		t := item.PublishedParsed.UTC()
		a.Date = &t
	} else if item.UpdatedParsed != nil {
		t := item.UpdatedParsed.UTC()
		a.Date = &t
	}

	return a, true
}

// ArticleID derives a stable article identity from a GUID or link.
func ArticleID(key string) string {
	sum := blake2b.Sum256([]byte(key))
	return hex.EncodeToString(sum[:16])
}

// ToClusteringArticles converts articles into the record shape of the batch
// clustering endpoint. Articles without a headline use the start of their content.
func ToClusteringArticles(articles []apollo.Article) []apollo.ClusteringArticle {
	out := make([]apollo.ClusteringArticle, 0, len(articles))
	for _, a := range articles {
		title := a.Headline
		if title == "" {
			title = truncate(a.Content, 80)
		}
		out = append(out, apollo.ClusteringArticle{
			Identifier: a.ID,
			Title:      title,
			Content:    a.Content,
			URL:        a.URL,
			Date:       a.Date,
		})
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
