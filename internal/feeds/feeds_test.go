package feeds

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/thinkscotty/apollo"
)

const testRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Example News</title>
  <link>https://example.com</link>
  <item>
    <title>Grid expansion approved</title>
    <link>https://example.com/grid</link>
    <guid>grid-1</guid>
    <pubDate>Mon, 04 Mar 2024 10:00:00 +0000</pubDate>
    <description><![CDATA[<p>The regulator <b>approved</b> the plan.</p><p>Work starts in May.</p>]]></description>
  </item>
  <item>
    <title>No guid here</title>
    <link>https://example.com/no-guid</link>
    <description>Plain description</description>
  </item>
  <item>
    <title></title>
    <description></description>
  </item>
</channel>
</rss>`

func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, testRSS)
	})
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head>
<link rel="stylesheet" href="/style.css">
<link rel="alternate" type="application/rss+xml" href="/feed.xml">
<link rel="alternate" type="application/atom+xml" href="/atom.xml">
</head><body>hi</body></html>`)
	})
	mux.HandleFunc("/plain", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head><title>none</title></head><body></body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchParsesItems(t *testing.T) {
	srv := newFeedServer(t)
	f := NewFetcher(nil, 0)

	articles, err := f.Fetch(context.Background(), srv.URL+"/feed.xml")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("got %d articles, want 2", len(articles))
	}

	first := articles[0]
	if first.ID != ArticleID("grid-1") {
		t.Errorf("ID = %q, want id derived from guid", first.ID)
	}
	if first.Headline != "Grid expansion approved" {
		t.Errorf("Headline = %q", first.Headline)
	}
	if want := "The regulator approved the plan.\nWork starts in May."; first.Content != want {
		t.Errorf("Content = %q, want %q", first.Content, want)
	}
	if first.URL != "https://example.com/grid" {
		t.Errorf("URL = %q", first.URL)
	}
	wantDate := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	if first.Date == nil || !first.Date.Equal(wantDate) {
		t.Errorf("Date = %v, want %v", first.Date, wantDate)
	}

	if articles[1].ID != ArticleID("https://example.com/no-guid") {
		t.Errorf("ID = %q, want id derived from link", articles[1].ID)
	}
	if articles[1].Date != nil {
		t.Errorf("Date = %v, want nil", articles[1].Date)
	}
}

func TestFetchRespectsMaxItems(t *testing.T) {
	srv := newFeedServer(t)
	f := NewFetcher(nil, 1)

	articles, err := f.Fetch(context.Background(), srv.URL+"/feed.xml")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(articles) != 1 {
		t.Errorf("got %d articles, want 1", len(articles))
	}
}

func TestFetchRejectsBadURL(t *testing.T) {
	f := NewFetcher(nil, 0)
	if _, err := f.Fetch(context.Background(), "ftp://example.com/feed"); err == nil {
		t.Fatal("expected error for non-http URL")
	}
}

func TestFetchNotFound(t *testing.T) {
	srv := newFeedServer(t)
	f := NewFetcher(nil, 0)
	if _, err := f.Fetch(context.Background(), srv.URL+"/missing"); err == nil {
		t.Fatal("expected error for missing feed")
	}
}

func TestArticleIDIsStable(t *testing.T) {
	a := ArticleID("https://example.com/a")
	if a != ArticleID("https://example.com/a") {
		t.Error("ArticleID is not deterministic")
	}
	if a == ArticleID("https://example.com/b") {
		t.Error("different keys share an id")
	}
	if len(a) != 32 {
		t.Errorf("len = %d, want 32", len(a))
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "   ", ""},
		{"plain", "just   text", "just text"},
		{"paragraphs", "<p>Hello <b>world</b></p><p>Second<br>line</p>", "Hello world\nSecond\nline"},
		{"script removed", "<p>kept</p><script>alert(1)</script><style>p{}</style>", "kept"},
		{"list", "<ul><li>one</li><li>two</li></ul>", "one\ntwo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlainText(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractURLs(t *testing.T) {
	text := `Read https://example.com/a and http://example.org/b.
Again https://example.com/a, and mailto:someone@example.com or example.net.`

	got, err := ExtractURLs(text)
	if err != nil {
		t.Fatalf("ExtractURLs: %v", err)
	}
	want := []string{"https://example.com/a", "http://example.org/b"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://example.com/feed", false},
		{"http://example.com", false},
		{"ftp://example.com", true},
		{"https://", true},
		{"not a url", true},
	}
	for _, tt := range tests {
		if err := ValidateURL(tt.url); (err != nil) != tt.wantErr {
			t.Errorf("ValidateURL(%q) = %v, wantErr %v", tt.url, err, tt.wantErr)
		}
	}
}

func TestDiscoverFeed(t *testing.T) {
	srv := newFeedServer(t)

	got, err := DiscoverFeed(context.Background(), srv.URL+"/page")
	if err != nil {
		t.Fatalf("DiscoverFeed: %v", err)
	}
	if want := srv.URL + "/feed.xml"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	got, err = DiscoverFeed(context.Background(), srv.URL+"/plain")
	if err != nil {
		t.Fatalf("DiscoverFeed: %v", err)
	}
	if got != "" {
		t.Errorf("got %q, want no feed", got)
	}
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		base, href, want string
	}{
		{"https://example.com/news/", "feed.xml", "https://example.com/news/feed.xml"},
		{"https://example.com/news/", "/rss", "https://example.com/rss"},
		{"https://example.com/", "https://other.example/atom", "https://other.example/atom"},
	}
	for _, tt := range tests {
		if got := resolveURL(tt.base, tt.href); got != tt.want {
			t.Errorf("resolveURL(%q, %q) = %q, want %q", tt.base, tt.href, got, tt.want)
		}
	}
}

func TestToClusteringArticles(t *testing.T) {
	in := []apollo.Article{
		{ID: "a", Headline: "Title", Content: "Body", URL: "https://example.com/a"},
		{ID: "b", Content: "A body without headline"},
	}

	got := ToClusteringArticles(in)
	if len(got) != 2 {
		t.Fatalf("got %d records", len(got))
	}
	if got[0].Identifier != "a" || got[0].Title != "Title" || got[0].URL != "https://example.com/a" {
		t.Errorf("got %+v", got[0])
	}
	if got[1].Title != "A body without headline" {
		t.Errorf("Title = %q, want content fallback", got[1].Title)
	}
}
