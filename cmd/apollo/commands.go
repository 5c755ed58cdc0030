package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/thinkscotty/apollo"
	"github.com/thinkscotty/apollo/internal/config"
	"github.com/thinkscotty/apollo/internal/feeds"
	"github.com/thinkscotty/apollo/internal/scheduler"
	"github.com/thinkscotty/apollo/internal/store"
)

func newClient(cfg config.Config) (*apollo.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return apollo.New(cfg.API.Key,
		apollo.WithBaseURL(cfg.API.BaseURL),
		apollo.WithTimeout(cfg.Timeout()),
		apollo.WithDebug(cfg.API.Debug),
		apollo.WithLogger(slog.Default()),
	)
}

func continuousOptions(cfg config.Config) apollo.ContinuousClusteringOptions {
	opts := apollo.ContinuousClusteringOptions{
		Keywords:  cfg.Clustering.Keywords,
		Threshold: apollo.Float(cfg.Clustering.Threshold),
		Language:  apollo.Language(cfg.Clustering.Language),
	}
	if cfg.Clustering.AbstractMaxChars > 0 {
		opts.AbstractMaxChars = apollo.Int(cfg.Clustering.AbstractMaxChars)
	}
	return opts
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readInput reads a file, or stdin when path is "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

type linkAbstract struct {
	URL       string   `json:"url"`
	Sentences []string `json:"sentences,omitempty"`
	Error     string   `json:"error,omitempty"`
}

func runAbstract(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("abstract", flag.ExitOnError)
	file := fs.String("file", "", "Text file to summarize (- for stdin)")
	headline := fs.String("headline", "", "Headline of the text")
	pageURL := fs.String("url", "", "Summarize the page at this URL")
	links := fs.String("links", "", "Summarize every URL found in this file")
	maxChars := fs.Int("max-chars", 0, "Maximum abstract length in characters")
	maxSentences := fs.Int("max-sentences", 0, "Maximum abstract length in sentences")
	keywords := fs.String("keywords", "", "Comma-separated keywords to favor")
	fs.Parse(args)

	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	opts := apollo.AbstractOptions{
		MaxCharacters: *maxChars,
		MaxSentences:  *maxSentences,
		Keywords:      splitList(*keywords),
		Debug:         cfg.API.Debug,
	}

	switch {
	case *links != "":
		data, err := readInput(*links)
		if err != nil {
			return fmt.Errorf("read links: %w", err)
		}
		urls, err := feeds.ExtractURLs(string(data))
		if err != nil {
			return err
		}
		if len(urls) == 0 {
			return errors.New("no URLs found")
		}

		results := make([]linkAbstract, len(urls))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(3)
		for i, u := range urls {
			g.Go(func() error {
				results[i].URL = u
				resp, err := client.AutoabstractFromURL(gctx, u, opts)
				if err != nil {
					slog.Warn("Failed to summarize link", "url", u, "error", err)
					results[i].Error = err.Error()
					return nil
				}
				results[i].Sentences = resp.Sentences
				return nil
			})
		}
		g.Wait()
		return writeJSON(results)

	case *pageURL != "":
		if err := feeds.ValidateURL(*pageURL); err != nil {
			return err
		}
		resp, err := client.AutoabstractFromURL(ctx, *pageURL, opts)
		if err != nil {
			return err
		}
		return writeJSON(resp)

	case *file != "":
		data, err := readInput(*file)
		if err != nil {
			return fmt.Errorf("read text: %w", err)
		}
		resp, err := client.Autoabstract(ctx, *headline, string(data), opts)
		if err != nil {
			return err
		}
		return writeJSON(resp)
	}

	return errors.New("one of -file, -url or -links is required")
}

func runCluster(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("cluster", flag.ExitOnError)
	file := fs.String("file", "", "JSON file with an array of articles (- for stdin)")
	feedList := fs.String("feed", "", "Comma-separated feed URLs to cluster instead of a file")
	threshold := fs.Float64("threshold", cfg.Clustering.Threshold, "Similarity threshold in [0,1]")
	language := fs.String("language", cfg.Clustering.Language, "Processing language (en or de)")
	fs.Parse(args)

	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	var articles []apollo.ClusteringArticle
	switch {
	case *file != "":
		data, err := readInput(*file)
		if err != nil {
			return fmt.Errorf("read articles: %w", err)
		}
		if err := json.Unmarshal(data, &articles); err != nil {
			return fmt.Errorf("parse articles: %w", err)
		}
	case *feedList != "":
		fetcher := feeds.NewFetcher(slog.Default(), cfg.Feeds.MaxItems)
		for _, u := range splitList(*feedList) {
			items, err := fetcher.Fetch(ctx, u)
			if err != nil {
				return err
			}
			articles = append(articles, feeds.ToClusteringArticles(items)...)
		}
	default:
		return errors.New("one of -file or -feed is required")
	}

	resp, err := client.Clustering(ctx, articles, apollo.ClusteringOptions{
		Threshold: threshold,
		Language:  apollo.Language(*language),
	})
	if err != nil {
		return err
	}
	return writeJSON(resp)
}

func runContinuous(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("continuous", flag.ExitOnError)
	file := fs.String("file", "", "JSON file with an array of new articles or article ids (- for stdin)")
	save := fs.Bool("save", true, "Store the merged result")
	fs.Parse(args)

	if *file == "" {
		return errors.New("-file is required")
	}

	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	data, err := readInput(*file)
	if err != nil {
		return fmt.Errorf("read new articles: %w", err)
	}
	var newArticles []apollo.ArticleRef
	if err := json.Unmarshal(data, &newArticles); err != nil {
		return fmt.Errorf("parse new articles: %w", err)
	}

	st, err := store.New(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	present, err := st.LoadResult(ctx)
	if err != nil {
		return fmt.Errorf("load result: %w", err)
	}

	resp, err := client.ContinuousClustering(ctx, newArticles, present, continuousOptions(cfg))
	if err != nil {
		return err
	}

	if *save {
		if err := st.SaveResult(ctx, resp.Result); err != nil {
			return fmt.Errorf("save result: %w", err)
		}
		if err := st.MarkInvalid(ctx, invalidIDs(resp.InvalidArticles)); err != nil {
			return fmt.Errorf("mark invalid: %w", err)
		}
	}
	return writeJSON(resp)
}

// invalidIDs returns the identities of rejected articles. Entries without an
// identity are dropped.
func invalidIDs(refs []apollo.ArticleRef) []string {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		if id := ref.ID(); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func runWatch(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	now := fs.Bool("now", true, "Run once immediately before waiting for the schedule")
	fs.Parse(args)

	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	if len(cfg.Feeds.URLs) == 0 {
		return errors.New("no feeds configured (set feeds.urls or APOLLO_FEEDS)")
	}

	st, err := store.New(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	slog.Info("Starting Apollo watcher", "version", version, "database", cfg.Database.Path)

	fetcher := feeds.NewFetcher(slog.Default(), cfg.Feeds.MaxItems)
	sched := scheduler.New(client, st, fetcher, cfg.Feeds.URLs, scheduler.Options{
		Clustering: continuousOptions(cfg),
	}, slog.Default())

	if *now {
		if _, err := sched.RunOnce(ctx); err != nil {
			slog.Error("Initial clustering run failed", "error", err)
		}
	}

	if err := sched.Start(ctx, cfg.Schedule.Spec); err != nil {
		return err
	}

	<-ctx.Done()
	slog.Info("Shutting down...")
	sched.Stop()
	return nil
}

func runRuns(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	limit := fs.Int("n", 20, "Number of runs to show")
	fs.Parse(args)

	st, err := store.New(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.RecentRuns(ctx, *limit)
	if err != nil {
		return err
	}
	stats, err := st.GetStats(ctx)
	if err != nil {
		return err
	}

	return writeJSON(map[string]any{
		"runs":  runs,
		"stats": stats,
	})
}

func runDiscover(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: apollo discover <page-url>")
	}

	feedURL, err := feeds.DiscoverFeed(ctx, args[0])
	if err != nil {
		return err
	}
	if feedURL == "" {
		return fmt.Errorf("no feed advertised on %s", args[0])
	}
	fmt.Println(feedURL)
	return nil
}
