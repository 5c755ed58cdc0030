package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/thinkscotty/apollo"
	"github.com/thinkscotty/apollo/internal/models"
)

const (
	defaultConcurrency = 3
	defaultRunTimeout  = 10 * time.Minute
)

// Clusterer merges new articles into an existing clustering result.
type Clusterer interface {
	ContinuousClustering(ctx context.Context, newArticles []apollo.ArticleRef, present []apollo.ClusteringResultItem, opts apollo.ContinuousClusteringOptions) (*apollo.ContinuousClusteringResponse, error)
}

// Store holds the clustering result between runs.
type Store interface {
	LoadResult(ctx context.Context) ([]apollo.ClusteringResultItem, error)
	SaveResult(ctx context.Context, items []apollo.ClusteringResultItem) error
	MarkInvalid(ctx context.Context, ids []string) error
	InvalidIDs(ctx context.Context) (map[string]struct{}, error)
	LogRun(ctx context.Context, run models.Run) (string, error)
}

// Fetcher returns the current articles of one feed.
type Fetcher interface {
	Fetch(ctx context.Context, feedURL string) ([]apollo.Article, error)
}

type Options struct {
	Clustering apollo.ContinuousClusteringOptions
	// Concurrency caps parallel feed fetches. Defaults to 3.
	Concurrency int
	// RunTimeout bounds a scheduled run. Defaults to 10 minutes.
	RunTimeout time.Duration
}

type Scheduler struct {
	client  Clusterer
	store   Store
	fetcher Fetcher
	feeds   []string
	opts    Options
	log     *slog.Logger

	cron *cron.Cron
	mu   sync.Mutex // held for the duration of a run
}

func New(client Clusterer, store Store, fetcher Fetcher, feeds []string, opts Options, log *slog.Logger) *Scheduler {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = defaultRunTimeout
	}
	if log == nil {
		log = slog.Default()
	}

	return &Scheduler{
		client:  client,
		store:   store,
		fetcher: fetcher,
		feeds:   feeds,
		opts:    opts,
		log:     log,
		cron:    cron.New(cron.WithLocation(time.UTC)),
	}
}

// Start schedules RunOnce with a cron expression. Runs stop being scheduled
// once ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context, spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		if ctx.Err() != nil {
			return
		}
		runCtx, cancel := context.WithTimeout(ctx, s.opts.RunTimeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				s.log.ErrorContext(runCtx, "Panic in clustering run", "panic", r, "stack", string(debug.Stack()))
			}
		}()

		if _, err := s.RunOnce(runCtx); err != nil {
			s.log.ErrorContext(runCtx, "Clustering run failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("add schedule %q: %w", spec, err)
	}

	s.cron.Start()
	s.log.Info("Scheduler started", "schedule", spec, "feeds", len(s.feeds))
	return nil
}

// Stop stops scheduling and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("Scheduler stopped")
}

// RunOnce fetches all feeds, submits unseen articles for continuous clustering
// and stores the merged result. A run that starts while another is in
// progress is skipped.
func (s *Scheduler) RunOnce(ctx context.Context) (models.Run, error) {
	if !s.mu.TryLock() {
		s.log.DebugContext(ctx, "Clustering run already in progress, skipping")
		return models.Run{Status: models.RunStatusSkipped}, nil
	}
	defer s.mu.Unlock()

	start := time.Now()
	run := models.Run{}

	present, err := s.store.LoadResult(ctx)
	if err != nil {
		return s.failRun(ctx, run, start, models.ErrorTypeStore, fmt.Errorf("load result: %w", err))
	}
	invalid, err := s.store.InvalidIDs(ctx)
	if err != nil {
		return s.failRun(ctx, run, start, models.ErrorTypeStore, fmt.Errorf("load invalid ids: %w", err))
	}

	articles, fetched, err := s.fetchAll(ctx)
	run.FeedsFetched = fetched
	if err != nil {
		return s.failRun(ctx, run, start, models.ErrorTypeFeed, err)
	}

	newArticles := selectNew(articles, present, invalid)
	run.NewArticles = len(newArticles)
	run.ResultItems = len(present)

	if len(newArticles) == 0 {
		run.Status = models.RunStatusSkipped
		s.log.InfoContext(ctx, "No new articles to cluster", "feeds", fetched)
		return s.logRun(ctx, run, start)
	}

	resp, err := s.client.ContinuousClustering(ctx, newArticles, present, s.opts.Clustering)
	if err != nil {
		return s.failRun(ctx, run, start, errorType(err), err)
	}

	if err := s.store.SaveResult(ctx, resp.Result); err != nil {
		return s.failRun(ctx, run, start, models.ErrorTypeStore, fmt.Errorf("save result: %w", err))
	}

	invalidIDs := make([]string, 0, len(resp.InvalidArticles))
	for _, ref := range resp.InvalidArticles {
		if id := ref.ID(); id != "" {
			invalidIDs = append(invalidIDs, id)
		}
	}
	if err := s.store.MarkInvalid(ctx, invalidIDs); err != nil {
		return s.failRun(ctx, run, start, models.ErrorTypeStore, fmt.Errorf("mark invalid: %w", err))
	}

	run.Status = models.RunStatusSuccess
	run.ResultItems = len(resp.Result)
	run.InvalidCount = len(invalidIDs)

	s.log.InfoContext(ctx, "Clustering run complete",
		"new_articles", run.NewArticles,
		"result_items", run.ResultItems,
		"invalid", run.InvalidCount,
		"duration", time.Since(start))

	return s.logRun(ctx, run, start)
}

// fetchAll fetches every feed concurrently. A failing feed is logged and
// skipped; the run only fails when no feed could be fetched.
func (s *Scheduler) fetchAll(ctx context.Context) ([]apollo.Article, int, error) {
	if len(s.feeds) == 0 {
		return nil, 0, errors.New("no feeds configured")
	}

	results := make([][]apollo.Article, len(s.feeds))
	errs := make([]error, len(s.feeds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	for i, feedURL := range s.feeds {
		g.Go(func() error {
			articles, err := s.fetcher.Fetch(gctx, feedURL)
			if err != nil {
				s.log.WarnContext(gctx, "Failed to fetch feed", "feed", feedURL, "error", err)
				errs[i] = err
				return nil
			}
			results[i] = articles
			return nil
		})
	}
	g.Wait()

	var articles []apollo.Article
	fetched := 0
	for i := range s.feeds {
		if errs[i] != nil {
			continue
		}
		fetched++
		articles = append(articles, results[i]...)
	}

	if fetched == 0 {
		return nil, 0, fmt.Errorf("all %d feeds failed: %w", len(s.feeds), errors.Join(errs...))
	}
	return articles, fetched, nil
}

// selectNew drops articles already present in the result, already rejected by
// the service, or repeated within the batch.
func selectNew(articles []apollo.Article, present []apollo.ClusteringResultItem, invalid map[string]struct{}) []apollo.ArticleRef {
	seen := make(map[string]struct{}, len(present)+len(articles))
	for _, item := range present {
		if item.Article != nil {
			seen[item.Article.ID] = struct{}{}
		}
	}
	for id := range invalid {
		seen[id] = struct{}{}
	}

	var refs []apollo.ArticleRef
	for _, a := range articles {
		if a.ID == "" {
			continue
		}
		if _, ok := seen[a.ID]; ok {
			continue
		}
		seen[a.ID] = struct{}{}
		refs = append(refs, apollo.Full(a))
	}
	return refs
}

func (s *Scheduler) failRun(ctx context.Context, run models.Run, start time.Time, errType string, err error) (models.Run, error) {
	run.Status = models.RunStatusFailed
	run.ErrorType = errType
	run.ErrorMessage = err.Error()

	if _, logErr := s.logRun(ctx, run, start); logErr != nil {
		return run, errors.Join(err, logErr)
	}
	return run, err
}

func (s *Scheduler) logRun(ctx context.Context, run models.Run, start time.Time) (models.Run, error) {
	run.DurationMs = time.Since(start).Milliseconds()
	run.CreatedAt = time.Now().UTC()

	id, err := s.store.LogRun(context.WithoutCancel(ctx), run)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to log run", "error", err)
		return run, fmt.Errorf("log run: %w", err)
	}
	run.ID = id
	return run, nil
}

// errorType maps a client error to the run error type recorded for it.
func errorType(err error) string {
	var (
		transportErr *apollo.TransportError
		remoteErr    *apollo.RemoteError
		decodeErr    *apollo.DecodeError
		malformedErr *apollo.MalformedInputError
		duplicateErr *apollo.DuplicateArticleError
	)

	switch {
	case errors.As(err, &transportErr):
		return models.ErrorTypeTransport
	case errors.As(err, &remoteErr):
		return models.ErrorTypeRemote
	case errors.As(err, &decodeErr):
		return models.ErrorTypeDecode
	case errors.As(err, &malformedErr), errors.As(err, &duplicateErr), errors.Is(err, apollo.ErrInvalidArgument):
		return models.ErrorTypeInput
	}
	return models.ErrorTypeTransport
}
