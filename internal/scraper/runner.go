package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/falabella-scraper/internal/browser"
	"github.com/maltedev/falabella-scraper/internal/catalog"
	"github.com/maltedev/falabella-scraper/internal/queue"
	"github.com/maltedev/falabella-scraper/internal/ratelimit"
	"github.com/maltedev/falabella-scraper/internal/storage"
)

type Options struct {
	MaxCategories   int
	OnePage         bool
	MaxPages        int
	Fast            bool
	Aggregate       bool
	MaxRetries      int
	NextPageTimeout time.Duration
}

// CategoryFailure records a category that was skipped after an error.
type CategoryFailure struct {
	Name string
	URL  string
	Err  error
}

type Summary struct {
	RunID      string
	Categories []*CategoryResult
	Failed     []CategoryFailure
	Records    int
	Duration   time.Duration
}

// Runner crawls categories one after another on a single listing page.
type Runner struct {
	Store    *storage.Store
	Site     Site
	Pacing   Pacing
	Options  Options
	Sinks    []Sink
	Metrics  *Metrics
	Progress *Progress
	Logger   *slog.Logger
}

func NewRunner(store *storage.Store, opts Options, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	pacing := DefaultPacing()
	if opts.Fast {
		pacing = FastPacing()
	}
	return &Runner{
		Store:   store,
		Site:    FalabellaSite(),
		Pacing:  pacing,
		Options: opts,
		Logger:  logger,
	}
}

// Run crawls targets in order. A failing category is logged and skipped;
// only cancellation and output setup errors end the run early.
func (r *Runner) Run(ctx context.Context, page browser.Page, run *Run, targets []catalog.Target) (*Summary, error) {
	logger := r.Logger.With("component", "runner", "run_id", run.ID)
	started := time.Now()

	targets = catalog.Limit(targets, r.Options.MaxCategories)
	r.Progress.Plan(len(targets))
	defer r.Progress.Finish()

	if r.Options.Aggregate {
		agg, err := r.Store.OpenAggregate()
		if err != nil {
			return nil, fmt.Errorf("failed to open aggregate output: %w", err)
		}
		run.aggregate = agg
	}

	tasks := queue.NewInMemoryQueue()
	for i, t := range targets {
		if err := tasks.Push(&queue.Task{
			ID:       fmt.Sprintf("category-%d", i+1),
			Category: t.Name,
			URL:      t.URL,
		}); err != nil {
			return nil, err
		}
	}
	tasks.Close()

	paginator := r.paginator()
	categoryNap := ratelimit.NewSimpleRateLimiter(r.Pacing.PageNapMin, r.Pacing.PageNapMax)
	summary := &Summary{RunID: run.ID}

	logger.Info("run started", "categories", len(targets), "one_page", r.Options.OnePage, "max_pages", r.Options.MaxPages, "fast", r.Options.Fast)

	var runErr error
	for {
		task, err := tasks.Pop(ctx)
		if errors.Is(err, queue.ErrQueueClosed) || errors.Is(err, queue.ErrQueueEmpty) {
			break
		}
		if err != nil {
			runErr = err
			break
		}

		target := catalog.Target{Name: task.Category, URL: task.URL}
		r.Progress.StartCategory(target.Name)

		result, err := paginator.Crawl(ctx, page, run, target)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				r.Progress.FinishCategory(target.Name, ctxErr)
				runErr = ctxErr
				break
			}
			logger.Warn("category failed, skipping", "category", target.Name, "url", target.URL, "error", err)
			r.Metrics.IncCategory("failed")
			r.Progress.FinishCategory(target.Name, err)
			summary.Failed = append(summary.Failed, CategoryFailure{Name: target.Name, URL: target.URL, Err: err})
			continue
		}

		r.Metrics.IncCategory("ok")
		r.Progress.FinishCategory(target.Name, nil)
		summary.Categories = append(summary.Categories, result)
		logger.Info("category done", "category", result.Name, "records", len(result.Records), "pages", result.Pages, "run_total", run.Total())

		if tasks.Size() > 0 {
			_ = categoryNap.Wait(ctx)
		}
	}

	if run.aggregate != nil {
		if err := run.aggregate.WriteSnapshot(run.Records()); err != nil {
			logger.Warn("failed to write aggregate snapshot", "error", err)
		}
	}

	summary.Records = run.Total()
	summary.Duration = time.Since(started)

	logger.Info("run finished",
		"records", summary.Records,
		"categories", len(summary.Categories),
		"failed", len(summary.Failed),
		"duration", summary.Duration.Round(time.Millisecond))

	return summary, runErr
}

func (r *Runner) paginator() *Paginator {
	extractor := NewExtractor(r.Site, r.Pacing, !r.Options.Fast, r.Logger)
	extractor.Sinks = r.Sinks
	extractor.Metrics = r.Metrics
	extractor.Progress = r.Progress

	traverser := NewTraverser(r.Site, r.Pacing, extractor, r.Logger)
	traverser.Metrics = r.Metrics

	retry := browser.DefaultRetryPolicy()
	retry.Logger = r.Logger
	if r.Options.MaxRetries > 0 {
		retry.MaxRetries = r.Options.MaxRetries
	}
	retry.OnRetry = r.Metrics.IncRetries

	paginator := NewPaginator(r.Site, r.Pacing, PaginatorOptions{
		OnePage:         r.Options.OnePage,
		MaxPages:        r.Options.MaxPages,
		NextPageTimeout: r.Options.NextPageTimeout,
		Retry:           retry,
	}, r.Store, traverser, r.Logger)
	paginator.Metrics = r.Metrics
	paginator.Progress = r.Progress

	return paginator
}
