package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/falabella-scraper/internal/browser"
	"github.com/maltedev/falabella-scraper/internal/catalog"
	"github.com/maltedev/falabella-scraper/internal/models"
	"github.com/maltedev/falabella-scraper/internal/parser"
	"github.com/maltedev/falabella-scraper/internal/ratelimit"
	"github.com/maltedev/falabella-scraper/internal/storage"
)

type pagerState int

const (
	stateFetching pagerState = iota
	stateExtracting
	stateAdvancing
	stateDone
)

func (s pagerState) String() string {
	switch s {
	case stateFetching:
		return "fetching"
	case stateExtracting:
		return "extracting"
	case stateAdvancing:
		return "advancing"
	default:
		return "done"
	}
}

// Reasons a category crawl stops.
const (
	EndNoNewRecords = "no new records"
	EndSinglePage   = "single page mode"
	EndMaxPages     = "max pages reached"
	EndNoNextButton = "no next page control"
	EndNoChange     = "page did not change after next"
	EndClickFailed  = "next page control failed"
)

type PaginatorOptions struct {
	OnePage         bool
	MaxPages        int
	NextPageTimeout time.Duration
	Retry           browser.RetryPolicy
}

// CategoryResult is what one category crawl produced.
type CategoryResult struct {
	Name      string
	Slug      string
	URL       string
	Pages     int
	Records   []*models.ProductRecord
	EndReason string
}

// Paginator walks one category from its entry URL until the results run out.
type Paginator struct {
	site      Site
	pacing    Pacing
	opts      PaginatorOptions
	store     *storage.Store
	traverser *Traverser
	pageNap   ratelimit.RateLimiter
	logger    *slog.Logger

	Metrics  *Metrics
	Progress *Progress
}

func NewPaginator(site Site, pacing Pacing, opts PaginatorOptions, store *storage.Store, traverser *Traverser, logger *slog.Logger) *Paginator {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.NextPageTimeout <= 0 {
		opts.NextPageTimeout = 15 * time.Second
	}
	return &Paginator{
		site:      site,
		pacing:    pacing,
		opts:      opts,
		store:     store,
		traverser: traverser,
		pageNap:   ratelimit.NewSimpleRateLimiter(pacing.PageNapMin, pacing.PageNapMax),
		logger:    logger.With("component", "paginator"),
	}
}

// Crawl loads target and extracts page after page. The category's snapshot
// is written when the crawl ends, also when it ends with an error.
func (p *Paginator) Crawl(ctx context.Context, page browser.Page, run *Run, target catalog.Target) (result *CategoryResult, err error) {
	result = &CategoryResult{Name: target.Name, URL: target.URL}

	var s *Session
	defer func() {
		if s == nil {
			return
		}
		result.Records = s.Records()
		if snapErr := s.Log.WriteSnapshot(s.Records()); snapErr != nil {
			p.logger.Warn("failed to write category snapshot", "category", s.Category, "error", snapErr)
		}
	}()

	state := stateFetching
	for state != stateDone {
		p.logger.Debug("pagination state", "category", result.Name, "state", state, "page", result.Pages)

		switch state {
		case stateFetching:
			if err := browser.NavigateWithRetry(ctx, page, target.URL, p.opts.Retry); err != nil {
				return result, fmt.Errorf("failed to load category: %w", err)
			}
			if err := page.WaitForSelector(p.site.ContainerSelector, p.opts.NextPageTimeout); err != nil {
				p.logger.Debug("results container not found", "url", target.URL, "error", err)
			}
			_ = p.pageNap.Wait(ctx)

			if result.Name == "" {
				html, _ := page.Content()
				result.Name = parser.CategoryLabel(html, page.URL())
			}

			log, err := p.store.Open(result.Name)
			if err != nil {
				return result, err
			}
			result.Slug = log.Slug
			s = NewSession(run, result.Name, log)

			p.logger.Info("category started", "category", result.Name, "url", target.URL, "slug", log.Slug)
			state = stateExtracting

		case stateExtracting:
			p.Progress.SetPage(s.Page)
			result.Pages = s.Page

			records, err := p.traverser.ExtractPage(ctx, page, s)
			if err != nil {
				return result, fmt.Errorf("page %d: %w", s.Page, err)
			}
			p.Metrics.IncPage()
			p.logger.Info("page extracted", "category", s.Category, "page", s.Page, "new", len(records), "total", s.Count())

			switch {
			case len(records) == 0:
				result.EndReason = EndNoNewRecords
				state = stateDone
			case p.opts.OnePage:
				result.EndReason = EndSinglePage
				state = stateDone
			case p.opts.MaxPages > 0 && s.Page >= p.opts.MaxPages:
				result.EndReason = EndMaxPages
				state = stateDone
			default:
				state = stateAdvancing
			}

		case stateAdvancing:
			if reason, moved := p.advance(ctx, page); !moved {
				result.EndReason = reason
				state = stateDone
				break
			}
			s.Page++
			_ = p.pageNap.Wait(ctx)
			state = stateExtracting
		}

		if err := ctx.Err(); err != nil {
			return result, err
		}
	}

	p.logger.Info("pagination ended",
		"category", result.Name,
		"pages", result.Pages,
		"records", s.Count(),
		"reason", result.EndReason)

	return result, nil
}

// advance clicks the next page control and waits for the listing to change.
// A missing control and a click that changes nothing both end the category;
// the reason tells them apart in the logs.
func (p *Paginator) advance(ctx context.Context, page browser.Page) (string, bool) {
	if err := page.ScrollToBottom(); err != nil {
		p.logger.Debug("failed to scroll to pagination", "error", err)
	}
	_ = p.pageNap.Wait(ctx)

	first, err := page.FirstItem(p.site.ItemSelector)
	if err != nil {
		first = nil
	}
	prevURL := page.URL()

	clicked, err := page.ClickNext(p.site.NextPageSelectors)
	if err != nil {
		p.logger.Warn("next page click failed", "error", err)
		return EndClickFailed, false
	}
	if !clicked {
		return EndNoNextButton, false
	}

	if err := page.WaitForChange(p.site.ContainerSelector, first, prevURL, p.opts.NextPageTimeout); err != nil {
		p.logger.Warn("next page did not load, treating as last page", "url", prevURL, "error", err)
		return EndNoChange, false
	}

	return "", true
}
