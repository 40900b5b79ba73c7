package scraper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maltedev/falabella-scraper/internal/browser"
	"github.com/maltedev/falabella-scraper/internal/models"
	"github.com/maltedev/falabella-scraper/internal/ratelimit"
)

// Traverser drives lazy loading on one result page and then runs the
// extractor over every pod that rendered.
type Traverser struct {
	site      Site
	pacing    Pacing
	extractor *Extractor
	logger    *slog.Logger

	Metrics *Metrics
}

func NewTraverser(site Site, pacing Pacing, extractor *Extractor, logger *slog.Logger) *Traverser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Traverser{
		site:      site,
		pacing:    pacing,
		extractor: extractor,
		logger:    logger.With("component", "traverser"),
	}
}

// ScrollUntilStable scrolls until neither the pod count nor the document height
// changes for StableRounds consecutive rounds, or MaxScrolls rounds have run.
// It returns the last observed pod count.
func (t *Traverser) ScrollUntilStable(ctx context.Context, page browser.Page) (int, error) {
	threshold := t.pacing.StableRounds
	if threshold < 1 {
		threshold = 1
	}
	maxScrolls := t.pacing.MaxScrolls
	if maxScrolls < 1 {
		maxScrolls = DefaultPacing().MaxScrolls
	}

	lastHeight, err := page.DocumentHeight()
	if err != nil {
		return 0, fmt.Errorf("failed to measure page: %w", err)
	}

	seen, stagnant, rounds := 0, 0, 0
	for stagnant < threshold && rounds < maxScrolls {
		if err := page.ScrollBy(t.pacing.ScrollStep); err != nil {
			return seen, fmt.Errorf("failed to scroll: %w", err)
		}
		rounds++

		if err := ratelimit.Sleep(ctx, t.pacing.ScrollPause); err != nil {
			return seen, err
		}

		count, err := page.CountItems(t.site.ItemSelector)
		if err != nil {
			count = seen
		}
		height, err := page.DocumentHeight()
		if err != nil {
			height = lastHeight
		}

		if count == seen && height == lastHeight {
			stagnant++
			continue
		}
		stagnant = 0
		seen = count
		lastHeight = height
	}

	if stagnant < threshold {
		t.logger.Warn("scroll limit reached before the page settled", "rounds", rounds, "items", seen)
	}
	t.Metrics.ObserveScrolls(rounds)

	return seen, nil
}

// ExtractPage loads the whole page and returns the records it accepted. Item
// errors are logged and skipped; only cancellation and page-level failures
// are returned.
func (t *Traverser) ExtractPage(ctx context.Context, page browser.Page, s *Session) ([]*models.ProductRecord, error) {
	if _, err := t.ScrollUntilStable(ctx, page); err != nil {
		return nil, err
	}

	items, err := page.Items(t.site.ItemSelector)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	t.logger.Info("pods detected", "category", s.Category, "page", s.Page, "count", len(items))

	var records []*models.ProductRecord
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return records, err
		}

		rec, err := t.extractor.Extract(ctx, page, item, s)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return records, ctxErr
			}
			t.Metrics.IncSkipped("error")
			t.logger.Debug("item skipped", "category", s.Category, "page", s.Page, "index", i+1, "error", err)
			continue
		}
		if rec != nil {
			records = append(records, rec)
		}
	}

	return records, nil
}
