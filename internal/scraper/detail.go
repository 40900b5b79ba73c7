package scraper

import (
	"context"
	"fmt"

	"github.com/maltedev/falabella-scraper/internal/browser"
	"github.com/maltedev/falabella-scraper/internal/parser"
)

// fetchDetail opens link in an isolated page, reads the detail region and
// the fallback rating, and always closes the page and refocuses the listing.
func (e *Extractor) fetchDetail(ctx context.Context, listing browser.Page, link string) (*parser.DetailPage, error) {
	detail, err := listing.OpenIsolated(ctx, link)
	if err != nil {
		return nil, fmt.Errorf("failed to open detail page: %w", err)
	}
	defer func() {
		if err := detail.Close(); err != nil {
			e.logger.Debug("failed to close detail page", "link", link, "error", err)
		}
		if err := listing.BringToFront(); err != nil {
			e.logger.Debug("failed to refocus listing page", "error", err)
		}
	}()

	if err := detail.WaitForSelector("body", e.pacing.DetailTimeout); err != nil {
		return nil, fmt.Errorf("detail page did not render: %w", err)
	}

	if err := e.detailNap.Wait(ctx); err != nil {
		return nil, err
	}

	region := e.site.DetailRegionSelector
	if region != "" {
		if err := detail.WaitForSelector(region, e.pacing.DetailTimeout); err != nil {
			e.logger.Debug("detail region missing", "link", link, "error", err)
		}
	}

	html, err := detail.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read detail page: %w", err)
	}

	return parser.ParseDetailPage(html, region)
}
