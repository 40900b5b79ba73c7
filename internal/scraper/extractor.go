package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/falabella-scraper/internal/browser"
	"github.com/maltedev/falabella-scraper/internal/models"
	"github.com/maltedev/falabella-scraper/internal/parser"
	"github.com/maltedev/falabella-scraper/internal/ratelimit"
)

// TitleStrategy is one way of finding a pod's title. Strategies are tried in
// order and the first non-empty answer wins.
type TitleStrategy interface {
	Title(pod *goquery.Selection) string
}

type TitleFunc func(pod *goquery.Selection) string

func (f TitleFunc) Title(pod *goquery.Selection) string {
	return f(pod)
}

// SelectorTitle reads the first matching structured title element.
func SelectorTitle(selectors []string) TitleStrategy {
	return TitleFunc(func(pod *goquery.Selection) string {
		return parser.FirstText(pod, selectors, nil)
	})
}

// ImageAltTitle reads the alt text of the pod image.
func ImageAltTitle(selector string) TitleStrategy {
	return TitleFunc(func(pod *goquery.Selection) string {
		alt, _ := pod.Find(selector).First().Attr("alt")
		return strings.Join(strings.Fields(alt), " ")
	})
}

// DescendantTextTitle takes the first descendant with any text.
func DescendantTextTitle(selectors []string) TitleStrategy {
	return TitleFunc(func(pod *goquery.Selection) string {
		return parser.FirstText(pod, selectors, nil)
	})
}

func DefaultTitleStrategies(site Site) []TitleStrategy {
	return []TitleStrategy{
		SelectorTitle(site.TitleSelectors),
		ImageAltTitle(site.ImageSelector),
		DescendantTextTitle(site.FallbackTextSelectors),
	}
}

func ResolveTitle(pod *goquery.Selection, strategies []TitleStrategy) string {
	for _, s := range strategies {
		if title := s.Title(pod); title != "" {
			return title
		}
	}
	return ""
}

// Extractor turns one listing pod into at most one committed record.
type Extractor struct {
	site          Site
	pacing        Pacing
	titles        []TitleStrategy
	enrichDetails bool
	itemNap       ratelimit.RateLimiter
	detailNap     ratelimit.RateLimiter
	logger        *slog.Logger

	Sinks    []Sink
	Metrics  *Metrics
	Progress *Progress
}

// NewExtractor builds an extractor. With enrichDetails the detail page is
// opened for every item; otherwise only for items whose listing has no rating.
func NewExtractor(site Site, pacing Pacing, enrichDetails bool, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		site:          site,
		pacing:        pacing,
		titles:        DefaultTitleStrategies(site),
		enrichDetails: enrichDetails,
		itemNap:       ratelimit.NewSimpleRateLimiter(pacing.ItemNapMin, pacing.ItemNapMax),
		detailNap:     ratelimit.NewSimpleRateLimiter(pacing.DetailNapMin, pacing.DetailNapMax),
		logger:        logger.With("component", "extractor"),
	}
}

// Extract returns the committed record for item, or nil when the item is
// skipped (no link, already seen, promotional). Errors are item level: the
// caller logs them and moves on.
func (e *Extractor) Extract(ctx context.Context, page browser.Page, item browser.Item, s *Session) (*models.ProductRecord, error) {
	link, err := item.Link()
	if err != nil {
		return nil, fmt.Errorf("failed to read item link: %w", err)
	}
	link = strings.TrimSpace(link)
	if link == "" {
		e.Metrics.IncSkipped("no_link")
		return nil, nil
	}
	if s.Run.Seen(link) {
		e.Metrics.IncSkipped("duplicate")
		return nil, nil
	}

	markup, err := item.HTML()
	if err != nil {
		return nil, fmt.Errorf("failed to read item markup: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse item markup: %w", err)
	}
	pod := doc.Selection

	title := ResolveTitle(pod, e.titles)
	if title != "" && parser.IsPromotionalTitle(title) {
		e.logger.Debug("promotional pod filtered", "category", s.Category, "title", title)
		e.Metrics.IncSkipped("promotional")
		return nil, nil
	}

	fields := models.RecordFields{
		Title:    title,
		Brand:    models.NotAvailable,
		Source:   e.site.Name,
		Category: s.Category,
		Image:    e.image(pod),
		Link:     link,
		Page:     s.Page,
		RunID:    s.Run.ID,
	}
	if title != "" {
		fields.Brand = parser.InferBrand(title)
		fields.Size = parser.SizeOrNil(title)
	}

	price := parser.NormalizePrice(parser.FirstText(pod, e.site.PriceSelectors, hasCurrency))
	fields.PriceText = price.Text
	fields.PriceValue = price.Value
	fields.Currency = price.Currency

	rating := e.listingRating(pod)

	if e.enrichDetails || rating == nil {
		detail, err := e.fetchDetail(ctx, page, link)
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			e.Metrics.IncDetail("failed")
			e.logger.Debug("detail page unavailable", "link", link, "error", err)
		default:
			e.Metrics.IncDetail("ok")
			if e.enrichDetails && detail.Details != "" {
				details := detail.Details
				fields.Details = &details
			}
			if rating == nil {
				rating = detail.Rating
			}
		}
	}
	fields.Rating = rating

	fields.GlobalSeq, fields.CategorySeq = s.nextSeq()
	rec := models.NewProductRecord(fields)

	if pricelessPromotion(rec) {
		e.logger.Debug("priceless promotional pod filtered", "category", s.Category, "title", rec.Title)
		e.Metrics.IncSkipped("promotional_no_price")
		return nil, nil
	}

	if err := s.commit(rec); err != nil {
		return nil, fmt.Errorf("failed to persist record: %w", err)
	}

	e.Metrics.IncRecord(rec.Category, rec.Status)
	e.Progress.AddRecord(rec.Category)
	e.logger.Debug("record accepted",
		"category", rec.Category,
		"page", rec.Page,
		"category_seq", rec.CategorySeq,
		"global_seq", rec.GlobalSeq,
		"brand", rec.Brand,
		"title", rec.Title,
		"price", rec.PriceText)

	if s.Run.aggregate != nil {
		if err := s.Run.aggregate.Append(rec); err != nil {
			e.logger.Warn("failed to append to aggregate log", "link", rec.Link, "error", err)
		}
	}
	e.publish(ctx, rec)

	_ = e.itemNap.Wait(ctx)

	return rec, nil
}

func (e *Extractor) publish(ctx context.Context, rec *models.ProductRecord) {
	for _, sink := range e.Sinks {
		if err := sink.Publish(ctx, rec); err != nil {
			e.Metrics.IncSinkError(sink.Name())
			e.logger.Warn("failed to mirror record", "sink", sink.Name(), "link", rec.Link, "error", err)
		}
	}
}

func (e *Extractor) image(pod *goquery.Selection) string {
	img := pod.Find(e.site.ImageSelector).First()
	for _, attr := range []string{"src", "data-src"} {
		if v, ok := img.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return models.NotAvailable
}

func (e *Extractor) listingRating(pod *goquery.Selection) *float64 {
	raw, ok := pod.Find(e.site.RatingSelector).First().Attr("data-rating")
	if !ok {
		return nil
	}
	return parser.ParseRating(raw)
}

// pricelessPromotion is the secondary banner filter applied before commit.
// Extract already drops promotional titles, so it only fires if that earlier
// screen is narrowed.
func pricelessPromotion(rec *models.ProductRecord) bool {
	return rec.PriceValue == nil && parser.IsPromotionalTitle(rec.Title)
}

func hasCurrency(text string) bool {
	return strings.Contains(text, "$")
}
