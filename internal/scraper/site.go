package scraper

import "time"

// Site holds the markup hooks of one storefront. Only the crawler reads it, so
// a layout change on the site is a change to this file alone.
type Site struct {
	Name string

	ContainerSelector string
	ItemSelector      string

	TitleSelectors []string
	ImageSelector  string
	// FallbackTextSelectors are tried when neither a title element nor image alt exist.
	FallbackTextSelectors []string
	PriceSelectors        []string
	RatingSelector        string

	NextPageSelectors []string

	DetailRegionSelector string
}

func FalabellaSite() Site {
	return Site{
		Name:              "Falabella",
		ContainerSelector: "#testId-searchResults-products",
		ItemSelector:      "#testId-searchResults-products a[data-pod='catalyst-pod']",
		TitleSelectors: []string{
			"b[id^='testId-pod-displaySubTitle']",
			"[id^='testId-pod-displaySubTitle']",
			"b.pod-subTitle",
			"[class*='pod-subTitle']",
		},
		ImageSelector:         "img[id^='testId-pod-image']",
		FallbackTextSelectors: []string{"span", "h2", "h3", "p"},
		PriceSelectors: []string{
			"[data-testid='current-price']",
			"span[data-testid*='current']",
			"[class*='price']",
			"li[class*='price']",
			"span",
		},
		RatingSelector: "[data-rating]",
		NextPageSelectors: []string{
			"button[id*='pagination'][id*='arrow-right']",
			"button.btn.pagination-arrow",
			"li[class*='pagination-arrow'] a, a[class*='pagination-arrow']",
		},
		DetailRegionSelector: "#productInfoContainer",
	}
}

// Pacing is the set of waits and scroll bounds for one crawl mode.
type Pacing struct {
	ScrollStep   int
	ScrollPause  time.Duration
	StableRounds int
	MaxScrolls   int

	ItemNapMin, ItemNapMax     time.Duration
	PageNapMin, PageNapMax     time.Duration
	DetailNapMin, DetailNapMax time.Duration

	DetailTimeout time.Duration
}

func DefaultPacing() Pacing {
	return Pacing{
		ScrollStep:    1600,
		ScrollPause:   1800 * time.Millisecond,
		StableRounds:  6,
		MaxScrolls:    200,
		ItemNapMin:    250 * time.Millisecond,
		ItemNapMax:    700 * time.Millisecond,
		PageNapMin:    time.Second,
		PageNapMax:    2 * time.Second,
		DetailNapMin:  time.Second,
		DetailNapMax:  2 * time.Second,
		DetailTimeout: 12 * time.Second,
	}
}

// FastPacing shortens every wait and gives up on lazy loading sooner.
func FastPacing() Pacing {
	return Pacing{
		ScrollStep:    1600,
		ScrollPause:   800 * time.Millisecond,
		StableRounds:  3,
		MaxScrolls:    100,
		ItemNapMin:    50 * time.Millisecond,
		ItemNapMax:    200 * time.Millisecond,
		PageNapMin:    300 * time.Millisecond,
		PageNapMax:    800 * time.Millisecond,
		DetailNapMin:  300 * time.Millisecond,
		DetailNapMax:  600 * time.Millisecond,
		DetailTimeout: 6 * time.Second,
	}
}

// NoPacing disables all waits. Tests use it.
func NoPacing() Pacing {
	return Pacing{
		ScrollStep:   1600,
		StableRounds: 3,
		MaxScrolls:   50,
	}
}
