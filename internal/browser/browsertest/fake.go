// Package browsertest provides a scriptable in-memory browser.Page for tests.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maltedev/falabella-scraper/internal/browser"
)

// Item is a canned listing tile.
type Item struct {
	Href    string
	Markup  string
	LinkErr error
	HTMLErr error
}

func (i *Item) Link() (string, error) { return i.Href, i.LinkErr }
func (i *Item) HTML() (string, error) { return i.Markup, i.HTMLErr }

// ResultPage is one page of search results.
type ResultPage struct {
	URL   string
	Items []*Item
	// Initial is how many items are rendered before any scrolling.
	Initial int
}

// Page simulates a lazily loading, paginated listing.
type Page struct {
	Results []ResultPage
	// Listings replaces Results on Goto when the URL has an entry.
	Listings map[string][]ResultPage
	// LoadPerScroll items are revealed by each ScrollBy; 0 reveals all at once.
	LoadPerScroll int
	HeightPerItem int
	// StuckOnNext makes the next control present but inert.
	StuckOnNext bool
	ClickErr    error
	// GotoErrs are returned by successive Goto calls; nil entries succeed.
	GotoErrs []error
	StopErr  error
	// HTML is returned by Content.
	HTML string
	// Details maps item links to their detail page HTML.
	Details map[string]string
	OpenErr error
	// MissingSelectors never appear for WaitForSelector.
	MissingSelectors map[string]bool

	Gotos   []string
	Scrolls int
	Stops   int
	Opened  []string
	Closed  int
	Fronted int
	IsOpen  bool

	current int
	visible int
	url     string
	changed bool
	parent  *Page
}

var _ browser.Page = (*Page)(nil)

func (p *Page) Goto(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.Gotos = append(p.Gotos, url)
	if len(p.GotoErrs) > 0 {
		err := p.GotoErrs[0]
		p.GotoErrs = p.GotoErrs[1:]
		if err != nil {
			return err
		}
	}

	p.url = url
	if results, ok := p.Listings[url]; ok {
		p.Results = results
	}
	p.current = 0
	p.visible = p.initial()
	return nil
}

func (p *Page) StopLoading() error {
	p.Stops++
	return p.StopErr
}

func (p *Page) URL() string {
	if r := p.result(); r != nil && r.URL != "" {
		return r.URL
	}
	return p.url
}

func (p *Page) Content() (string, error) {
	return p.HTML, nil
}

func (p *Page) WaitForSelector(selector string, _ time.Duration) error {
	if p.MissingSelectors[selector] {
		return fmt.Errorf("%w: %s", browser.ErrWaitTimeout, selector)
	}
	return nil
}

func (p *Page) ScrollBy(int) error {
	p.Scrolls++

	r := p.result()
	if r == nil {
		return nil
	}
	if p.LoadPerScroll <= 0 {
		p.visible = len(r.Items)
		return nil
	}
	p.visible += p.LoadPerScroll
	if p.visible > len(r.Items) {
		p.visible = len(r.Items)
	}
	return nil
}

func (p *Page) ScrollToBottom() error {
	return nil
}

func (p *Page) DocumentHeight() (int, error) {
	return 1000 + p.visible*p.HeightPerItem, nil
}

func (p *Page) CountItems(string) (int, error) {
	return p.visible, nil
}

func (p *Page) Items(string) ([]browser.Item, error) {
	r := p.result()
	if r == nil {
		return nil, nil
	}

	items := make([]browser.Item, 0, p.visible)
	for _, it := range r.Items[:p.visible] {
		items = append(items, it)
	}
	return items, nil
}

func (p *Page) FirstItem(string) (browser.Item, error) {
	r := p.result()
	if r == nil || p.visible == 0 {
		return nil, nil
	}
	return r.Items[0], nil
}

func (p *Page) ClickNext([]string) (bool, error) {
	if p.ClickErr != nil {
		return true, p.ClickErr
	}
	if p.current+1 < len(p.Results) {
		p.current++
		p.visible = p.initial()
		p.changed = true
		return true, nil
	}
	if p.StuckOnNext {
		return true, nil
	}
	return false, nil
}

func (p *Page) WaitForChange(string, browser.Item, string, time.Duration) error {
	if p.changed {
		p.changed = false
		return nil
	}
	return fmt.Errorf("%w: page did not change", browser.ErrWaitTimeout)
}

func (p *Page) OpenIsolated(ctx context.Context, url string) (browser.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.Opened = append(p.Opened, url)
	if p.OpenErr != nil {
		return nil, p.OpenErr
	}

	html, ok := p.Details[url]
	if !ok {
		return nil, errors.New("no detail page for " + url)
	}

	return &Page{HTML: html, url: url, parent: p, IsOpen: true}, nil
}

func (p *Page) BringToFront() error {
	p.Fronted++
	return nil
}

func (p *Page) Close() error {
	p.IsOpen = false
	if p.parent != nil {
		p.parent.Closed++
	}
	return nil
}

// Current reports the zero-based index of the result page being shown.
func (p *Page) Current() int {
	return p.current
}

func (p *Page) result() *ResultPage {
	if p.current >= len(p.Results) {
		return nil
	}
	return &p.Results[p.current]
}

func (p *Page) initial() int {
	r := p.result()
	if r == nil {
		return 0
	}
	if r.Initial > len(r.Items) {
		return len(r.Items)
	}
	return r.Initial
}
