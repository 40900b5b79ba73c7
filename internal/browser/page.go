package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

var (
	// ErrNavigationTimeout marks a page load that did not finish in time. The
	// document may still be partially usable.
	ErrNavigationTimeout = errors.New("navigation timeout")
	// ErrWaitTimeout marks a bounded wait (selector, page change) that expired.
	ErrWaitTimeout = errors.New("wait timeout")
)

// Item is a handle to one listing tile on a results page.
type Item interface {
	// Link returns the resolved absolute href, or "" when the tile has none.
	Link() (string, error)
	// HTML returns the tile's outer HTML.
	HTML() (string, error)
}

// Page is the slice of browser behaviour the crawler depends on.
type Page interface {
	Goto(ctx context.Context, url string) error
	StopLoading() error
	URL() string
	Content() (string, error)
	WaitForSelector(selector string, timeout time.Duration) error

	ScrollBy(px int) error
	ScrollToBottom() error
	DocumentHeight() (int, error)

	CountItems(selector string) (int, error)
	Items(selector string) ([]Item, error)
	FirstItem(selector string) (Item, error)

	// ClickNext clicks the last element matching the first selector that
	// matches anything. It reports false when no selector matched.
	ClickNext(selectors []string) (bool, error)
	// WaitForChange blocks until prev is detached from the document or the URL
	// differs from prevURL. With a nil prev it waits for selector to appear.
	WaitForChange(selector string, prev Item, prevURL string, timeout time.Duration) error

	// OpenIsolated loads url in a separate tab; the caller must Close it.
	OpenIsolated(ctx context.Context, url string) (Page, error)
	BringToFront() error
	Close() error
}

type playwrightPage struct {
	page  playwright.Page
	owner *Browser
}

func (p *playwrightPage) Goto(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(p.owner.timeout.Milliseconds())),
	})
	if err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return fmt.Errorf("%w: %v", ErrNavigationTimeout, err)
		}
		return err
	}
	return nil
}

func (p *playwrightPage) StopLoading() error {
	_, err := p.page.Evaluate(`() => window.stop()`)
	return err
}

func (p *playwrightPage) URL() string {
	return p.page.URL()
}

func (p *playwrightPage) Content() (string, error) {
	return p.page.Content()
}

func (p *playwrightPage) WaitForSelector(selector string, timeout time.Duration) error {
	_, err := p.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: p.waitTimeout(timeout),
	})
	return wrapWait(err)
}

func (p *playwrightPage) ScrollBy(px int) error {
	_, err := p.page.Evaluate(`(px) => window.scrollBy(0, px)`, px)
	return err
}

func (p *playwrightPage) ScrollToBottom() error {
	_, err := p.page.Evaluate(`() => window.scrollTo(0, document.body.scrollHeight)`)
	return err
}

func (p *playwrightPage) DocumentHeight() (int, error) {
	v, err := p.page.Evaluate(`() => document.body ? document.body.scrollHeight : 0`)
	if err != nil {
		return 0, err
	}
	return toInt(v)
}

func (p *playwrightPage) CountItems(selector string) (int, error) {
	return p.page.Locator(selector).Count()
}

func (p *playwrightPage) Items(selector string) ([]Item, error) {
	handles, err := p.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}

	items := make([]Item, 0, len(handles))
	for _, h := range handles {
		items = append(items, &elementItem{handle: h})
	}
	return items, nil
}

func (p *playwrightPage) FirstItem(selector string) (Item, error) {
	h, err := p.page.QuerySelector(selector)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, nil
	}
	return &elementItem{handle: h}, nil
}

func (p *playwrightPage) ClickNext(selectors []string) (bool, error) {
	for _, selector := range selectors {
		candidates := p.page.Locator(selector)

		count, err := candidates.Count()
		if err != nil || count == 0 {
			continue
		}

		button := candidates.Last()
		if _, err := button.Evaluate(`(el) => el.click()`, nil); err != nil {
			time.Sleep(time.Second)
			if _, err := button.Evaluate(`(el) => el.click()`, nil); err != nil {
				return true, fmt.Errorf("failed to click %q: %w", selector, err)
			}
		}
		return true, nil
	}
	return false, nil
}

func (p *playwrightPage) WaitForChange(selector string, prev Item, prevURL string, timeout time.Duration) error {
	opts := playwright.PageWaitForFunctionOptions{
		Timeout: p.waitTimeout(timeout),
	}

	url, err := json.Marshal(prevURL)
	if err != nil {
		return err
	}

	if el, ok := prev.(*elementItem); ok && el != nil {
		expr := fmt.Sprintf(`(el) => !el.isConnected || location.href !== %s`, url)
		_, err = p.page.WaitForFunction(expr, el.handle, opts)
		return wrapWait(err)
	}

	sel, err := json.Marshal(selector)
	if err != nil {
		return err
	}
	expr := fmt.Sprintf(`() => location.href !== %s || document.querySelector(%s) !== null`, url, sel)
	_, err = p.page.WaitForFunction(expr, nil, opts)
	return wrapWait(err)
}

func (p *playwrightPage) OpenIsolated(ctx context.Context, url string) (Page, error) {
	page, err := p.owner.NewPage()
	if err != nil {
		return nil, err
	}

	if err := page.Goto(ctx, url); err != nil && !errors.Is(err, ErrNavigationTimeout) {
		page.Close()
		return nil, fmt.Errorf("failed to open %s: %w", url, err)
	}
	return page, nil
}

func (p *playwrightPage) BringToFront() error {
	return p.page.BringToFront()
}

func (p *playwrightPage) Close() error {
	return p.page.Close()
}

type elementItem struct {
	handle playwright.ElementHandle
}

func (e *elementItem) Link() (string, error) {
	v, err := e.handle.Evaluate(`(el) => el.href || el.getAttribute("href") || ""`)
	if err != nil {
		return "", err
	}
	s, _ := v.(string)
	return s, nil
}

func (e *elementItem) HTML() (string, error) {
	v, err := e.handle.Evaluate(`(el) => el.outerHTML`)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("unexpected outerHTML type %T", v)
	}
	return s, nil
}

// waitTimeout falls back to the browser default; playwright reads 0 as "wait forever".
func (p *playwrightPage) waitTimeout(d time.Duration) *float64 {
	if d <= 0 {
		d = p.owner.timeout
	}
	return playwright.Float(float64(d.Milliseconds()))
}

func wrapWait(err error) error {
	if err != nil && errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %v", ErrWaitTimeout, err)
	}
	return err
}

func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("unexpected number type %T", v)
	}
}
