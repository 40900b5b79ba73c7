package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/maltedev/falabella-scraper/internal/parser"
)

// Discoverer collects category links from the storefront home page. The home
// page ships its navigation in the server-rendered HTML, so a plain HTTP
// collector is enough here.
type Discoverer struct {
	HomeURL   string
	UserAgent string
	Timeout   time.Duration
	// Transport overrides the HTTP transport (proxy, tests).
	Transport http.RoundTripper
	Logger    *slog.Logger
}

func NewDiscoverer(userAgent string) *Discoverer {
	return &Discoverer{
		HomeURL:   HomeURL,
		UserAgent: userAgent,
		Timeout:   30 * time.Second,
		Logger:    slog.Default(),
	}
}

// Discover returns categories in page order. Later links with an already seen
// name replace the earlier URL; repeated URLs are ignored.
func (d *Discoverer) Discover(ctx context.Context) ([]Target, error) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "discovery")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := colly.NewCollector(colly.UserAgent(d.UserAgent))
	c.SetRequestTimeout(d.Timeout)
	if d.Transport != nil {
		c.WithTransport(d.Transport)
	} else {
		c.WithTransport(&http.Transport{Proxy: http.ProxyFromEnvironment})
	}

	scope := siteScope(d.HomeURL)

	var (
		order   []string
		byName  = make(map[string]string)
		seenURL = make(map[string]struct{})
	)

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		href := e.Request.AbsoluteURL(e.Attr("href"))
		if href == "" || !strings.Contains(href, scope) {
			return
		}
		if !isCategoryLink(href) {
			return
		}
		if _, dup := seenURL[href]; dup {
			return
		}

		name := strings.Join(strings.Fields(e.Text), " ")
		if name == "" {
			name = parser.NameFromURL(href)
		}
		if name == "" {
			return
		}

		seenURL[href] = struct{}{}
		if _, exists := byName[name]; !exists {
			order = append(order, name)
		}
		byName[name] = href
	})

	var visitErr error
	c.OnError(func(r *colly.Response, err error) {
		visitErr = fmt.Errorf("home page returned %d: %w", r.StatusCode, err)
	})

	if err := c.Visit(d.HomeURL); err != nil {
		return nil, fmt.Errorf("failed to visit home page: %w", err)
	}
	c.Wait()

	if visitErr != nil {
		return nil, visitErr
	}

	targets := make([]Target, 0, len(order))
	for _, name := range order {
		targets = append(targets, Target{Name: name, URL: byName[name]})
	}

	logger.Info("categories discovered", "count", len(targets))
	return targets, nil
}

func isCategoryLink(href string) bool {
	if strings.Contains(href, "/category/") {
		return true
	}
	return strings.Contains(href, "/search?") &&
		(strings.Contains(href, "Ntt=") || strings.Contains(href, "categoryId="))
}

// siteScope is the host plus first path segment, e.g. "www.falabella.com.co/falabella-co".
func siteScope(home string) string {
	s := strings.TrimPrefix(strings.TrimPrefix(home, "https://"), "http://")
	return strings.TrimSuffix(s, "/")
}
