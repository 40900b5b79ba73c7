package scraper

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the crawler.
type Metrics struct {
	Registry          *prometheus.Registry
	RecordsTotal      *prometheus.CounterVec
	ItemsSkippedTotal *prometheus.CounterVec
	PagesTotal        prometheus.Counter
	CategoriesTotal   *prometheus.CounterVec
	DetailFetchTotal  *prometheus.CounterVec
	RetriesTotal      prometheus.Counter
	ScrollRounds      prometheus.Histogram
	SinkErrorsTotal   *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	records := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_records_total",
			Help: "Accepted product records by category and status.",
		},
		[]string{"category", "status"},
	)
	skipped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_items_skipped_total",
			Help: "Listing items that produced no record, by reason.",
		},
		[]string{"reason"},
	)
	pages := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crawler_pages_total",
			Help: "Result pages extracted.",
		},
	)
	categories := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_categories_total",
			Help: "Categories processed by outcome.",
		},
		[]string{"outcome"},
	)
	details := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_detail_fetch_total",
			Help: "Detail page excursions by outcome.",
		},
		[]string{"outcome"},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crawler_navigation_retries_total",
			Help: "Page load retries.",
		},
	)
	scrolls := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crawler_scroll_rounds",
			Help:    "Scroll rounds needed before a page stopped growing.",
			Buckets: prometheus.LinearBuckets(0, 5, 10),
		},
	)
	sinkErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_sink_errors_total",
			Help: "Failed mirror writes by sink.",
		},
		[]string{"sink"},
	)

	registry.MustRegister(records, skipped, pages, categories, details, retries, scrolls, sinkErrors)

	return &Metrics{
		Registry:          registry,
		RecordsTotal:      records,
		ItemsSkippedTotal: skipped,
		PagesTotal:        pages,
		CategoriesTotal:   categories,
		DetailFetchTotal:  details,
		RetriesTotal:      retries,
		ScrollRounds:      scrolls,
		SinkErrorsTotal:   sinkErrors,
	}
}

func (m *Metrics) IncRecord(category, status string) {
	if m == nil {
		return
	}
	m.RecordsTotal.WithLabelValues(category, status).Inc()
}

func (m *Metrics) IncSkipped(reason string) {
	if m == nil {
		return
	}
	m.ItemsSkippedTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncPage() {
	if m == nil {
		return
	}
	m.PagesTotal.Inc()
}

func (m *Metrics) IncCategory(outcome string) {
	if m == nil {
		return
	}
	m.CategoriesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncDetail(outcome string) {
	if m == nil {
		return
	}
	m.DetailFetchTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

func (m *Metrics) ObserveScrolls(rounds int) {
	if m == nil {
		return
	}
	m.ScrollRounds.Observe(float64(rounds))
}

func (m *Metrics) IncSinkError(sink string) {
	if m == nil {
		return
	}
	m.SinkErrorsTotal.WithLabelValues(sink).Inc()
}
