package scraper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/falabella-scraper/internal/browser/browsertest"
)

func TestExtractorMetrics(t *testing.T) {
	s, _ := newSession(t, "Televisores")
	e := newExtractor(false)
	e.Metrics = NewMetrics()
	page := &browsertest.Page{}

	for _, item := range []*browsertest.Item{
		product(1).item(),
		product(1).item(),
		podFixture{id: 2, title: "Envío gratis", rating: "4"}.item(),
	} {
		_, err := e.Extract(context.Background(), page, item, s)
		require.NoError(t, err)
	}

	assert.Equal(t, 1.0, counterValue(t, e.Metrics, "crawler_records_total", "status", "success"))
	assert.Equal(t, 1.0, counterValue(t, e.Metrics, "crawler_items_skipped_total", "reason", "duplicate"))
	assert.Equal(t, 1.0, counterValue(t, e.Metrics, "crawler_items_skipped_total", "reason", "promotional"))
}

func counterValue(t *testing.T, m *Metrics, name, label, value string) float64 {
	t.Helper()

	families, err := m.Registry.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, l := range metric.GetLabel() {
				if l.GetName() == label && l.GetValue() == value {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncRecord("x", "success")
		m.IncSkipped("duplicate")
		m.IncPage()
		m.IncCategory("ok")
		m.IncDetail("ok")
		m.IncRetries()
		m.ObserveScrolls(3)
		m.IncSinkError("redis")
	})
}
