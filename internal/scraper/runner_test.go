package scraper

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/falabella-scraper/internal/browser/browsertest"
	"github.com/maltedev/falabella-scraper/internal/catalog"
	"github.com/maltedev/falabella-scraper/internal/storage"
)

func newRunner(t *testing.T, opts Options) (*Runner, *storage.Store) {
	t.Helper()

	store, err := storage.NewStore(t.TempDir())
	require.NoError(t, err)

	if opts.MaxRetries == 0 {
		opts.MaxRetries = 1
	}
	opts.Fast = true

	r := NewRunner(store, opts, nil)
	r.Pacing = NoPacing()
	return r, store
}

var runTargets = []catalog.Target{
	{Name: "Televisores", URL: "https://example.test/category/cat1/Televisores"},
	{Name: "Consolas", URL: "https://example.test/category/cat2/Consolas"},
	{Name: "Neveras", URL: "https://example.test/category/cat3/Neveras"},
}

func runPage() *browsertest.Page {
	return &browsertest.Page{
		Listings: map[string][]browsertest.ResultPage{
			runTargets[0].URL: {{Items: productRange(1, 3)}, {Items: productRange(4, 5)}},
			// the first pod repeats a television and must not be counted twice
			runTargets[1].URL: {{Items: productRange(5, 8)}},
			runTargets[2].URL: {{Items: productRange(20, 21)}},
		},
	}
}

func TestRunSequencesAcrossCategories(t *testing.T) {
	r, store := newRunner(t, Options{Aggregate: true})
	r.Metrics = NewMetrics()
	run := NewRun()
	r.Progress = NewProgress(run.ID)

	summary, err := r.Run(context.Background(), runPage(), run, runTargets)
	require.NoError(t, err)

	assert.Equal(t, run.ID, summary.RunID)
	assert.Equal(t, 10, summary.Records)
	require.Len(t, summary.Categories, 3)
	assert.Empty(t, summary.Failed)

	assert.Len(t, summary.Categories[0].Records, 5)
	assert.Len(t, summary.Categories[1].Records, 3)
	assert.Len(t, summary.Categories[2].Records, 2)

	// global numbering is contiguous, category numbering restarts
	links := make(map[string]bool)
	for i, rec := range run.Records() {
		assert.Equal(t, i+1, rec.GlobalSeq)
		assert.False(t, links[rec.Link], "duplicate link %s", rec.Link)
		links[rec.Link] = true
	}
	for _, c := range summary.Categories {
		for i, rec := range c.Records {
			assert.Equal(t, i+1, rec.CategorySeq)
			assert.Equal(t, c.Name, rec.Category)
		}
	}

	aggregate, err := (&storage.Log{JSONLPath: store.Dir() + "/" + storage.AggregateName + ".jsonl"}).ReadAll()
	require.NoError(t, err)
	assert.Len(t, aggregate, 10)
	assert.Len(t, readSnapshot(t, store.Dir()+"/"+storage.AggregateName+".json"), 10)
	assert.Len(t, readSnapshot(t, store.Dir()+"/consolas.json"), 3)

	snap := r.Progress.Snapshot()
	assert.False(t, snap.Running)
	assert.Equal(t, 10, snap.Records)
	assert.Equal(t, 3, snap.CategoriesPlanned)
	assert.Equal(t, []string{"Televisores", "Consolas", "Neveras"}, snap.CategoriesDone)
}

func TestRunSkipsFailingCategory(t *testing.T) {
	r, _ := newRunner(t, Options{OnePage: true})
	page := runPage()
	page.GotoErrs = []error{errors.New("net::ERR_NAME_NOT_RESOLVED")}
	run := NewRun()
	r.Progress = NewProgress(run.ID)

	summary, err := r.Run(context.Background(), page, run, runTargets)
	require.NoError(t, err)

	require.Len(t, summary.Failed, 1)
	assert.Equal(t, "Televisores", summary.Failed[0].Name)
	require.Len(t, summary.Categories, 2)
	assert.Equal(t, "Consolas", summary.Categories[0].Name)
	assert.Equal(t, 1, run.Records()[0].GlobalSeq)
	assert.Equal(t, 6, summary.Records)

	snap := r.Progress.Snapshot()
	assert.Contains(t, snap.CategoriesFailed["Televisores"], "ERR_NAME_NOT_RESOLVED")
}

func TestRunLimitsCategories(t *testing.T) {
	r, _ := newRunner(t, Options{MaxCategories: 1, OnePage: true})
	page := runPage()

	summary, err := r.Run(context.Background(), page, NewRun(), runTargets)
	require.NoError(t, err)

	require.Len(t, summary.Categories, 1)
	assert.Equal(t, []string{runTargets[0].URL}, page.Gotos)
}

func TestRunCancelled(t *testing.T) {
	r, _ := newRunner(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := r.Run(ctx, runPage(), NewRun(), runTargets)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, summary.Categories)
}

func TestRunKeepsFoldedNamesApart(t *testing.T) {
	r, store := newRunner(t, Options{})
	targets := []catalog.Target{
		{Name: "Tecnología", URL: "https://example.test/category/cat7/Tecnologia"},
		{Name: "TECNOLOGIA", URL: "https://example.test/category/cat8/TECNOLOGIA"},
	}
	page := &browsertest.Page{
		Listings: map[string][]browsertest.ResultPage{
			targets[0].URL: {{Items: productRange(30, 32)}},
			targets[1].URL: {{Items: productRange(40, 41)}},
		},
	}

	summary, err := r.Run(context.Background(), page, NewRun(), targets)
	require.NoError(t, err)
	require.Len(t, summary.Categories, 2)
	assert.Equal(t, 5, summary.Records)

	assert.Equal(t, "tecnologia", summary.Categories[0].Slug)
	assert.Equal(t, "tecnologia-2", summary.Categories[1].Slug)

	for i, want := range []int{3, 2} {
		slug := summary.Categories[i].Slug
		log := &storage.Log{
			Slug:         slug,
			JSONLPath:    filepath.Join(store.Dir(), slug+".jsonl"),
			SnapshotPath: filepath.Join(store.Dir(), slug+".json"),
		}
		recs, err := log.ReadAll()
		require.NoError(t, err)
		assert.Len(t, recs, want, slug)
		for _, rec := range recs {
			assert.Equal(t, targets[i].Name, rec.Category)
		}
	}
}
