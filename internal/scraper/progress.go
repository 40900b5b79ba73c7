package scraper

import (
	"sync"
	"time"
)

// Progress is the run status shared with the status server.
type Progress struct {
	mu sync.RWMutex

	runID        string
	startedAt    time.Time
	finishedAt   time.Time
	category     string
	page         int
	records      int
	perCategory  map[string]int
	done         []string
	failed       map[string]string
	categoriesIn int
}

type ProgressSnapshot struct {
	RunID             string            `json:"run_id"`
	StartedAt         time.Time         `json:"started_at"`
	FinishedAt        *time.Time        `json:"finished_at"`
	Running           bool              `json:"running"`
	CurrentCategory   string            `json:"current_category,omitempty"`
	CurrentPage       int               `json:"current_page,omitempty"`
	Records           int               `json:"records"`
	RecordsByCategory map[string]int    `json:"records_by_category"`
	CategoriesPlanned int               `json:"categories_planned"`
	CategoriesDone    []string          `json:"categories_done"`
	CategoriesFailed  map[string]string `json:"categories_failed"`
}

func NewProgress(runID string) *Progress {
	return &Progress{
		runID:       runID,
		startedAt:   time.Now(),
		perCategory: make(map[string]int),
		failed:      make(map[string]string),
	}
}

func (p *Progress) Plan(categories int) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.categoriesIn = categories
}

func (p *Progress) StartCategory(name string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.category = name
	p.page = 0
	p.perCategory[name] = 0
}

func (p *Progress) SetPage(page int) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.page = page
}

func (p *Progress) AddRecord(category string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records++
	p.perCategory[category]++
}

func (p *Progress) FinishCategory(name string, err error) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.failed[name] = err.Error()
	} else {
		p.done = append(p.done, name)
	}
	p.category = ""
	p.page = 0
}

func (p *Progress) Finish() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finishedAt = time.Now()
}

func (p *Progress) Snapshot() ProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snap := ProgressSnapshot{
		RunID:             p.runID,
		StartedAt:         p.startedAt,
		Running:           p.finishedAt.IsZero(),
		CurrentCategory:   p.category,
		CurrentPage:       p.page,
		Records:           p.records,
		RecordsByCategory: make(map[string]int, len(p.perCategory)),
		CategoriesPlanned: p.categoriesIn,
		CategoriesDone:    append([]string(nil), p.done...),
		CategoriesFailed:  make(map[string]string, len(p.failed)),
	}
	if !p.finishedAt.IsZero() {
		finished := p.finishedAt
		snap.FinishedAt = &finished
	}
	for k, v := range p.perCategory {
		snap.RecordsByCategory[k] = v
	}
	for k, v := range p.failed {
		snap.CategoriesFailed[k] = v
	}
	return snap
}
