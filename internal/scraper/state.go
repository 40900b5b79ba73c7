package scraper

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/maltedev/falabella-scraper/internal/models"
	"github.com/maltedev/falabella-scraper/internal/storage"
)

// Run is the state shared by every category of one crawl: the duplicate
// guard, the global sequence and, in aggregate mode, the whole-run log.
type Run struct {
	ID string

	seen      *storage.SeenSet
	total     int
	records   []*models.ProductRecord
	aggregate *storage.Log
}

func NewRun() *Run {
	return &Run{
		ID:   uuid.NewString(),
		seen: storage.NewSeenSet(),
	}
}

// Seen reports whether link was already accepted in this run.
func (r *Run) Seen(link string) bool {
	return r.seen.Has(link)
}

// Total is the number of records accepted so far.
func (r *Run) Total() int {
	return r.total
}

// Records returns every accepted record in acceptance order.
func (r *Run) Records() []*models.ProductRecord {
	return r.records
}

// Session is the state of one category crawl.
type Session struct {
	Run      *Run
	Category string
	Page     int
	Log      *storage.Log

	count   int
	records []*models.ProductRecord
}

func NewSession(run *Run, category string, log *storage.Log) *Session {
	return &Session{
		Run:      run,
		Category: category,
		Page:     1,
		Log:      log,
	}
}

func (s *Session) Records() []*models.ProductRecord {
	return s.records
}

// Count is the number of records accepted in this category.
func (s *Session) Count() int {
	return s.count
}

// nextSeq returns the sequence numbers the next accepted record will carry.
func (s *Session) nextSeq() (global, category int) {
	return s.Run.total + 1, s.count + 1
}

// commit appends rec to the category log and only then advances the counters
// and marks the link seen. A failed append leaves the session untouched.
func (s *Session) commit(rec *models.ProductRecord) error {
	if s.Run.seen.Has(rec.Link) {
		return fmt.Errorf("%w: %s", storage.ErrDuplicate, rec.Link)
	}

	if err := s.Log.Append(rec); err != nil {
		return err
	}

	s.count++
	s.Run.total++
	_ = s.Run.seen.Add(rec.Link)
	s.records = append(s.records, rec)
	s.Run.records = append(s.Run.records, rec)

	return nil
}
