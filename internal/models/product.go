package models

import (
	"time"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"

	// NotAvailable is the placeholder used for text fields the page did not provide.
	NotAvailable = "N/A"
)

// ProductRecord is one accepted listing item. Nullable fields are pointers and
// serialise as null rather than being omitted.
type ProductRecord struct {
	GlobalSeq   int       `json:"global_seq"`
	CategorySeq int       `json:"category_seq"`
	Title       string    `json:"title"`
	Brand       string    `json:"brand"`
	PriceText   string    `json:"price_text"`
	PriceValue  *int64    `json:"price_value"`
	Currency    *string   `json:"currency"`
	Size        *string   `json:"size"`
	Rating      *float64  `json:"rating"`
	Details     *string   `json:"details"`
	Source      string    `json:"source"`
	Category    string    `json:"category"`
	Image       string    `json:"image"`
	Link        string    `json:"link"`
	Page        int       `json:"page"`
	ExtractedAt time.Time `json:"extracted_at"`
	Status      string    `json:"status"`
	RunID       string    `json:"run_id"`
}

// RecordFields carries everything a record needs except the derived status.
type RecordFields struct {
	GlobalSeq   int
	CategorySeq int
	Title       string
	Brand       string
	PriceText   string
	PriceValue  *int64
	Currency    *string
	Size        *string
	Rating      *float64
	Details     *string
	Source      string
	Category    string
	Image       string
	Link        string
	Page        int
	ExtractedAt time.Time
	RunID       string
}

// NewProductRecord builds a record and derives its status from the price value.
func NewProductRecord(f RecordFields) *ProductRecord {
	status := StatusFailed
	if f.PriceValue != nil {
		status = StatusSuccess
	}

	extractedAt := f.ExtractedAt
	if extractedAt.IsZero() {
		extractedAt = time.Now()
	}

	return &ProductRecord{
		GlobalSeq:   f.GlobalSeq,
		CategorySeq: f.CategorySeq,
		Title:       orNotAvailable(f.Title),
		Brand:       orNotAvailable(f.Brand),
		PriceText:   orNotAvailable(f.PriceText),
		PriceValue:  f.PriceValue,
		Currency:    f.Currency,
		Size:        f.Size,
		Rating:      f.Rating,
		Details:     f.Details,
		Source:      f.Source,
		Category:    orNotAvailable(f.Category),
		Image:       orNotAvailable(f.Image),
		Link:        f.Link,
		Page:        f.Page,
		ExtractedAt: extractedAt,
		Status:      status,
		RunID:       f.RunID,
	}
}

func (p *ProductRecord) Validate() []string {
	var errors []string

	if p.Link == "" {
		errors = append(errors, "link is required")
	}

	if p.GlobalSeq < 1 || p.CategorySeq < 1 {
		errors = append(errors, "sequence numbers start at 1")
	}

	if (p.Status == StatusSuccess) != (p.PriceValue != nil) {
		errors = append(errors, "status does not match price value")
	}

	return errors
}

func orNotAvailable(s string) string {
	if s == "" {
		return NotAvailable
	}
	return s
}
