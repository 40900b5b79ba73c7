package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/maltedev/falabella-scraper/internal/models"
)

// Querier is the subset of *DB the repository needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schemaSQL = `
	CREATE TABLE IF NOT EXISTS scraped_products (
		run_id        TEXT        NOT NULL,
		link          TEXT        NOT NULL,
		global_seq    INTEGER     NOT NULL,
		category_seq  INTEGER     NOT NULL,
		title         TEXT        NOT NULL,
		brand         TEXT        NOT NULL,
		price_text    TEXT        NOT NULL,
		price_value   BIGINT,
		currency      TEXT,
		size          TEXT,
		rating        DOUBLE PRECISION,
		details       TEXT,
		source        TEXT        NOT NULL,
		category      TEXT        NOT NULL,
		image         TEXT        NOT NULL,
		page          INTEGER     NOT NULL,
		status        TEXT        NOT NULL,
		extracted_at  TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (run_id, link)
	)`

const insertProductSQL = `
	INSERT INTO scraped_products (
		run_id, link, global_seq, category_seq, title, brand,
		price_text, price_value, currency, size, rating, details,
		source, category, image, page, status, extracted_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
	)
	ON CONFLICT (run_id, link) DO NOTHING`

// ProductRepository mirrors accepted records into Postgres.
type ProductRepository struct {
	db     Querier
	logger *slog.Logger
}

func NewProductRepository(db Querier, logger *slog.Logger) *ProductRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProductRepository{
		db:     db,
		logger: logger.With("component", "product_repository"),
	}
}

func (r *ProductRepository) Name() string {
	return "postgres"
}

func (r *ProductRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create scraped_products: %w", err)
	}
	return nil
}

// Publish inserts rec. A row that already exists for the run is left as is.
func (r *ProductRepository) Publish(ctx context.Context, rec *models.ProductRecord) error {
	tag, err := r.db.Exec(ctx, insertProductSQL,
		rec.RunID, rec.Link, rec.GlobalSeq, rec.CategorySeq, rec.Title, rec.Brand,
		rec.PriceText, rec.PriceValue, rec.Currency, rec.Size, rec.Rating, rec.Details,
		rec.Source, rec.Category, rec.Image, rec.Page, rec.Status, rec.ExtractedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}

	if tag.RowsAffected() == 0 {
		r.logger.Debug("product already stored", "run_id", rec.RunID, "link", rec.Link)
	}
	return nil
}

// CountRun returns how many products a run stored.
func (r *ProductRepository) CountRun(ctx context.Context, runID string) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM scraped_products WHERE run_id = $1`, runID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}
