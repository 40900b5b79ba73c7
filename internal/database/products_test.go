package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/falabella-scraper/internal/models"
)

type MockQuerier struct {
	mock.Mock
}

func (m *MockQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	called := m.Called(ctx, sql, args)
	return pgconn.NewCommandTag(called.String(0)), called.Error(1)
}

func (m *MockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	called := m.Called(ctx, sql, args)
	return called.Get(0).(pgx.Row)
}

type countRow struct {
	count int64
	err   error
}

func (r countRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int64)) = r.count
	return nil
}

func sampleRecord() *models.ProductRecord {
	price := int64(1299000)
	currency := "COP"
	return models.NewProductRecord(models.RecordFields{
		GlobalSeq:   3,
		CategorySeq: 1,
		Title:       "Samsung Smart TV 55\"",
		Brand:       "SAMSUNG",
		PriceText:   "$ 1.299.000",
		PriceValue:  &price,
		Currency:    &currency,
		Source:      "Falabella",
		Category:    "Televisores",
		Link:        "https://www.falabella.com.co/falabella-co/product/1",
		Page:        1,
		ExtractedAt: time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC),
		RunID:       "run-1",
	})
}

func TestProductRepository_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts the record", func(t *testing.T) {
		db := new(MockQuerier)
		rec := sampleRecord()
		db.On("Exec", ctx, insertProductSQL, mock.MatchedBy(func(args []any) bool {
			return len(args) == 18 && args[0] == "run-1" && args[1] == rec.Link && args[16] == models.StatusSuccess
		})).Return("INSERT 0 1", nil)

		repo := NewProductRepository(db, nil)
		require.NoError(t, repo.Publish(ctx, rec))
		db.AssertExpectations(t)
	})

	t.Run("existing row is not an error", func(t *testing.T) {
		db := new(MockQuerier)
		db.On("Exec", ctx, insertProductSQL, mock.Anything).Return("INSERT 0 0", nil)

		repo := NewProductRepository(db, nil)
		assert.NoError(t, repo.Publish(ctx, sampleRecord()))
	})

	t.Run("database error is wrapped", func(t *testing.T) {
		db := new(MockQuerier)
		db.On("Exec", ctx, insertProductSQL, mock.Anything).Return("", errors.New("connection refused"))

		repo := NewProductRepository(db, nil)
		err := repo.Publish(ctx, sampleRecord())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestProductRepository_EnsureSchema(t *testing.T) {
	ctx := context.Background()
	db := new(MockQuerier)
	db.On("Exec", ctx, schemaSQL, mock.Anything).Return("CREATE TABLE", nil)

	repo := NewProductRepository(db, nil)
	require.NoError(t, repo.EnsureSchema(ctx))
	assert.Equal(t, "postgres", repo.Name())
	db.AssertExpectations(t)
}

func TestProductRepository_CountRun(t *testing.T) {
	ctx := context.Background()
	db := new(MockQuerier)
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"run-1"}).Return(countRow{count: 42})
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"run-2"}).Return(countRow{err: pgx.ErrNoRows})

	repo := NewProductRepository(db, nil)

	count, err := repo.CountRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)

	_, err = repo.CountRun(ctx, "run-2")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}
