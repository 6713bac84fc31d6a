package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/article-crawler/internal/entity"
)

type stubRow struct {
	scan func(dest ...any) error
}

func (r stubRow) Scan(dest ...any) error { return r.scan(dest...) }

// scriptedDB answers QueryRow calls from rows in order.
type scriptedDB struct {
	rows    []stubRow
	queries []string
	args    [][]any
}

func (db *scriptedDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("unexpected exec")
}

func (db *scriptedDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("unexpected query")
}

func (db *scriptedDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	db.queries = append(db.queries, sql)
	db.args = append(db.args, args)
	row := db.rows[0]
	db.rows = db.rows[1:]
	return row
}

func noRows() stubRow {
	return stubRow{scan: func(...any) error { return pgx.ErrNoRows }}
}

func idRow(id int64) stubRow {
	return stubRow{scan: func(dest ...any) error {
		*dest[0].(*int64) = id
		return nil
	}}
}

func testArticle() *entity.Article {
	return &entity.Article{
		URL:         "https://news.example/a",
		Title:       "Market rally continues",
		Content:     "Stocks rose sharply.",
		CrawledAt:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		ContentHash: "hash-a",
		Metadata:    entity.Metadata{},
	}
}

func TestSaveIfAbsentLooksUpRowCommittedDuringInsert(t *testing.T) {
	db := &scriptedDB{rows: []stubRow{noRows(), idRow(42)}}
	repo := NewArticleRepo(db)

	res, err := repo.SaveIfAbsent(context.Background(), testArticle())
	require.NoError(t, err)
	assert.Equal(t, entity.SaveResult{ArticleID: 42, Created: false}, res)

	require.Len(t, db.queries, 2)
	assert.Equal(t, []any{"https://news.example/a", "hash-a"}, db.args[1])
}

func TestSaveIfAbsentFallbackLookupFails(t *testing.T) {
	db := &scriptedDB{rows: []stubRow{noRows(), noRows()}}
	repo := NewArticleRepo(db)

	_, err := repo.SaveIfAbsent(context.Background(), testArticle())
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestSaveIfAbsentWrapsQueryErrors(t *testing.T) {
	boom := errors.New("connection reset")
	db := &scriptedDB{rows: []stubRow{{scan: func(...any) error { return boom }}}}
	repo := NewArticleRepo(db)

	_, err := repo.SaveIfAbsent(context.Background(), testArticle())
	assert.ErrorIs(t, err, boom)
	assert.Len(t, db.queries, 1)
}
