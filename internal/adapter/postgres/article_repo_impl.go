package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/user/article-crawler/internal/entity"
	"github.com/user/article-crawler/internal/repository"
)

// ArticleRepoImpl provides a concrete implementation for the ArticleRepository interface using PostgreSQL.
type ArticleRepoImpl struct {
	db DBTX
}

// NewArticleRepo creates a new instance of ArticleRepoImpl.
func NewArticleRepo(db DBTX) *ArticleRepoImpl {
	return &ArticleRepoImpl{db: db}
}

var _ repository.ArticleRepository = (*ArticleRepoImpl)(nil)

// SaveIfAbsent inserts the article unless a row with the same url or content
// hash exists, in which case the existing id is returned. Both branches run
// in one statement; the unique indexes close the gap between them.
func (r *ArticleRepoImpl) SaveIfAbsent(ctx context.Context, a *entity.Article) (entity.SaveResult, error) {
	meta, err := a.Metadata.JSON()
	if err != nil {
		return entity.SaveResult{}, err
	}

	query := `
		WITH ins AS (
			INSERT INTO articles (source_id, url, title, content, excerpt, author, published_at, crawled_at, content_hash, language, metadata)
			VALUES ($1, $2, $3, $4, NULLIF($5::text, ''), NULLIF($6::text, ''), $7, $8, NULLIF($9::text, ''), NULLIF($10::text, ''), $11::jsonb)
			ON CONFLICT DO NOTHING
			RETURNING id
		)
		SELECT id, true FROM ins
		UNION ALL
		SELECT id, false FROM articles
		WHERE url = $2 OR content_hash = NULLIF($9::text, '')
		LIMIT 1;
	`
	var res entity.SaveResult
	err = r.db.QueryRow(ctx, query,
		a.SourceID,
		a.URL,
		a.Title,
		a.Content,
		a.Excerpt,
		a.Author,
		a.PublishedAt,
		a.CrawledAt,
		a.ContentHash,
		a.Language,
		string(meta),
	).Scan(&res.ArticleID, &res.Created)
	if errors.Is(err, pgx.ErrNoRows) {
		// The conflicting row was committed after this statement took its
		// snapshot; a new statement sees it.
		return r.findExisting(ctx, a)
	}
	if err != nil {
		return entity.SaveResult{}, fmt.Errorf("save article %s: %w", a.URL, err)
	}
	return res, nil
}

func (r *ArticleRepoImpl) findExisting(ctx context.Context, a *entity.Article) (entity.SaveResult, error) {
	query := `
		SELECT id FROM articles
		WHERE url = $1 OR content_hash = NULLIF($2::text, '')
		LIMIT 1;
	`
	var id int64
	if err := r.db.QueryRow(ctx, query, a.URL, a.ContentHash).Scan(&id); err != nil {
		return entity.SaveResult{}, fmt.Errorf("find existing article %s: %w", a.URL, err)
	}
	return entity.SaveResult{ArticleID: id, Created: false}, nil
}
