package repository

import (
	"context"

	"github.com/user/article-crawler/internal/entity"
)

// ArticleRepository defines the interface for persisting extracted articles.
type ArticleRepository interface {
	// SaveIfAbsent inserts the article unless a row with the same URL or the
	// same content hash exists, in which case the existing id is returned
	// with Created set to false. The check and the insert are one operation.
	SaveIfAbsent(ctx context.Context, article *entity.Article) (entity.SaveResult, error)
}
