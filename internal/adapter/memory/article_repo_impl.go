package memory

import (
	"context"
	"sync"

	"github.com/user/article-crawler/internal/entity"
	"github.com/user/article-crawler/internal/repository"
)

// ArticleRepoImpl stores articles in memory, unique by url and content hash.
type ArticleRepoImpl struct {
	mu       sync.Mutex
	articles []*entity.Article
	nextID   int64
}

func NewArticleRepo() *ArticleRepoImpl {
	return &ArticleRepoImpl{}
}

var _ repository.ArticleRepository = (*ArticleRepoImpl)(nil)

func (r *ArticleRepoImpl) SaveIfAbsent(ctx context.Context, a *entity.Article) (entity.SaveResult, error) {
	if err := ctx.Err(); err != nil {
		return entity.SaveResult{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.articles {
		if existing.URL == a.URL || (a.ContentHash != "" && existing.ContentHash == a.ContentHash) {
			return entity.SaveResult{ArticleID: existing.ID}, nil
		}
	}

	r.nextID++
	stored := *a
	stored.ID = r.nextID
	stored.Metadata = entity.Metadata{}.Merge(a.Metadata)
	r.articles = append(r.articles, &stored)
	return entity.SaveResult{ArticleID: stored.ID, Created: true}, nil
}

// List returns copies of every stored article in insertion order.
func (r *ArticleRepoImpl) List() []entity.Article {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.Article, len(r.articles))
	for i, a := range r.articles {
		out[i] = *a
	}
	return out
}
