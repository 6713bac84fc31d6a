// Package extractor fetches pages and turns them into extracted records,
// sitemaps and article link lists.
package extractor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/user/article-crawler/internal/entity"
	"github.com/user/article-crawler/internal/repository"
)

// ArticleExtractor implements the repository extraction interfaces on top
// of a Fetcher.
type ArticleExtractor struct {
	fetcher Fetcher
	logger  *zap.Logger
}

// New creates an extractor using fetcher for every request.
func New(fetcher Fetcher, logger *zap.Logger) *ArticleExtractor {
	return &ArticleExtractor{fetcher: fetcher, logger: logger}
}

var (
	_ repository.Extractor      = (*ArticleExtractor)(nil)
	_ repository.SitemapReader  = (*ArticleExtractor)(nil)
	_ repository.LinkDiscoverer = (*ArticleExtractor)(nil)
)

// Extract fetches rawURL and parses it as an article. A page without any
// readable text is reported as ErrExtractionFailed.
func (e *ArticleExtractor) Extract(ctx context.Context, rawURL string) (*entity.ExtractedRecord, error) {
	start := time.Now()
	page, err := e.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	rec, err := ParseArticle(page.URL, page.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", repository.ErrExtractionFailed, rawURL, err)
	}
	if strings.TrimSpace(rec.Text) == "" {
		return nil, fmt.Errorf("%w: %s: no readable text", repository.ErrExtractionFailed, rawURL)
	}
	rec.SourceURL = rawURL
	rec.ExtractionMethod = "goquery+" + e.fetcher.Name()

	e.logger.Debug("extracted article",
		zap.String("url", rawURL),
		zap.Int("words", rec.WordCount),
		zap.Duration("duration", time.Since(start)),
	)
	return rec, nil
}

// ReadSitemap fetches and parses a sitemap resource.
func (e *ArticleExtractor) ReadSitemap(ctx context.Context, rawURL string) (*entity.Sitemap, error) {
	page, err := e.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	sm, err := ParseSitemap(page.URL, page.ContentType, page.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", repository.ErrExtractionFailed, err)
	}
	return sm, nil
}

// DiscoverLinks fetches a source page and returns its article-like links.
func (e *ArticleExtractor) DiscoverLinks(ctx context.Context, pageURL string) ([]string, error) {
	page, err := e.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	links, err := ArticleLinks(page.URL, page.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", repository.ErrExtractionFailed, err)
	}
	return links, nil
}
