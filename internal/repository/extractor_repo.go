package repository

import (
	"context"

	"github.com/user/article-crawler/internal/entity"
)

// Extractor defines the contract for the fetch-and-extract capability.
type Extractor interface {
	// Extract fetches a URL and returns its structured article fields.
	Extract(ctx context.Context, url string) (*entity.ExtractedRecord, error)
}

// SitemapReader fetches and parses sitemap resources (XML or HTML).
type SitemapReader interface {
	ReadSitemap(ctx context.Context, url string) (*entity.Sitemap, error)
}

// LinkDiscoverer returns the article-like links found on a source page.
type LinkDiscoverer interface {
	DiscoverLinks(ctx context.Context, pageURL string) ([]string, error)
}
