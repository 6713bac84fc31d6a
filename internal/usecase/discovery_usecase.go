package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/user/article-crawler/internal/content"
	"github.com/user/article-crawler/internal/entity"
	"github.com/user/article-crawler/internal/repository"
	"github.com/user/article-crawler/pkg/metrics"
)

// MaxChildSitemaps caps how many child sitemaps of one index become jobs.
const MaxChildSitemaps = 10

// ExpansionResult counts what one expansion did.
type ExpansionResult struct {
	Created       int
	Skipped       int
	ChildSitemaps int
}

func (r *ExpansionResult) add(o ExpansionResult) {
	r.Created += o.Created
	r.Skipped += o.Skipped
	r.ChildSitemaps += o.ChildSitemaps
}

// DiscoveryExpander turns sitemaps and source pages into discovered jobs.
type DiscoveryExpander struct {
	jobs    repository.JobRepository
	sitemap repository.SitemapReader
	links   repository.LinkDiscoverer
	logger  *zap.Logger
	now     func() time.Time
}

// NewDiscoveryExpander creates a DiscoveryExpander. links may be nil when
// source crawling is not needed.
func NewDiscoveryExpander(jobs repository.JobRepository, sitemap repository.SitemapReader, links repository.LinkDiscoverer, logger *zap.Logger) *DiscoveryExpander {
	return &DiscoveryExpander{
		jobs:    jobs,
		sitemap: sitemap,
		links:   links,
		logger:  logger.With(zap.String("component", "discovery")),
		now:     time.Now,
	}
}

// ExpandSitemap reads a sitemap and inserts a discovered job per page URL.
// Child sitemaps of an index are inserted as sitemap jobs, so nested indexes
// expand one level per job.
func (d *DiscoveryExpander) ExpandSitemap(ctx context.Context, sourceID int64, sitemapURL string) (ExpansionResult, error) {
	sm, err := d.sitemap.ReadSitemap(ctx, sitemapURL)
	if err != nil {
		return ExpansionResult{}, err
	}

	var res ExpansionResult
	children := sm.ChildSitemaps
	if len(children) > MaxChildSitemaps {
		d.logger.Info("capping child sitemaps",
			zap.String("sitemap_url", sitemapURL),
			zap.Int("found", len(children)),
			zap.Int("kept", MaxChildSitemaps),
		)
		children = children[:MaxChildSitemaps]
	}
	if len(children) > 0 {
		r, err := d.Expand(ctx, sourceID, sitemapURL, entity.JobKindSitemap, children)
		if err != nil {
			return res, err
		}
		r.ChildSitemaps = len(children)
		res.add(r)
	}

	r, err := d.Expand(ctx, sourceID, sitemapURL, entity.JobKindSingleURL, sm.PageURLs)
	res.add(r)
	if err != nil {
		return res, err
	}

	d.logger.Info("sitemap expanded",
		zap.String("sitemap_url", sitemapURL),
		zap.Int("created", res.Created),
		zap.Int("skipped", res.Skipped),
		zap.Int("child_sitemaps", res.ChildSitemaps),
	)
	return res, nil
}

// ExpandSource fetches a source page and inserts its article links.
func (d *DiscoveryExpander) ExpandSource(ctx context.Context, sourceID int64, pageURL string) (ExpansionResult, error) {
	if d.links == nil {
		return ExpansionResult{}, fmt.Errorf("expand source %s: no link discoverer configured", pageURL)
	}
	urls, err := d.links.DiscoverLinks(ctx, pageURL)
	if err != nil {
		return ExpansionResult{}, err
	}
	res, err := d.Expand(ctx, sourceID, pageURL, entity.JobKindSingleURL, urls)
	if err != nil {
		return res, err
	}
	d.logger.Info("source expanded",
		zap.String("source_url", pageURL),
		zap.Int("links", len(urls)),
		zap.Int("created", res.Created),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

// Expand inserts one discovered job per distinct canonical URL. URLs that
// already have a pending or running job are counted as skipped.
func (d *DiscoveryExpander) Expand(ctx context.Context, sourceID int64, discoveredBy string, kind entity.JobKind, urls []string) (ExpansionResult, error) {
	var res ExpansionResult
	seen := make(map[string]struct{}, len(urls))
	now := d.now()

	for _, raw := range urls {
		u := content.CanonicalURL(raw)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}

		created, err := d.jobs.InsertDiscovered(ctx, entity.DiscoveredJob{
			SourceID:     sourceID,
			URL:          u,
			Kind:         kind,
			DiscoveredBy: discoveredBy,
			DiscoveredAt: now,
		})
		if err != nil {
			return res, fmt.Errorf("insert discovered job %s: %w", u, err)
		}
		if created {
			res.Created++
			metrics.DiscoveredJobsTotal.WithLabelValues("created").Inc()
		} else {
			res.Skipped++
			metrics.DiscoveredJobsTotal.WithLabelValues("skipped").Inc()
		}
	}
	return res, nil
}
