package usecase

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/article-crawler/internal/adapter/memory"
	"github.com/user/article-crawler/internal/entity"
)

func TestExpandSitemapIndexCapsChildren(t *testing.T) {
	jobs := memory.NewJobRepo(nil)
	index := "https://news.example/sitemap_index.xml"
	var children []string
	for i := 0; i < MaxChildSitemaps+5; i++ {
		children = append(children, fmt.Sprintf("https://news.example/sitemap-%d.xml", i))
	}
	reader := &fakeSitemapReader{sitemaps: map[string]*entity.Sitemap{
		index: {URL: index, ChildSitemaps: children},
	}}
	d := NewDiscoveryExpander(jobs, reader, nil, zap.NewNop())

	res, err := d.ExpandSitemap(context.Background(), 1, index)
	require.NoError(t, err)
	assert.Equal(t, MaxChildSitemaps, res.Created)
	assert.Equal(t, MaxChildSitemaps, res.ChildSitemaps)
	assert.Equal(t, MaxChildSitemaps, jobs.Len())

	child, ok := jobs.Get(1)
	require.True(t, ok)
	assert.Equal(t, entity.JobKindSitemap, child.Kind)
	assert.Equal(t, entity.DiscoveredPriority, child.Priority)
	assert.Equal(t, true, child.Metadata["discovered_from_sitemap"])
}

func TestExpandDeduplicatesBatch(t *testing.T) {
	jobs := memory.NewJobRepo(nil)
	d := NewDiscoveryExpander(jobs, &fakeSitemapReader{}, nil, zap.NewNop())

	res, err := d.Expand(context.Background(), 1, "https://news.example/", entity.JobKindSingleURL, []string{
		"https://news.example/a",
		"https://news.example/a?utm_source=rss",
		"https://news.example/a#top",
		"https://news.example/b",
		"",
	})
	require.NoError(t, err)
	assert.Equal(t, ExpansionResult{Created: 2}, res)

	// Expanding again finds both jobs still pending.
	res, err = d.Expand(context.Background(), 1, "https://news.example/", entity.JobKindSingleURL, []string{
		"https://news.example/a", "https://news.example/b",
	})
	require.NoError(t, err)
	assert.Equal(t, ExpansionResult{Skipped: 2}, res)
}

func TestExpandSource(t *testing.T) {
	jobs := memory.NewJobRepo(nil)
	links := &fakeLinks{links: []string{"https://news.example/2024/05/01/a", "https://news.example/news/b"}}
	d := NewDiscoveryExpander(jobs, &fakeSitemapReader{}, links, zap.NewNop())

	res, err := d.ExpandSource(context.Background(), 4, "https://news.example/")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)

	job, ok := jobs.Get(1)
	require.True(t, ok)
	assert.Equal(t, int64(4), job.SourceID)
	assert.Equal(t, "https://news.example/", job.Metadata["sitemap_url"])
}

func TestExpandSourceWithoutDiscoverer(t *testing.T) {
	d := NewDiscoveryExpander(memory.NewJobRepo(nil), &fakeSitemapReader{}, nil, zap.NewNop())
	_, err := d.ExpandSource(context.Background(), 1, "https://news.example/")
	assert.Error(t, err)
}
