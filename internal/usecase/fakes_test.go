package usecase

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/user/article-crawler/internal/adapter/memory"
	"github.com/user/article-crawler/internal/entity"
	"github.com/user/article-crawler/internal/repository"
)

type fakeExtractor struct {
	mu      sync.Mutex
	records map[string]*entity.ExtractedRecord
	errs    map[string]error
	calls   map[string]int
}

func newFakeExtractor() *fakeExtractor {
	return &fakeExtractor{
		records: make(map[string]*entity.ExtractedRecord),
		errs:    make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (f *fakeExtractor) Extract(_ context.Context, url string) (*entity.ExtractedRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[url]++
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	rec, ok := f.records[url]
	if !ok {
		return nil, repository.ErrExtractionFailed
	}
	c := *rec
	return &c, nil
}

func (f *fakeExtractor) Calls(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

type fakeSitemapReader struct {
	sitemaps map[string]*entity.Sitemap
}

func (f *fakeSitemapReader) ReadSitemap(_ context.Context, url string) (*entity.Sitemap, error) {
	sm, ok := f.sitemaps[url]
	if !ok {
		return nil, repository.ErrPageNotFound
	}
	return sm, nil
}

type fakeLinks struct {
	links []string
}

func (f *fakeLinks) DiscoverLinks(context.Context, string) ([]string, error) {
	return f.links, nil
}

// failingJobRepo wraps a job store and fails FetchPending.
type failingJobRepo struct {
	repository.JobRepository
	err   error
	calls int
}

func (f *failingJobRepo) FetchPending(context.Context, int) ([]*entity.CrawlJob, error) {
	f.calls++
	return nil, f.err
}

// flakyArticleRepo fails the first failures saves, then delegates.
type flakyArticleRepo struct {
	repository.ArticleRepository
	failures int
	err      error
}

func (f *flakyArticleRepo) SaveIfAbsent(ctx context.Context, a *entity.Article) (entity.SaveResult, error) {
	if f.failures > 0 {
		f.failures--
		return entity.SaveResult{}, f.err
	}
	return f.ArticleRepository.SaveIfAbsent(ctx, a)
}

// fixedClock is a manually advanced clock.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

type harness struct {
	clock     *fixedClock
	jobs      *memory.JobRepoImpl
	articles  *memory.ArticleRepoImpl
	extractor *fakeExtractor
	sitemaps  *fakeSitemapReader
	proc      *JobProcessor
	sleeps    []time.Duration
}

func newHarness(cfg ProcessorConfig) *harness {
	h := &harness{
		clock:     &fixedClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		articles:  memory.NewArticleRepo(),
		extractor: newFakeExtractor(),
		sitemaps:  &fakeSitemapReader{sitemaps: make(map[string]*entity.Sitemap)},
	}
	h.jobs = memory.NewJobRepo(h.clock.Now)

	discovery := NewDiscoveryExpander(h.jobs, h.sitemaps, nil, zap.NewNop())
	discovery.now = h.clock.Now

	h.proc = NewJobProcessor(h.jobs, h.articles, h.extractor, discovery,
		func(string) repository.SeenSet { return memory.NewSeenSet() },
		cfg, zap.NewNop())
	h.proc.now = h.clock.Now
	h.proc.sleep = func(d time.Duration) { h.sleeps = append(h.sleeps, d) }
	h.proc.jitter = func() float64 { return 0.5 }
	return h
}

func (h *harness) enqueue(url string, kind entity.JobKind) int64 {
	id, _, err := h.jobs.Enqueue(context.Background(), entity.NewJob{URL: url, SourceID: 7, Kind: kind})
	if err != nil {
		panic(err)
	}
	return id
}
