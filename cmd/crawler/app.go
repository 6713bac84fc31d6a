package main

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/user/article-crawler/internal/adapter/extractor"
	"github.com/user/article-crawler/internal/adapter/memory"
	"github.com/user/article-crawler/internal/adapter/postgres"
	redisadapter "github.com/user/article-crawler/internal/adapter/redis"
	"github.com/user/article-crawler/internal/repository"
	"github.com/user/article-crawler/internal/usecase"
	"github.com/user/article-crawler/pkg/config"
	"github.com/user/article-crawler/pkg/logger"
)

// app holds the wired dependencies of one command invocation.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	jobs      repository.JobRepository
	articles  repository.ArticleRepository
	extractor *extractor.ArticleExtractor
	seenSets  usecase.SeenSetFactory
	closers   []func()
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if storeFlag != "" {
		cfg.Store.Driver = storeFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: log}
	a.closers = append(a.closers, func() { _ = log.Sync() })

	if err := a.openStores(ctx); err != nil {
		a.close()
		return nil, err
	}
	if err := a.openSeenSets(ctx); err != nil {
		a.close()
		return nil, err
	}
	a.openExtractor()
	return a, nil
}

func (a *app) openStores(ctx context.Context) error {
	switch a.cfg.Store.Driver {
	case "memory":
		a.jobs = memory.NewJobRepo(nil)
		a.articles = memory.NewArticleRepo()
		a.logger.Warn("using in-memory store, jobs do not outlive the process")
		return nil
	default:
		pool, err := postgres.Connect(ctx, a.cfg.Database.URL, a.cfg.Database.MaxConns)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, pool.Close)
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		a.jobs = postgres.NewJobRepo(pool)
		a.articles = postgres.NewArticleRepo(pool)
		a.logger.Info("postgres store ready")
		return nil
	}
}

func (a *app) openSeenSets(ctx context.Context) error {
	if a.cfg.Dedup.Backend != "redis" {
		a.seenSets = func(string) repository.SeenSet { return memory.NewSeenSet() }
		return nil
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("connect to redis %s: %w", a.cfg.Redis.Addr, err)
	}
	a.closers = append(a.closers, func() { _ = rdb.Close() })
	ttl := a.cfg.Dedup.TTL
	a.seenSets = func(runID string) repository.SeenSet {
		return redisadapter.NewSeenSet(rdb, runID, ttl)
	}
	a.logger.Info("redis dedup set ready", zap.String("addr", a.cfg.Redis.Addr))
	return nil
}

func (a *app) openExtractor() {
	var fetcher extractor.Fetcher
	if a.cfg.Extractor.Mode == "chromedp" {
		cf := extractor.NewChromedpFetcher(a.cfg.Extractor.UserAgent, a.cfg.Extractor.Timeout, a.logger)
		a.closers = append(a.closers, func() { _ = cf.Close() })
		fetcher = cf
	} else {
		fetcher = extractor.NewHTTPFetcher(a.cfg.Extractor.Timeout, a.cfg.Extractor.UserAgent)
	}
	a.extractor = extractor.New(fetcher, a.logger)
}

func (a *app) discovery() *usecase.DiscoveryExpander {
	return usecase.NewDiscoveryExpander(a.jobs, a.extractor, a.extractor, a.logger)
}

func (a *app) processor() *usecase.JobProcessor {
	pc := a.cfg.Processor
	return usecase.NewJobProcessor(a.jobs, a.articles, a.extractor, a.discovery(), a.seenSets,
		usecase.ProcessorConfig{
			BatchSize:      pc.BatchSize,
			JobDelay:       pc.JobDelay,
			SleepInterval:  pc.SleepInterval,
			MaxStoreErrors: pc.MaxStoreErrors,
			RetryBackoff:   pc.RetryBackoff,
		}, a.logger)
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
