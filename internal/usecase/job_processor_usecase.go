package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/article-crawler/internal/content"
	"github.com/user/article-crawler/internal/entity"
	"github.com/user/article-crawler/internal/repository"
	"github.com/user/article-crawler/pkg/metrics"
)

const (
	defaultBatchSize         = 10
	defaultJobDelay          = 2 * time.Second
	defaultSleepInterval     = 60 * time.Second
	defaultMaxStoreErrors    = 5
	defaultTransitionTimeout = 10 * time.Second
	jitterFactor             = 0.2 // +/- 20%
	maxBackoffShift          = 10
)

// Outcome is how a processed job ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeRetried   Outcome = "retried"
	OutcomeFailed    Outcome = "failed"
	OutcomeRejected  Outcome = "rejected"

	// OutcomeInterrupted is a job put back to pending because the run was
	// cancelled while it was in flight. It does not consume a retry.
	OutcomeInterrupted Outcome = "interrupted"
)

// ProcessorConfig tunes the processing loop. Zero values take defaults,
// except RetryBackoff where zero disables scheduling retries in the future.
type ProcessorConfig struct {
	BatchSize         int
	JobDelay          time.Duration
	SleepInterval     time.Duration
	MaxStoreErrors    int
	RetryBackoff      time.Duration
	TransitionTimeout time.Duration
}

func (c ProcessorConfig) withDefaults() ProcessorConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.JobDelay < 0 {
		c.JobDelay = 0
	}
	if c.SleepInterval <= 0 {
		c.SleepInterval = defaultSleepInterval
	}
	if c.MaxStoreErrors <= 0 {
		c.MaxStoreErrors = defaultMaxStoreErrors
	}
	if c.TransitionTimeout <= 0 {
		c.TransitionTimeout = defaultTransitionTimeout
	}
	return c
}

// DefaultProcessorConfig returns the settings used when nothing is configured.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		BatchSize:      defaultBatchSize,
		JobDelay:       defaultJobDelay,
		SleepInterval:  defaultSleepInterval,
		MaxStoreErrors: defaultMaxStoreErrors,
		RetryBackoff:   5 * time.Second,
	}
}

// RunOptions select between bounded and continuous processing.
type RunOptions struct {
	// MaxJobs stops the run after that many processed jobs. Zero means no bound.
	MaxJobs int
	// Continuous keeps polling when no job is pending instead of returning.
	Continuous bool
	// SleepInterval overrides the configured idle sleep when positive.
	SleepInterval time.Duration
}

// RunStats summarises one Run.
type RunStats struct {
	RunID       string
	Processed   int
	Completed   int
	Duplicates  int
	Retried     int
	Failed      int
	Rejected    int
	Interrupted int
}

func (s *RunStats) record(o Outcome) {
	s.Processed++
	switch o {
	case OutcomeCompleted:
		s.Completed++
	case OutcomeDuplicate:
		s.Duplicates++
	case OutcomeRetried:
		s.Retried++
	case OutcomeFailed:
		s.Failed++
	case OutcomeRejected:
		s.Rejected++
	case OutcomeInterrupted:
		s.Interrupted++
	}
}

// SeenSetFactory builds the in-run dedup set of one Run.
type SeenSetFactory func(runID string) repository.SeenSet

// JobProcessor claims pending jobs and drives each through extraction,
// normalization, scoring, dedup and persistence, one job at a time.
type JobProcessor struct {
	jobs       repository.JobRepository
	articles   repository.ArticleRepository
	extractor  repository.Extractor
	discovery  *DiscoveryExpander
	newSeenSet SeenSetFactory
	cfg        ProcessorConfig
	logger     *zap.Logger

	// sleep is the blocking inter-job pause.
	sleep  func(time.Duration)
	now    func() time.Time
	jitter func() float64
}

// NewJobProcessor wires a processor. discovery handles sitemap jobs.
func NewJobProcessor(
	jobs repository.JobRepository,
	articles repository.ArticleRepository,
	extractor repository.Extractor,
	discovery *DiscoveryExpander,
	newSeenSet SeenSetFactory,
	cfg ProcessorConfig,
	logger *zap.Logger,
) *JobProcessor {
	return &JobProcessor{
		jobs:       jobs,
		articles:   articles,
		extractor:  extractor,
		discovery:  discovery,
		newSeenSet: newSeenSet,
		cfg:        cfg.withDefaults(),
		logger:     logger.With(zap.String("component", "job_processor")),
		sleep:      time.Sleep,
		now:        time.Now,
		jitter:     rand.Float64,
	}
}

// Run processes pending jobs until the bound is reached, no job is left
// (bounded mode) or ctx is cancelled. Cancellation is a clean stop: the
// in-flight job finishes its store transition and Run returns nil.
func (p *JobProcessor) Run(ctx context.Context, opts RunOptions) (RunStats, error) {
	runID := uuid.NewString()
	stats := RunStats{RunID: runID}
	logger := p.logger.With(zap.String("run_id", runID))

	dedup := content.NewDeduplicator(p.newSeenSet(runID))
	defer func() {
		if err := dedup.Reset(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("failed to reset run dedup set", zap.Error(err))
		}
	}()

	sleepInterval := p.cfg.SleepInterval
	if opts.SleepInterval > 0 {
		sleepInterval = opts.SleepInterval
	}

	logger.Info("processor started",
		zap.Int("max_jobs", opts.MaxJobs),
		zap.Bool("continuous", opts.Continuous),
		zap.Duration("sleep_interval", sleepInterval),
	)

	storeErrors := 0
	claimedAny := false
	for {
		if ctx.Err() != nil {
			logger.Info("processor stopped", zap.Int("processed", stats.Processed))
			return stats, nil
		}

		limit := p.cfg.BatchSize
		if opts.MaxJobs > 0 {
			remaining := opts.MaxJobs - stats.Processed
			if remaining <= 0 {
				logger.Info("reached max jobs", zap.Int("processed", stats.Processed))
				return stats, nil
			}
			limit = min(limit, remaining)
		}

		jobs, err := p.jobs.FetchPending(ctx, limit)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			storeErrors++
			logger.Error("failed to fetch pending jobs", zap.Int("consecutive_errors", storeErrors), zap.Error(err))
			if storeErrors >= p.cfg.MaxStoreErrors {
				return stats, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
			}
			sleepContext(ctx, p.cfg.JobDelay)
			continue
		}
		storeErrors = 0
		metrics.PendingJobsFetched.Set(float64(len(jobs)))

		if len(jobs) == 0 {
			if !opts.Continuous {
				logger.Info("no pending jobs", zap.Int("processed", stats.Processed))
				return stats, nil
			}
			logger.Debug("no pending jobs, sleeping", zap.Duration("interval", sleepInterval))
			sleepContext(ctx, sleepInterval)
			continue
		}

		for _, job := range jobs {
			if ctx.Err() != nil {
				break
			}
			if claimedAny {
				p.sleep(p.cfg.JobDelay)
				if ctx.Err() != nil {
					break
				}
			}
			claimedAny = true

			outcome, err := p.processJob(ctx, logger, dedup, job)
			if errors.Is(err, repository.ErrJobNotClaimable) || errors.Is(err, repository.ErrNotFound) {
				logger.Debug("job taken by another processor", zap.Int64("job_id", job.ID))
				continue
			}
			if err != nil {
				storeErrors++
				logger.Error("job store failure", zap.Int64("job_id", job.ID), zap.Int("consecutive_errors", storeErrors), zap.Error(err))
				if storeErrors >= p.cfg.MaxStoreErrors {
					return stats, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
				}
				continue
			}
			storeErrors = 0
			stats.record(outcome)

			if opts.MaxJobs > 0 && stats.Processed >= opts.MaxJobs {
				break
			}
		}
	}
}

// ProcessJob runs one job with a dedup set of its own. It is the entry point
// for processing a single job outside of Run.
func (p *JobProcessor) ProcessJob(ctx context.Context, job *entity.CrawlJob) (Outcome, error) {
	dedup := content.NewDeduplicator(p.newSeenSet(uuid.NewString()))
	defer func() { _ = dedup.Reset(context.WithoutCancel(ctx)) }()
	return p.processJob(ctx, p.logger, dedup, job)
}

// processJob claims job, processes it and records the resulting transition.
// The returned error is only set for job store failures; everything that
// goes wrong with the job itself ends up in its status.
func (p *JobProcessor) processJob(ctx context.Context, logger *zap.Logger, dedup *content.Deduplicator, job *entity.CrawlJob) (Outcome, error) {
	claimed, err := p.jobs.Claim(ctx, job.ID)
	if err != nil {
		return "", fmt.Errorf("claim job %d: %w", job.ID, err)
	}
	logger = logger.With(
		zap.Int64("job_id", claimed.ID),
		zap.String("url", claimed.URL),
		zap.String("kind", string(claimed.Kind)),
		zap.Int("retry_count", claimed.RetryCount),
	)
	logger.Info("processing job")

	start := p.now()
	var (
		patch   entity.Metadata
		outcome Outcome
		procErr error
	)
	switch claimed.Kind {
	case entity.JobKindSitemap:
		patch, procErr = p.processSitemap(ctx, claimed)
		outcome = OutcomeCompleted
	default:
		patch, outcome, procErr = p.processArticle(ctx, logger, dedup, claimed)
	}
	metrics.ExtractionDuration.WithLabelValues(domainOf(claimed.URL)).Observe(p.now().Sub(start).Seconds())

	// The transition must land even when ctx was cancelled mid-job.
	tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.TransitionTimeout)
	defer cancel()

	if procErr != nil && errors.Is(procErr, context.Canceled) && ctx.Err() != nil {
		return p.release(tctx, logger, claimed)
	}
	if procErr != nil {
		return p.handleFailure(tctx, logger, claimed, procErr)
	}

	if err := p.jobs.Transition(tctx, claimed.ID, entity.JobTransition{
		Status:   entity.JobStatusCompleted,
		Metadata: patch,
	}); err != nil {
		return "", fmt.Errorf("complete job %d: %w", claimed.ID, err)
	}
	metrics.JobsProcessedTotal.WithLabelValues(string(claimed.Kind), string(outcome)).Inc()
	logger.Info("job completed", zap.String("outcome", string(outcome)), zap.Duration("duration", p.now().Sub(start)))
	return outcome, nil
}

func (p *JobProcessor) processArticle(ctx context.Context, logger *zap.Logger, dedup *content.Deduplicator, job *entity.CrawlJob) (entity.Metadata, Outcome, error) {
	result, err := p.extractAndAssess(ctx, job.URL)
	if err != nil {
		return nil, "", err
	}
	norm := result.Record

	patch := entity.Metadata{
		"crawl_type":            string(job.Kind),
		"extraction_successful": true,
		"title":                 norm.Title,
		"content_length":        len([]rune(norm.Text)),
		"quality_score":         result.Assessment.Score,
	}

	reason, err := dedup.Check(ctx, norm.URL, norm.ContentHash)
	if err != nil {
		// The store still deduplicates, so a broken seen set only costs a write.
		logger.Warn("in-run dedup unavailable", zap.Error(err))
	}
	if reason != content.NotDuplicate {
		logger.Info("duplicate article dropped", zap.String("duplicate_key", string(reason)))
		patch["duplicate"] = "in_run"
		patch["duplicate_key"] = string(reason)
		return patch, OutcomeDuplicate, nil
	}

	article := buildArticle(job.SourceID, job.ID, result, p.now())
	saved, err := p.articles.SaveIfAbsent(ctx, article)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", errPersistence, err)
	}
	if err := dedup.Mark(ctx, norm.URL, norm.ContentHash); err != nil {
		logger.Warn("in-run dedup mark failed", zap.Error(err))
	}
	patch["article_id"] = saved.ArticleID
	if !saved.Created {
		metrics.ArticlesPersistedTotal.WithLabelValues("existing").Inc()
		logger.Info("article already stored", zap.Int64("article_id", saved.ArticleID))
		patch["duplicate"] = "store"
		return patch, OutcomeDuplicate, nil
	}
	metrics.ArticlesPersistedTotal.WithLabelValues("created").Inc()
	logger.Info("article saved", zap.Int64("article_id", saved.ArticleID), zap.Int("quality_score", result.Assessment.Score))
	return patch, OutcomeCompleted, nil
}

func (p *JobProcessor) processSitemap(ctx context.Context, job *entity.CrawlJob) (entity.Metadata, error) {
	res, err := p.discovery.ExpandSitemap(ctx, job.SourceID, job.URL)
	if err != nil {
		return nil, err
	}
	return entity.Metadata{
		"crawl_type":            string(entity.JobKindSitemap),
		"extraction_successful": true,
		"discovered":            res.Created,
		"skipped":               res.Skipped,
		"child_sitemaps":        res.ChildSitemaps,
	}, nil
}

// handleFailure applies the retry rule: with the retry count read at claim
// time, retry while retry_count+1 < max_retries and fail otherwise. Quality
// rejections fail at once since refetching gives the same content.
func (p *JobProcessor) handleFailure(ctx context.Context, logger *zap.Logger, job *entity.CrawlJob, cause error) (Outcome, error) {
	errType := errorType(cause)
	msg := ExplainError(job.URL, cause)
	metrics.ExtractionErrorsTotal.WithLabelValues(errType).Inc()

	if errors.Is(cause, content.ErrQualityRejected) {
		if err := p.jobs.Transition(ctx, job.ID, entity.JobTransition{
			Status:       entity.JobStatusFailed,
			ErrorMessage: msg,
			Metadata: entity.Metadata{
				"crawl_type":            string(job.Kind),
				"extraction_successful": true,
				"error_type":            errType,
			},
		}); err != nil {
			return "", fmt.Errorf("fail job %d: %w", job.ID, err)
		}
		metrics.JobsProcessedTotal.WithLabelValues(string(job.Kind), string(OutcomeRejected)).Inc()
		logger.Warn("job rejected by quality gate", zap.String("reason", msg))
		return OutcomeRejected, nil
	}

	if _, err := p.jobs.IncrementRetry(ctx, job.ID); err != nil {
		return "", fmt.Errorf("increment retry of job %d: %w", job.ID, err)
	}

	attempt := job.RetryCount + 1
	failMeta := entity.Metadata{
		"crawl_type":            string(job.Kind),
		"extraction_successful": false,
		"error_type":            errType,
		"attempt":               attempt,
	}

	if attempt < job.MaxRetries {
		retryAt := p.retryAt(job.RetryCount)
		if err := p.jobs.Transition(ctx, job.ID, entity.JobTransition{
			Status:       entity.JobStatusPending,
			ErrorMessage: msg,
			Metadata:     failMeta,
			RetryAt:      retryAt,
		}); err != nil {
			return "", fmt.Errorf("requeue job %d: %w", job.ID, err)
		}
		metrics.JobsProcessedTotal.WithLabelValues(string(job.Kind), string(OutcomeRetried)).Inc()
		fields := []zap.Field{zap.Int("attempt", attempt), zap.String("error_type", errType), zap.Error(cause)}
		if retryAt != nil {
			fields = append(fields, zap.Time("retry_at", *retryAt))
		}
		logger.Warn("job failed, will retry", fields...)
		return OutcomeRetried, nil
	}

	if err := p.jobs.Transition(ctx, job.ID, entity.JobTransition{
		Status:       entity.JobStatusFailed,
		ErrorMessage: msg,
		Metadata:     failMeta,
	}); err != nil {
		return "", fmt.Errorf("fail job %d: %w", job.ID, err)
	}
	metrics.JobsProcessedTotal.WithLabelValues(string(job.Kind), string(OutcomeFailed)).Inc()
	logger.Error("job failed permanently", zap.Int("attempt", attempt), zap.String("error_type", errType), zap.Error(cause))
	return OutcomeFailed, nil
}

// release puts an interrupted job back to pending so the next run picks it up.
func (p *JobProcessor) release(ctx context.Context, logger *zap.Logger, job *entity.CrawlJob) (Outcome, error) {
	if err := p.jobs.Transition(ctx, job.ID, entity.JobTransition{
		Status:       entity.JobStatusPending,
		ErrorMessage: "processing interrupted by shutdown",
	}); err != nil {
		return "", fmt.Errorf("release job %d: %w", job.ID, err)
	}
	metrics.JobsProcessedTotal.WithLabelValues(string(job.Kind), string(OutcomeInterrupted)).Inc()
	logger.Info("job released after cancellation")
	return OutcomeInterrupted, nil
}

// retryAt doubles the configured backoff per previous attempt and applies
// jitter. It returns nil when backoff is disabled.
func (p *JobProcessor) retryAt(previousAttempts int) *time.Time {
	if p.cfg.RetryBackoff <= 0 {
		return nil
	}
	shift := min(previousAttempts, maxBackoffShift)
	backoff := p.cfg.RetryBackoff * time.Duration(1<<shift)
	jitter := time.Duration((p.jitter()*2 - 1) * jitterFactor * float64(backoff))
	at := p.now().Add(backoff + jitter)
	return &at
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return u.Hostname()
}
