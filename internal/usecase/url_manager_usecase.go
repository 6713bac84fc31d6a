package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/user/article-crawler/internal/content"
	"github.com/user/article-crawler/internal/entity"
	"github.com/user/article-crawler/internal/repository"
)

// ErrInvalidURL is returned for URLs that are not absolute http(s) URLs.
var ErrInvalidURL = errors.New("url must be an absolute http or https url")

// ErrInvalidJobKind is returned for a kind other than single_url or sitemap.
var ErrInvalidJobKind = errors.New("job kind must be single_url or sitemap")

// SubmitRequest is one externally enqueued crawl.
type SubmitRequest struct {
	URL         string
	SourceID    int64
	// Kind is inferred from the URL when empty.
	Kind        entity.JobKind
	Priority    int
	MaxRetries  int
	ScheduledAt *time.Time
}

// SubmitResult identifies the job that serves a submission.
type SubmitResult struct {
	JobID int64
	URL   string
	Kind  entity.JobKind
	// Created is false when an active job for the URL already existed.
	Created bool
}

// URLManager defines the interface for submitting and checking URLs.
type URLManager interface {
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error)
	GetStatus(ctx context.Context, url string) (*entity.CrawlStatus, error)
}

type urlManagerUseCase struct {
	jobs   repository.JobRepository
	logger *zap.Logger
}

// NewURLManager creates a new URLManager use case.
func NewURLManager(jobs repository.JobRepository, logger *zap.Logger) URLManager {
	return &urlManagerUseCase{
		jobs:   jobs,
		logger: logger.With(zap.String("component", "url_manager")),
	}
}

func (uc *urlManagerUseCase) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if err := validateURL(req.URL); err != nil {
		return nil, err
	}
	kind := req.Kind
	if kind != "" && !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidJobKind, kind)
	}
	canonical := content.CanonicalURL(req.URL)
	if kind == "" {
		kind = entity.InferJobKind(canonical)
	}

	id, created, err := uc.jobs.Enqueue(ctx, entity.NewJob{
		URL:         canonical,
		SourceID:    req.SourceID,
		Kind:        kind,
		Priority:    req.Priority,
		MaxRetries:  req.MaxRetries,
		ScheduledAt: req.ScheduledAt,
		Metadata:    entity.Metadata{"enqueued_at": time.Now().UTC().Format(time.RFC3339)},
	})
	if err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", canonical, err)
	}

	if created {
		uc.logger.Info("job enqueued", zap.Int64("job_id", id), zap.String("url", canonical), zap.String("kind", string(kind)))
	} else {
		uc.logger.Info("job already active", zap.Int64("job_id", id), zap.String("url", canonical))
	}
	return &SubmitResult{JobID: id, URL: canonical, Kind: kind, Created: created}, nil
}

func (uc *urlManagerUseCase) GetStatus(ctx context.Context, rawURL string) (*entity.CrawlStatus, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}
	canonical := content.CanonicalURL(rawURL)

	job, err := uc.jobs.FindLatestByURL(ctx, canonical)
	if errors.Is(err, repository.ErrNotFound) {
		return &entity.CrawlStatus{URL: canonical, CurrentStatus: entity.StatusNotFound}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find job for %s: %w", canonical, err)
	}

	status := &entity.CrawlStatus{
		URL:           canonical,
		JobID:         job.ID,
		Kind:          job.Kind,
		CurrentStatus: string(job.Status),
		RetryCount:    job.RetryCount,
		MaxRetries:    job.MaxRetries,
		StartedAt:     job.StartedAt,
		CompletedAt:   job.CompletedAt,
		FailureReason: job.ErrorMessage,
		Metadata:      job.Metadata,
	}
	if job.Status == entity.JobStatusPending && job.RetryCount > 0 {
		status.NextRetryAt = job.ScheduledAt
	}
	return status, nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return nil
}
