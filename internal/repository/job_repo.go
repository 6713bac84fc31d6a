package repository

import (
	"context"

	"github.com/user/article-crawler/internal/entity"
)

// JobRepository defines the contract for the durable crawl job table.
type JobRepository interface {
	// FetchPending returns up to limit pending jobs that are due, highest
	// priority first, then oldest scheduled_at (or created_at) first.
	FetchPending(ctx context.Context, limit int) ([]*entity.CrawlJob, error)
	// Claim moves a pending job to running and returns its snapshot. It
	// returns ErrJobNotClaimable if the job is no longer pending.
	Claim(ctx context.Context, id int64) (*entity.CrawlJob, error)
	// Transition changes a job's status, merging the metadata patch into the
	// stored metadata. Terminal jobs are refused with ErrInvalidTransition.
	Transition(ctx context.Context, id int64, t entity.JobTransition) error
	// IncrementRetry atomically bumps retry_count and returns the new value.
	IncrementRetry(ctx context.Context, id int64) (int, error)
	// InsertDiscovered creates a low-priority job unless a pending or running
	// job already exists for the URL. It reports whether a row was created.
	InsertDiscovered(ctx context.Context, job entity.DiscoveredJob) (bool, error)
	// Enqueue creates a job through the external enqueue path, with the same
	// idempotency rule as InsertDiscovered. It returns the id of the new or
	// the already active job.
	Enqueue(ctx context.Context, job entity.NewJob) (id int64, created bool, err error)
	// FindLatestByURL returns the most recently created job for a URL, or
	// ErrNotFound.
	FindLatestByURL(ctx context.Context, url string) (*entity.CrawlJob, error)
}
