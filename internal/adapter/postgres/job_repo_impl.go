package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/user/article-crawler/internal/entity"
	"github.com/user/article-crawler/internal/repository"
)

const jobColumns = `id, url, source_id, kind, status, priority, retry_count, max_retries,
	scheduled_at, created_at, started_at, completed_at, error_message, metadata`

// JobRepoImpl provides a concrete implementation for the JobRepository interface using PostgreSQL.
type JobRepoImpl struct {
	db DBTX
}

// NewJobRepo creates a new instance of JobRepoImpl.
func NewJobRepo(db DBTX) *JobRepoImpl {
	return &JobRepoImpl{db: db}
}

var _ repository.JobRepository = (*JobRepoImpl)(nil)

// FetchPending retrieves due pending jobs in processing order.
func (r *JobRepoImpl) FetchPending(ctx context.Context, limit int) ([]*entity.CrawlJob, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM crawl_jobs
		WHERE status = 'pending'
		  AND (scheduled_at IS NULL OR scheduled_at <= NOW())
		ORDER BY priority DESC, COALESCE(scheduled_at, created_at) ASC, id ASC
		LIMIT $1;
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch pending jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*entity.CrawlJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Claim flips a pending job to running in a single conditional update, so a
// job already claimed by another processor is reported instead of rerun.
func (r *JobRepoImpl) Claim(ctx context.Context, id int64) (*entity.CrawlJob, error) {
	query := `
		UPDATE crawl_jobs
		SET status = 'running', started_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + jobColumns + `;
	`
	job, err := scanJob(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		if exists, existsErr := r.exists(ctx, id); existsErr != nil {
			return nil, existsErr
		} else if !exists {
			return nil, repository.ErrNotFound
		}
		return nil, repository.ErrJobNotClaimable
	}
	if err != nil {
		return nil, fmt.Errorf("claim job %d: %w", id, err)
	}
	return job, nil
}

// Transition updates status and timestamps and merges the metadata patch.
func (r *JobRepoImpl) Transition(ctx context.Context, id int64, t entity.JobTransition) error {
	patch, err := t.Metadata.JSON()
	if err != nil {
		return err
	}

	query := `
		UPDATE crawl_jobs SET
			status = $2::text,
			started_at = CASE WHEN $2::text = 'running' THEN NOW() ELSE started_at END,
			completed_at = CASE WHEN $2::text IN ('completed', 'failed') THEN NOW() ELSE completed_at END,
			error_message = NULLIF($3::text, ''),
			metadata = COALESCE(metadata, '{}'::jsonb) || $4::jsonb,
			scheduled_at = COALESCE($5::timestamptz, scheduled_at)
		WHERE id = $1 AND status NOT IN ('completed', 'failed');
	`
	tag, err := r.db.Exec(ctx, query, id, string(t.Status), entity.TruncateError(t.ErrorMessage), string(patch), t.RetryAt)
	if err != nil {
		return fmt.Errorf("transition job %d to %s: %w", id, t.Status, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	exists, err := r.exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrInvalidTransition
}

// IncrementRetry bumps retry_count atomically and returns the new value.
func (r *JobRepoImpl) IncrementRetry(ctx context.Context, id int64) (int, error) {
	query := `UPDATE crawl_jobs SET retry_count = retry_count + 1 WHERE id = $1 RETURNING retry_count;`
	var count int
	if err := r.db.QueryRow(ctx, query, id).Scan(&count); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, repository.ErrNotFound
		}
		return 0, fmt.Errorf("increment retry of job %d: %w", id, err)
	}
	return count, nil
}

// InsertDiscovered relies on the partial unique index over active URLs, so
// the existence check and the insert are one atomic statement.
func (r *JobRepoImpl) InsertDiscovered(ctx context.Context, d entity.DiscoveredJob) (bool, error) {
	kind := d.Kind
	if kind == "" {
		kind = entity.InferJobKind(d.URL)
	}
	discoveredAt := d.DiscoveredAt
	if discoveredAt.IsZero() {
		discoveredAt = time.Now()
	}
	meta, err := entity.Metadata{
		"discovered_from_sitemap": true,
		"sitemap_url":             d.DiscoveredBy,
		"discovered_at":           discoveredAt.UTC().Format(time.RFC3339),
	}.JSON()
	if err != nil {
		return false, err
	}

	query := `
		INSERT INTO crawl_jobs (url, source_id, kind, status, priority, retry_count, max_retries, metadata)
		VALUES ($1, $2, $3, 'pending', $4, 0, $5, $6::jsonb)
		ON CONFLICT DO NOTHING;
	`
	tag, err := r.db.Exec(ctx, query,
		d.URL,
		d.SourceID,
		string(kind),
		entity.DiscoveredPriority,
		entity.DefaultMaxRetries,
		string(meta),
	)
	if err != nil {
		return false, fmt.Errorf("insert discovered job %s: %w", d.URL, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Enqueue inserts a job unless one is already active for the URL, in which
// case the active job's id is returned.
func (r *JobRepoImpl) Enqueue(ctx context.Context, nj entity.NewJob) (int64, bool, error) {
	if nj.Kind == "" {
		nj.Kind = entity.InferJobKind(nj.URL)
	}
	if nj.MaxRetries <= 0 {
		nj.MaxRetries = entity.DefaultMaxRetries
	}
	meta, err := nj.Metadata.JSON()
	if err != nil {
		return 0, false, err
	}

	query := `
		INSERT INTO crawl_jobs (url, source_id, kind, status, priority, retry_count, max_retries, scheduled_at, metadata)
		VALUES ($1, $2, $3, 'pending', $4, 0, $5, $6, $7::jsonb)
		ON CONFLICT DO NOTHING
		RETURNING id;
	`
	var id int64
	err = r.db.QueryRow(ctx, query,
		nj.URL,
		nj.SourceID,
		string(nj.Kind),
		nj.Priority,
		nj.MaxRetries,
		nj.ScheduledAt,
		string(meta),
	).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, fmt.Errorf("enqueue %s: %w", nj.URL, err)
	}

	active := `SELECT id FROM crawl_jobs WHERE url = $1 AND status IN ('pending', 'running') LIMIT 1;`
	if err := r.db.QueryRow(ctx, active, nj.URL).Scan(&id); err != nil {
		return 0, false, fmt.Errorf("lookup active job for %s: %w", nj.URL, err)
	}
	return id, false, nil
}

// FindLatestByURL retrieves the newest job for a URL.
func (r *JobRepoImpl) FindLatestByURL(ctx context.Context, url string) (*entity.CrawlJob, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM crawl_jobs
		WHERE url = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1;
	`
	job, err := scanJob(r.db.QueryRow(ctx, query, url))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find job by url: %w", err)
	}
	return job, nil
}

func (r *JobRepoImpl) exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM crawl_jobs WHERE id = $1);`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check job %d: %w", id, err)
	}
	return exists, nil
}

func scanJob(row pgx.Row) (*entity.CrawlJob, error) {
	var (
		job      entity.CrawlJob
		kind     string
		status   string
		errMsg   *string
		metadata []byte
	)
	if err := row.Scan(
		&job.ID,
		&job.URL,
		&job.SourceID,
		&kind,
		&status,
		&job.Priority,
		&job.RetryCount,
		&job.MaxRetries,
		&job.ScheduledAt,
		&job.CreatedAt,
		&job.StartedAt,
		&job.CompletedAt,
		&errMsg,
		&metadata,
	); err != nil {
		return nil, err
	}

	job.Kind = entity.JobKind(kind)
	job.Status = entity.JobStatus(status)
	if errMsg != nil {
		job.ErrorMessage = *errMsg
	}
	meta, err := entity.ParseMetadata(metadata)
	if err != nil {
		return nil, err
	}
	job.Metadata = meta
	return &job, nil
}
