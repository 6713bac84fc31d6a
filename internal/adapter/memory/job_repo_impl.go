// Package memory holds process-local implementations of the repository
// interfaces. They back the --store=memory mode and the usecase tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/user/article-crawler/internal/entity"
	"github.com/user/article-crawler/internal/repository"
)

// JobRepoImpl keeps crawl jobs in a map guarded by a mutex.
type JobRepoImpl struct {
	mu     sync.Mutex
	jobs   map[int64]*entity.CrawlJob
	nextID int64
	now    func() time.Time
}

// NewJobRepo creates an empty job store. A nil clock defaults to time.Now.
func NewJobRepo(now func() time.Time) *JobRepoImpl {
	if now == nil {
		now = time.Now
	}
	return &JobRepoImpl{jobs: make(map[int64]*entity.CrawlJob), now: now}
}

var _ repository.JobRepository = (*JobRepoImpl)(nil)

func (r *JobRepoImpl) FetchPending(ctx context.Context, limit int) ([]*entity.CrawlJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var due []*entity.CrawlJob
	for _, j := range r.jobs {
		if j.Status != entity.JobStatusPending {
			continue
		}
		if j.ScheduledAt != nil && j.ScheduledAt.After(now) {
			continue
		}
		due = append(due, j)
	}

	sort.Slice(due, func(a, b int) bool {
		if due[a].Priority != due[b].Priority {
			return due[a].Priority > due[b].Priority
		}
		ta, tb := orderTime(due[a]), orderTime(due[b])
		if !ta.Equal(tb) {
			return ta.Before(tb)
		}
		return due[a].ID < due[b].ID
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	out := make([]*entity.CrawlJob, len(due))
	for i, j := range due {
		out[i] = cloneJob(j)
	}
	return out, nil
}

func orderTime(j *entity.CrawlJob) time.Time {
	if j.ScheduledAt != nil {
		return *j.ScheduledAt
	}
	return j.CreatedAt
}

func (r *JobRepoImpl) Claim(ctx context.Context, id int64) (*entity.CrawlJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if j.Status != entity.JobStatusPending {
		return nil, repository.ErrJobNotClaimable
	}
	now := r.now()
	j.Status = entity.JobStatusRunning
	j.StartedAt = &now
	return cloneJob(j), nil
}

func (r *JobRepoImpl) Transition(ctx context.Context, id int64, t entity.JobTransition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return repository.ErrNotFound
	}
	if j.Status.IsTerminal() {
		return repository.ErrInvalidTransition
	}

	now := r.now()
	j.Status = t.Status
	switch t.Status {
	case entity.JobStatusRunning:
		j.StartedAt = &now
	case entity.JobStatusCompleted, entity.JobStatusFailed:
		j.CompletedAt = &now
	}
	j.ErrorMessage = entity.TruncateError(t.ErrorMessage)
	if len(t.Metadata) > 0 {
		j.Metadata = j.Metadata.Merge(t.Metadata)
	}
	if t.RetryAt != nil {
		at := *t.RetryAt
		j.ScheduledAt = &at
	}
	return nil
}

func (r *JobRepoImpl) IncrementRetry(ctx context.Context, id int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	j.RetryCount++
	return j.RetryCount, nil
}

func (r *JobRepoImpl) InsertDiscovered(ctx context.Context, d entity.DiscoveredJob) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.activeLocked(d.URL) != nil {
		return false, nil
	}
	kind := d.Kind
	if kind == "" {
		kind = entity.InferJobKind(d.URL)
	}
	discoveredAt := d.DiscoveredAt
	if discoveredAt.IsZero() {
		discoveredAt = r.now()
	}
	r.insertLocked(entity.NewJob{
		URL:        d.URL,
		SourceID:   d.SourceID,
		Kind:       kind,
		Priority:   entity.DiscoveredPriority,
		MaxRetries: entity.DefaultMaxRetries,
		Metadata: entity.Metadata{
			"discovered_from_sitemap": true,
			"sitemap_url":             d.DiscoveredBy,
			"discovered_at":           discoveredAt.UTC().Format(time.RFC3339),
		},
	})
	return true, nil
}

func (r *JobRepoImpl) Enqueue(ctx context.Context, nj entity.NewJob) (int64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing := r.activeLocked(nj.URL); existing != nil {
		return existing.ID, false, nil
	}
	if nj.Kind == "" {
		nj.Kind = entity.InferJobKind(nj.URL)
	}
	if nj.MaxRetries <= 0 {
		nj.MaxRetries = entity.DefaultMaxRetries
	}
	return r.insertLocked(nj).ID, true, nil
}

func (r *JobRepoImpl) FindLatestByURL(ctx context.Context, url string) (*entity.CrawlJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest *entity.CrawlJob
	for _, j := range r.jobs {
		if j.URL != url {
			continue
		}
		if latest == nil || j.ID > latest.ID {
			latest = j
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	return cloneJob(latest), nil
}

// Get returns a snapshot of one job.
func (r *JobRepoImpl) Get(id int64) (*entity.CrawlJob, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, false
	}
	return cloneJob(j), true
}

// Len returns the number of stored jobs.
func (r *JobRepoImpl) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

func (r *JobRepoImpl) activeLocked(url string) *entity.CrawlJob {
	for _, j := range r.jobs {
		if j.URL == url && (j.Status == entity.JobStatusPending || j.Status == entity.JobStatusRunning) {
			return j
		}
	}
	return nil
}

func (r *JobRepoImpl) insertLocked(nj entity.NewJob) *entity.CrawlJob {
	r.nextID++
	j := &entity.CrawlJob{
		ID:         r.nextID,
		URL:        nj.URL,
		SourceID:   nj.SourceID,
		Kind:       nj.Kind,
		Status:     entity.JobStatusPending,
		Priority:   nj.Priority,
		MaxRetries: nj.MaxRetries,
		CreatedAt:  r.now(),
		Metadata:   entity.Metadata{}.Merge(nj.Metadata),
	}
	if nj.ScheduledAt != nil {
		at := *nj.ScheduledAt
		j.ScheduledAt = &at
	}
	r.jobs[j.ID] = j
	return j
}

func cloneJob(j *entity.CrawlJob) *entity.CrawlJob {
	c := *j
	c.Metadata = entity.Metadata{}.Merge(j.Metadata)
	return &c
}
