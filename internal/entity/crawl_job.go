package entity

import (
	"net/url"
	"strings"
	"time"
)

// JobStatus is the lifecycle state of a crawl job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal reports whether no further status change is allowed.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Valid reports whether s is one of the known statuses.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// JobKind selects how a job is processed.
type JobKind string

const (
	// JobKindSingleURL extracts one article from the job URL.
	JobKindSingleURL JobKind = "single_url"
	// JobKindSitemap expands a sitemap into discovered jobs.
	JobKindSitemap JobKind = "sitemap"
)

// Valid reports whether k is one of the known kinds.
func (k JobKind) Valid() bool {
	return k == JobKindSingleURL || k == JobKindSitemap
}

const (
	// DefaultPriority is used for directly enqueued work.
	DefaultPriority = 0
	// DiscoveredPriority ranks discovered work below directly enqueued work.
	DiscoveredPriority = -1
	// DefaultMaxRetries bounds the attempts of a job.
	DefaultMaxRetries = 3
	// MaxErrorMessageLength bounds stored error messages.
	MaxErrorMessageLength = 1000
)

// CrawlJob mirrors the `crawl_jobs` table.
type CrawlJob struct {
	ID           int64
	URL          string
	SourceID     int64
	Kind         JobKind
	Status       JobStatus
	Priority     int
	RetryCount   int
	MaxRetries   int
	ScheduledAt  *time.Time
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ErrorMessage string
	Metadata     Metadata
}

// NewJob is the payload of the external enqueue path.
type NewJob struct {
	URL         string
	SourceID    int64
	Kind        JobKind
	Priority    int
	MaxRetries  int
	ScheduledAt *time.Time
	Metadata    Metadata
}

// DiscoveredJob is a URL surfaced by discovery expansion.
type DiscoveredJob struct {
	SourceID     int64
	URL          string
	Kind         JobKind
	DiscoveredBy string // sitemap or source page the URL was found on
	DiscoveredAt time.Time
}

// JobTransition describes a status change and the fields that travel with it.
type JobTransition struct {
	Status       JobStatus
	ErrorMessage string
	Metadata     Metadata
	// RetryAt becomes the job's scheduled_at when set.
	RetryAt *time.Time
}

// InferJobKind guesses the job shape from a URL. It is the fallback for
// callers that do not name a kind and runs once, when a job is created; the
// processor only ever looks at the stored kind.
func InferJobKind(rawURL string) JobKind {
	u, err := url.Parse(rawURL)
	if err != nil {
		return JobKindSingleURL
	}
	p := strings.ToLower(u.Path)
	base := p[strings.LastIndex(p, "/")+1:]
	if strings.HasPrefix(base, "sitemap") || strings.HasSuffix(base, "sitemap.xml") || strings.HasSuffix(base, "sitemap.xml.gz") {
		return JobKindSitemap
	}
	return JobKindSingleURL
}

// TruncateError bounds an error message to MaxErrorMessageLength bytes
// without splitting a UTF-8 sequence.
func TruncateError(msg string) string {
	if len(msg) <= MaxErrorMessageLength {
		return msg
	}
	cut := MaxErrorMessageLength
	for cut > 0 && !isRuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
