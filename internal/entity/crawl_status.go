package entity

import "time"

// CrawlStatus is the externally visible state of the latest job for a URL.
type CrawlStatus struct {
	URL           string
	JobID         int64
	Kind          JobKind
	CurrentStatus string // a JobStatus or "not_found"
	RetryCount    int
	MaxRetries    int
	StartedAt     *time.Time
	CompletedAt   *time.Time
	NextRetryAt   *time.Time
	FailureReason string
	Metadata      Metadata
}

// StatusNotFound is reported when no job exists for a URL.
const StatusNotFound = "not_found"
