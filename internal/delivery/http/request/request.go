package request

import "time"

// EnqueueJobRequest is the body of POST /api/jobs.
type EnqueueJobRequest struct {
	URL         string     `json:"url"`
	SourceID    int64      `json:"source_id"`
	Kind        string     `json:"kind,omitempty"`
	Priority    int        `json:"priority"`
	MaxRetries  int        `json:"max_retries"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}
