package response

import (
	"time"

	"github.com/user/article-crawler/internal/entity"
)

type EnqueueJobResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	JobID   int64  `json:"job_id"`
	URL     string `json:"url"`
	Kind    string `json:"kind"`
	Created bool   `json:"created"`
}

// CrawlStatusResponse is a DTO for crawl status, mirroring entity.CrawlStatus
type CrawlStatusResponse struct {
	URL           string          `json:"url"`
	JobID         int64           `json:"job_id"`
	Kind          string          `json:"kind"`
	CurrentStatus string          `json:"current_status"` // "pending", "running", "completed", "failed"
	RetryCount    int             `json:"retry_count"`
	MaxRetries    int             `json:"max_retries"`
	StartedAt     *time.Time      `json:"started_at,omitempty"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	NextRetryAt   *time.Time      `json:"next_retry_at,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty"`
	Metadata      entity.Metadata `json:"metadata,omitempty"`
}

func NewCrawlStatusResponse(s *entity.CrawlStatus) CrawlStatusResponse {
	return CrawlStatusResponse{
		URL:           s.URL,
		JobID:         s.JobID,
		Kind:          string(s.Kind),
		CurrentStatus: s.CurrentStatus,
		RetryCount:    s.RetryCount,
		MaxRetries:    s.MaxRetries,
		StartedAt:     s.StartedAt,
		CompletedAt:   s.CompletedAt,
		NextRetryAt:   s.NextRetryAt,
		FailureReason: s.FailureReason,
		Metadata:      s.Metadata,
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}
