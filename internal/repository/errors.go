package repository

import "errors"

// Store errors.
var (
	ErrNotFound          = errors.New("record not found")
	ErrJobNotClaimable   = errors.New("job is no longer pending")
	ErrInvalidTransition = errors.New("job is in a terminal state")
)

// Extraction errors. All of them are transient from the job's point of view.
var (
	ErrFetchTimeout     = errors.New("request timed out")
	ErrDNSResolution    = errors.New("dns resolution failed")
	ErrForbidden        = errors.New("access forbidden")
	ErrPageNotFound     = errors.New("page not found")
	ErrHTTPStatus       = errors.New("unexpected http status")
	ErrExtractionFailed = errors.New("content extraction failed")
)
