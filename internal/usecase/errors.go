package usecase

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/user/article-crawler/internal/content"
	"github.com/user/article-crawler/internal/repository"
)

// ErrStoreUnavailable is returned by Run after too many consecutive job
// store failures.
var ErrStoreUnavailable = errors.New("job store unavailable")

// ExplainError renders an extraction failure as a message an operator can
// act on. Errors outside the known categories are returned verbatim.
func ExplainError(rawURL string, err error) string {
	if err == nil {
		return ""
	}
	host := rawURL
	if u, parseErr := url.Parse(rawURL); parseErr == nil && u.Host != "" {
		host = u.Host
	}
	switch {
	case errors.Is(err, repository.ErrDNSResolution):
		return fmt.Sprintf("DNS resolution failed - unable to reach %s. Check network connectivity or whether the domain is blocked.", host)
	case errors.Is(err, repository.ErrFetchTimeout):
		return "Request timeout - the server took too long to respond. The website might be slow or overloaded."
	case errors.Is(err, repository.ErrForbidden):
		return "Access forbidden - the website is blocking requests from this location or user agent."
	case errors.Is(err, repository.ErrPageNotFound):
		return "Page not found - the URL might be incorrect or the page has been removed."
	default:
		return err.Error()
	}
}

// errorType labels an error for metrics and job metadata.
func errorType(err error) string {
	switch {
	case errors.Is(err, content.ErrQualityRejected):
		return "quality"
	case errors.Is(err, repository.ErrDNSResolution):
		return "dns"
	case errors.Is(err, repository.ErrFetchTimeout):
		return "timeout"
	case errors.Is(err, repository.ErrForbidden):
		return "forbidden"
	case errors.Is(err, repository.ErrPageNotFound):
		return "not_found"
	case errors.Is(err, repository.ErrHTTPStatus):
		return "http_status"
	case errors.Is(err, repository.ErrExtractionFailed):
		return "extraction"
	case errors.Is(err, errPersistence):
		return "persistence"
	default:
		return "unknown"
	}
}

// errPersistence marks article store failures inside a job.
var errPersistence = errors.New("persist article")
