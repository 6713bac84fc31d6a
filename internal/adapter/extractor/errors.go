package extractor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/user/article-crawler/internal/repository"
)

// classifyError maps transport failures onto the repository error set while
// keeping the original error in the chain.
func classifyError(rawURL string, err error) error {
	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("fetch %s: %w", rawURL, err)
	case errors.As(err, &dnsErr):
		return fmt.Errorf("fetch %s: %w: %w", rawURL, repository.ErrDNSResolution, err)
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("fetch %s: %w: %w", rawURL, repository.ErrFetchTimeout, err)
	default:
		return fmt.Errorf("fetch %s: %w", rawURL, err)
	}
}

// statusError turns a non-2xx response status into an error.
func statusError(rawURL string, code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusForbidden:
		return fmt.Errorf("fetch %s: %w (status %d)", rawURL, repository.ErrForbidden, code)
	case code == http.StatusNotFound, code == http.StatusGone:
		return fmt.Errorf("fetch %s: %w (status %d)", rawURL, repository.ErrPageNotFound, code)
	default:
		return fmt.Errorf("fetch %s: %w %d", rawURL, repository.ErrHTTPStatus, code)
	}
}
