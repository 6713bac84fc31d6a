package extractor

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ChromedpFetcher renders pages in headless Chrome before reading the DOM,
// for sites that build their content with JavaScript.
type ChromedpFetcher struct {
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
	timeout       time.Duration
	logger        *zap.Logger
}

// NewChromedpFetcher starts an allocator shared by all fetches. Each fetch
// opens its own tab. Close releases the browser.
func NewChromedpFetcher(userAgent string, pageLoadTimeout time.Duration, logger *zap.Logger) *ChromedpFetcher {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(logger.Sugar().Debugf))

	return &ChromedpFetcher{
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
		timeout:       pageLoadTimeout,
		logger:        logger,
	}
}

func (c *ChromedpFetcher) Name() string { return "chromedp" }

func (c *ChromedpFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	tabCtx, cancel := chromedp.NewContext(c.browserCtx)
	defer cancel()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, c.timeout)
	defer cancelTimeout()

	// Caller cancellation closes the tab too.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	startTime := time.Now()
	resp, err := chromedp.RunResponse(tabCtx, chromedp.Navigate(rawURL))
	if err != nil {
		if ctx.Err() != nil {
			return nil, classifyError(rawURL, ctx.Err())
		}
		return nil, classifyError(rawURL, err)
	}

	status := 200
	if resp != nil {
		status = int(resp.Status)
	}
	if err := statusError(rawURL, status); err != nil {
		return nil, err
	}

	var html string
	if err := chromedp.Run(tabCtx,
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return nil, classifyError(rawURL, err)
	}

	c.logger.Debug("rendered page",
		zap.String("url", rawURL),
		zap.Int("status", status),
		zap.Duration("duration", time.Since(startTime)),
	)

	var finalURL string
	if err := chromedp.Run(tabCtx, chromedp.Location(&finalURL)); err != nil || finalURL == "" {
		finalURL = rawURL
	}

	return &Page{
		URL:         finalURL,
		StatusCode:  status,
		ContentType: "text/html",
		Body:        []byte(html),
	}, nil
}

// Close shuts the browser down.
func (c *ChromedpFetcher) Close() error {
	c.cancelBrowser()
	c.cancelAlloc()
	return nil
}

var _ Fetcher = (*ChromedpFetcher)(nil)
