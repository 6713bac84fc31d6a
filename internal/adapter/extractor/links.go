package extractor

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MaxLinksPerPage bounds how many article links one source page yields.
const MaxLinksPerPage = 50

var (
	skipLinkPatterns    = regexp.MustCompile(`(?i)(/tag/|/category/|/author/|/search/|/contact|/about|/privacy|/terms|\.pdf$|\.jpg$|\.png$|\.gif$|/feed|/rss|/sitemap)`)
	articleLinkPatterns = regexp.MustCompile(`(?i)(/\d{4}/\d{2}/\d{2}/|/article/|/post/|/news/|/story/|/blog/|/press/|/release/)`)
)

// IsArticleLink reports whether link looks like an article on the same host
// as the page it was found on.
func IsArticleLink(link string, page *url.URL) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	if u.Host != page.Host {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if skipLinkPatterns.MatchString(link) {
		return false
	}
	if articleLinkPatterns.MatchString(link) {
		return true
	}

	segments := 0
	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" {
			segments++
		}
	}
	return segments >= 2
}

// ArticleLinks returns up to MaxLinksPerPage article-like links of a page,
// resolved and without fragments.
func ArticleLinks(pageURL string, html []byte) ([]string, error) {
	page, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	seen := make(map[string]struct{})
	var links []string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		abs := resolve(page, strings.TrimSpace(s.AttrOr("href", "")))
		if i := strings.IndexByte(abs, '#'); i >= 0 {
			abs = abs[:i]
		}
		if _, ok := seen[abs]; ok || abs == "" {
			return true
		}
		seen[abs] = struct{}{}
		if IsArticleLink(abs, page) {
			links = append(links, abs)
		}
		return len(links) < MaxLinksPerPage
	})
	return links, nil
}
