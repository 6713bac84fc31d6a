package extractor

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/article-crawler/internal/entity"
	"github.com/user/article-crawler/pkg/utils"
)

const maxCollectedImages = 20

// noise is stripped before the body text is read.
const noise = "script, style, noscript, nav, header, footer, aside, form, iframe"

var publishedSelectors = []struct {
	selector string
	attr     string
}{
	{`meta[property="article:published_time"]`, "content"},
	{`meta[name="pubdate"]`, "content"},
	{`meta[name="publish-date"]`, "content"},
	{`meta[name="date"]`, "content"},
	{`meta[itemprop="datePublished"]`, "content"},
	{`time[datetime]`, "datetime"},
}

var publishedLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseArticle extracts the article fields of an HTML document.
func ParseArticle(pageURL string, html []byte) (*entity.ExtractedRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}

	rec := &entity.ExtractedRecord{
		URL:  pageURL,
		HTML: string(html),
	}

	rec.Title = firstNonEmpty(
		strings.TrimSpace(doc.Find("title").First().Text()),
		metaContent(doc, `meta[property="og:title"]`),
		strings.TrimSpace(doc.Find("h1").First().Text()),
	)
	rec.MetaDescription = firstNonEmpty(
		metaContent(doc, `meta[name="description"]`),
		metaContent(doc, `meta[property="og:description"]`),
	)
	rec.MetaKeywords = splitKeywords(metaContent(doc, `meta[name="keywords"]`))
	rec.Keywords = rec.MetaKeywords
	rec.Authors = findAuthors(doc)
	rec.PublishedAt = findPublished(doc)
	rec.Language = strings.TrimSpace(doc.Find("html").AttrOr("lang", ""))

	if href, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok {
		rec.CanonicalLink = resolve(base, href)
	}
	if img := metaContent(doc, `meta[property="og:image"]`); img != "" {
		rec.TopImage = resolve(base, img)
	}
	rec.Images = collectAttr(doc, base, "img[src]", "src", maxCollectedImages)
	rec.Videos = findVideos(doc, base)

	rec.Text = bodyText(doc)
	rec.WordCount = len(strings.Fields(rec.Text))
	return rec, nil
}

func metaContent(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().AttrOr("content", ""))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func splitKeywords(raw string) []string {
	var out []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

func findAuthors(doc *goquery.Document) []string {
	seen := make(map[string]struct{})
	var authors []string
	add := func(name string) {
		name = strings.Join(strings.Fields(name), " ")
		if name == "" {
			return
		}
		if _, ok := seen[strings.ToLower(name)]; ok {
			return
		}
		seen[strings.ToLower(name)] = struct{}{}
		authors = append(authors, name)
	}

	doc.Find(`meta[name="author"], meta[property="article:author"]`).Each(func(_ int, s *goquery.Selection) {
		content := s.AttrOr("content", "")
		if strings.HasPrefix(content, "http") {
			return
		}
		add(content)
	})
	doc.Find(`[rel="author"], [itemprop="author"], .byline-name`).Each(func(_ int, s *goquery.Selection) {
		add(s.Text())
	})
	return authors
}

func findPublished(doc *goquery.Document) *time.Time {
	for _, ps := range publishedSelectors {
		raw := strings.TrimSpace(doc.Find(ps.selector).First().AttrOr(ps.attr, ""))
		if raw == "" {
			continue
		}
		for _, layout := range publishedLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return &t
			}
		}
	}
	return nil
}

func findVideos(doc *goquery.Document, base *url.URL) []string {
	videos := collectAttr(doc, base, "video[src], video source[src]", "src", 0)
	doc.Find("iframe[src]").Each(func(_ int, s *goquery.Selection) {
		src := s.AttrOr("src", "")
		if strings.Contains(src, "youtube.com") || strings.Contains(src, "player.vimeo.com") {
			videos = append(videos, resolve(base, src))
		}
	})
	return videos
}

// collectAttr resolves and deduplicates an attribute across a selection.
// A limit of zero means no limit.
func collectAttr(doc *goquery.Document, base *url.URL, selector, attr string, limit int) []string {
	seen := make(map[string]struct{})
	var out []string
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		v := strings.TrimSpace(s.AttrOr(attr, ""))
		if v == "" || strings.HasPrefix(v, "data:") {
			return true
		}
		abs := resolve(base, v)
		if _, ok := seen[abs]; ok {
			return true
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
		return limit == 0 || len(out) < limit
	})
	return out
}

// bodyText prefers the paragraphs of an <article> or <main> element and
// falls back to the whole body.
func bodyText(doc *goquery.Document) string {
	doc.Find(noise).Remove()

	container := doc.Find("article").First()
	if container.Length() == 0 {
		container = doc.Find("main").First()
	}
	if container.Length() == 0 {
		container = doc.Find("body")
	}

	var paragraphs []string
	container.Find("p").Each(func(_ int, s *goquery.Selection) {
		if p := strings.Join(strings.Fields(s.Text()), " "); p != "" {
			paragraphs = append(paragraphs, p)
		}
	})
	if len(paragraphs) > 0 {
		return strings.Join(paragraphs, "\n\n")
	}
	return strings.Join(strings.Fields(container.Text()), " ")
}

func resolve(base *url.URL, ref string) string {
	abs, err := utils.ToAbsoluteURL(base, ref)
	if err != nil {
		return ref
	}
	return abs
}
