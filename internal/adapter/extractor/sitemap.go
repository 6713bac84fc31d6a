package extractor

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/article-crawler/internal/entity"
)

type xmlURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []xmlLoc `xml:"url"`
}

type xmlSitemapIndex struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []xmlLoc `xml:"sitemap"`
}

type xmlLoc struct {
	Loc string `xml:"loc"`
}

// ParseSitemap reads an XML urlset, an XML sitemap index or an HTML page of
// links. Relative entries are resolved against sitemapURL.
func ParseSitemap(sitemapURL, contentType string, body []byte) (*entity.Sitemap, error) {
	base, err := url.Parse(sitemapURL)
	if err != nil {
		return nil, fmt.Errorf("parse sitemap url: %w", err)
	}

	sm := &entity.Sitemap{URL: sitemapURL}
	if !looksLikeXML(contentType, body) {
		sm.PageURLs, err = htmlSitemapLinks(base, body)
		return sm, err
	}

	switch root, err := rootElement(body); {
	case err != nil:
		return nil, fmt.Errorf("parse sitemap %s: %w", sitemapURL, err)
	case root == "sitemapindex":
		var index xmlSitemapIndex
		if err := xml.Unmarshal(body, &index); err != nil {
			return nil, fmt.Errorf("parse sitemap index %s: %w", sitemapURL, err)
		}
		sm.ChildSitemaps = locs(base, index.Sitemaps)
	case root == "urlset":
		var set xmlURLSet
		if err := xml.Unmarshal(body, &set); err != nil {
			return nil, fmt.Errorf("parse sitemap %s: %w", sitemapURL, err)
		}
		sm.PageURLs = locs(base, set.URLs)
	default:
		return nil, fmt.Errorf("parse sitemap %s: unexpected root element <%s>", sitemapURL, root)
	}
	return sm, nil
}

func looksLikeXML(contentType string, body []byte) bool {
	if strings.Contains(contentType, "xml") {
		return true
	}
	head := bytes.TrimSpace(body)
	return bytes.HasPrefix(head, []byte("<?xml")) ||
		bytes.HasPrefix(head, []byte("<urlset")) ||
		bytes.HasPrefix(head, []byte("<sitemapindex"))
}

func rootElement(body []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return "", errors.New("empty document")
		}
		if err != nil {
			return "", err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}

func locs(base *url.URL, entries []xmlLoc) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if loc := strings.TrimSpace(e.Loc); loc != "" {
			out = append(out, resolve(base, loc))
		}
	}
	return out
}

func htmlSitemapLinks(base *url.URL, body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html sitemap: %w", err)
	}
	seen := make(map[string]struct{})
	var out []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		abs := resolve(base, strings.TrimSpace(s.AttrOr("href", "")))
		u, err := url.Parse(abs)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return
		}
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
	})
	return out, nil
}
