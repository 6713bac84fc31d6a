package entity

import "time"

// ExtractedRecord is what an extractor returns for one URL. It only lives
// for the duration of one job and is persisted through Article.
type ExtractedRecord struct {
	URL              string
	SourceURL        string
	Title            string
	Text             string
	Excerpt          string
	Authors          []string
	PublishedAt      *time.Time
	CanonicalLink    string
	TopImage         string
	Images           []string
	Videos           []string
	Keywords         []string
	Summary          string
	MetaDescription  string
	MetaKeywords     []string
	Language         string
	HTML             string `json:"-"`
	ExtractionMethod string
	ContentHash      string
	WordCount        int
}

// Sitemap is the parsed form of a sitemap resource.
type Sitemap struct {
	URL string
	// PageURLs are entries of a urlset or the anchors of an HTML sitemap.
	PageURLs []string
	// ChildSitemaps are entries of a sitemap index.
	ChildSitemaps []string
}
