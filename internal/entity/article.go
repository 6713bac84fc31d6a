package entity

import "time"

// Article mirrors the `articles` table.
type Article struct {
	ID          int64
	SourceID    int64
	URL         string
	Title       string
	Content     string
	Excerpt     string
	Author      string
	PublishedAt *time.Time
	CrawledAt   time.Time
	ContentHash string
	Language    string
	Metadata    Metadata
}

// QualityAssessment is derived from a normalised record and embedded into
// Article.Metadata.
type QualityAssessment struct {
	Score   int
	Factors []string
	Issues  []string
	Valid   bool
}

// SaveResult reports what SaveIfAbsent did.
type SaveResult struct {
	ArticleID int64
	// Created is false when a row with the same url or content hash existed.
	Created bool
}
