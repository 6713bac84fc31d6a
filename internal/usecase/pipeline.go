package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/user/article-crawler/internal/content"
	"github.com/user/article-crawler/internal/entity"
)

// Extraction is a normalized record together with its quality verdict.
type Extraction struct {
	Record      *entity.ExtractedRecord
	Assessment  entity.QualityAssessment
	Readability float64
}

// URLResult is the outcome of ProcessURL.
type URLResult struct {
	Extraction
	// Saved is set when the article was handed to the store.
	Saved *entity.SaveResult
}

// extractAndAssess runs extraction, normalization and the quality gate. A
// record that fails the gate is returned as an error wrapping
// content.ErrQualityRejected.
func (p *JobProcessor) extractAndAssess(ctx context.Context, rawURL string) (*Extraction, error) {
	rec, err := p.extractor.Extract(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	norm := content.Normalize(rec, rawURL)
	if err := content.Validate(norm); err != nil {
		return nil, err
	}
	return &Extraction{
		Record:      norm,
		Assessment:  content.Assess(norm),
		Readability: content.Readability(norm.Text),
	}, nil
}

// ProcessURL crawls one URL without a job. When persist is set the article is
// stored, subject to the store's url and content hash uniqueness.
func (p *JobProcessor) ProcessURL(ctx context.Context, sourceID int64, rawURL string, persist bool) (*URLResult, error) {
	ext, err := p.extractAndAssess(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("process %s: %w", rawURL, err)
	}
	res := &URLResult{Extraction: *ext}
	if !persist {
		return res, nil
	}

	saved, err := p.articles.SaveIfAbsent(ctx, buildArticle(sourceID, 0, ext, p.now()))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errPersistence, err)
	}
	res.Saved = &saved
	return res, nil
}

// buildArticle maps an extraction onto the articles row. jobID zero means
// the article was crawled outside of a job.
func buildArticle(sourceID, jobID int64, ext *Extraction, now time.Time) *entity.Article {
	rec := ext.Record
	meta := entity.Metadata{
		"top_image":         rec.TopImage,
		"images":            nonNil(rec.Images),
		"videos":            nonNil(rec.Videos),
		"keywords":          nonNil(rec.Keywords),
		"summary":           rec.Summary,
		"meta_description":  rec.MetaDescription,
		"meta_keywords":     nonNil(rec.MetaKeywords),
		"canonical_link":    rec.CanonicalLink,
		"source_url":        rec.SourceURL,
		"word_count":        rec.WordCount,
		"quality_score":     ext.Assessment.Score,
		"quality_factors":   nonNil(ext.Assessment.Factors),
		"quality_issues":    nonNil(ext.Assessment.Issues),
		"readability_score": ext.Readability,
		"extraction_method": rec.ExtractionMethod,
		"scraped_at":        now.UTC().Format(time.RFC3339),
	}
	if jobID != 0 {
		meta["crawl_job_id"] = jobID
	}

	return &entity.Article{
		SourceID:    sourceID,
		URL:         rec.URL,
		Title:       rec.Title,
		Content:     rec.Text,
		Excerpt:     rec.Excerpt,
		Author:      content.CleanAuthors(rec.Authors),
		PublishedAt: rec.PublishedAt,
		CrawledAt:   now,
		ContentHash: rec.ContentHash,
		Language:    rec.Language,
		Metadata:    meta,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
