package content

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/user/article-crawler/internal/entity"
)

// ErrQualityRejected marks a record that failed validation. Jobs rejected
// this way fail without retry since refetching will not change the content.
var ErrQualityRejected = errors.New("content rejected by quality gate")

const (
	maxScore           = 100
	minBodyLength      = 100
	minValidTitle      = 10
	maxValidTitle      = 500
	maxScoredTitle     = 200
	spamThreshold      = 3
	substantialBody    = 500
	moderateBody       = 200
	goodWordCount      = 100
	maxReadability     = 100
	readabilityPenalty = 2
)

var spamPhrases = []string{
	"buy now",
	"click here",
	"limited time",
	"act now",
	"free trial",
	"make money",
	"work from home",
}

var sentenceEnd = regexp.MustCompile(`[.!?]+`)

// Assess scores a normalized record and runs the validity gate. The score
// and the verdict are independent: a low score can still be valid.
func Assess(rec *entity.ExtractedRecord) entity.QualityAssessment {
	var a entity.QualityAssessment

	titleLen := utf8.RuneCountInString(rec.Title)
	switch {
	case titleLen == 0:
		a.Issues = append(a.Issues, "Missing title")
	case titleLen >= minValidTitle && titleLen <= maxScoredTitle:
		a.Score += 20
		a.Factors = append(a.Factors, "Good title length")
	default:
		a.Issues = append(a.Issues, "Title length issues")
	}

	bodyLen := utf8.RuneCountInString(rec.Text)
	if bodyLen == 0 {
		a.Issues = append(a.Issues, "Missing content")
	} else {
		switch {
		case bodyLen >= substantialBody:
			a.Score += 25
			a.Factors = append(a.Factors, "Substantial content")
		case bodyLen >= moderateBody:
			a.Score += 15
			a.Factors = append(a.Factors, "Moderate content")
		default:
			a.Issues = append(a.Issues, "Short content")
		}
		if rec.WordCount >= goodWordCount {
			a.Score += 10
			a.Factors = append(a.Factors, "Good word count")
		}
	}

	bonus := []struct {
		present bool
		points  int
		factor  string
	}{
		{len(rec.Authors) > 0, 15, "Author information"},
		{rec.PublishedAt != nil, 10, "Publication date"},
		{rec.MetaDescription != "", 5, "Meta description"},
		{len(rec.Keywords) > 0, 5, "Keywords extracted"},
		{rec.TopImage != "", 5, "Featured image"},
		{rec.Summary != "", 5, "Auto-generated summary"},
	}
	for _, b := range bonus {
		if b.present {
			a.Score += b.points
			a.Factors = append(a.Factors, b.factor)
		}
	}

	if a.Score > maxScore {
		a.Score = maxScore
	}
	a.Valid = Validate(rec) == nil
	return a
}

// Validate returns an error wrapping ErrQualityRejected when rec must not be
// persisted.
func Validate(rec *entity.ExtractedRecord) error {
	if rec.Title == "" {
		return fmt.Errorf("%w: missing title", ErrQualityRejected)
	}
	if rec.Text == "" {
		return fmt.Errorf("%w: missing content", ErrQualityRejected)
	}
	if n := utf8.RuneCountInString(rec.Text); n < minBodyLength {
		return fmt.Errorf("%w: content too short (%d chars)", ErrQualityRejected, n)
	}
	if n := utf8.RuneCountInString(rec.Title); n < minValidTitle || n > maxValidTitle {
		return fmt.Errorf("%w: title length %d out of range", ErrQualityRejected, n)
	}
	if n := spamCount(rec.Text); n >= spamThreshold {
		return fmt.Errorf("%w: %d spam indicators", ErrQualityRejected, n)
	}
	return nil
}

func spamCount(body string) int {
	lower := strings.ToLower(body)
	n := 0
	for _, phrase := range spamPhrases {
		if strings.Contains(lower, phrase) {
			n++
		}
	}
	return n
}

// Readability is a rough 0-100 score that drops as sentences get longer.
func Readability(text string) float64 {
	sentences := len(sentenceEnd.FindAllStringIndex(text, -1))
	words := len(strings.Fields(text))
	if sentences == 0 || words == 0 {
		return 0
	}
	avg := float64(words) / float64(sentences)
	score := math.Max(0, maxReadability-avg*readabilityPenalty)
	return math.Min(maxReadability, math.Round(score*10)/10)
}
