package content

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/article-crawler/internal/entity"
)

func TestAssessScenario(t *testing.T) {
	rec := &entity.ExtractedRecord{
		Title:     "Market rally",
		Text:      strings.Repeat("word ", 120),
		Authors:   []string{"Jane Doe"},
		WordCount: 120,
	}
	require.Len(t, rec.Text, 600)

	a := Assess(rec)
	assert.Equal(t, 70, a.Score)
	assert.True(t, a.Valid)
	assert.Equal(t, []string{"Good title length", "Substantial content", "Good word count", "Author information"}, a.Factors)
	assert.Empty(t, a.Issues)
}

func TestAssessIsCapped(t *testing.T) {
	published := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	rec := &entity.ExtractedRecord{
		Title:           "A perfectly sized headline",
		Text:            strings.Repeat("word ", 200),
		WordCount:       200,
		Authors:         []string{"Jane Doe"},
		PublishedAt:     &published,
		MetaDescription: "desc",
		Keywords:        []string{"markets"},
		TopImage:        "https://news.example/a.jpg",
		Summary:         "summary",
	}
	assert.Equal(t, 100, Assess(rec).Score)
}

func TestAssessModerateAndMissing(t *testing.T) {
	a := Assess(&entity.ExtractedRecord{Text: strings.Repeat("x", 250)})
	assert.Equal(t, 15, a.Score)
	assert.Contains(t, a.Issues, "Missing title")
	assert.False(t, a.Valid)

	a = Assess(&entity.ExtractedRecord{Title: "Short", Text: "tiny"})
	assert.Equal(t, 0, a.Score)
	assert.ElementsMatch(t, []string{"Title length issues", "Short content"}, a.Issues)
}

func TestValidate(t *testing.T) {
	body := strings.Repeat("Plain reporting. ", 10)
	tests := []struct {
		name  string
		rec   entity.ExtractedRecord
		valid bool
	}{
		{"valid", entity.ExtractedRecord{Title: "Budget passes vote", Text: body}, true},
		{"missing title", entity.ExtractedRecord{Text: body}, false},
		{"missing body", entity.ExtractedRecord{Title: "Budget passes vote"}, false},
		{"short body", entity.ExtractedRecord{Title: "Budget passes vote", Text: strings.Repeat("x", 50)}, false},
		{"short title", entity.ExtractedRecord{Title: "Too short", Text: body}, false},
		{"long title", entity.ExtractedRecord{Title: strings.Repeat("t", 501), Text: body}, false},
		{
			"spam",
			entity.ExtractedRecord{Title: "Budget passes vote", Text: body + "Buy NOW! Click here. Act now before it ends."},
			false,
		},
		{
			"two spam phrases are tolerated",
			entity.ExtractedRecord{Title: "Budget passes vote", Text: body + "Buy now. Click here."},
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.rec)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrQualityRejected)
		})
	}
}

func TestReadability(t *testing.T) {
	assert.Equal(t, 94.0, Readability("One two three. Four five six."))
	assert.Equal(t, 0.0, Readability(""))
	assert.Equal(t, 0.0, Readability("no sentence end here"))
	assert.Equal(t, 0.0, Readability(strings.Repeat("word ", 80)+"."))
}
