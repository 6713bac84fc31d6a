package entity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferJobKind(t *testing.T) {
	tests := []struct {
		url  string
		want JobKind
	}{
		{"https://news.example/sitemap.xml", JobKindSitemap},
		{"https://news.example/sitemap_index.xml", JobKindSitemap},
		{"https://news.example/post-sitemap.xml", JobKindSitemap},
		{"https://news.example/sitemaps/news.xml", JobKindSingleURL},
		{"https://news.example/2024/05/01/how-sitemaps-work", JobKindSingleURL},
		{"https://news.example/a?utm_source=sitemap", JobKindSingleURL},
		{"::not a url", JobKindSingleURL},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, InferJobKind(tt.url))
		})
	}
}

func TestJobStatusIsTerminal(t *testing.T) {
	assert.False(t, JobStatusPending.IsTerminal())
	assert.False(t, JobStatusRunning.IsTerminal())
	assert.True(t, JobStatusCompleted.IsTerminal())
	assert.True(t, JobStatusFailed.IsTerminal())
	assert.False(t, JobStatus("archived").Valid())
}

func TestJobKindValid(t *testing.T) {
	assert.True(t, JobKindSingleURL.Valid())
	assert.True(t, JobKindSitemap.Valid())
	assert.False(t, JobKind("").Valid())
	assert.False(t, JobKind("feed").Valid())
}

func TestTruncateError(t *testing.T) {
	short := "connection refused"
	assert.Equal(t, short, TruncateError(short))

	long := strings.Repeat("x", MaxErrorMessageLength+50)
	assert.Len(t, TruncateError(long), MaxErrorMessageLength)

	// A two-byte rune straddling the limit must not be split.
	multi := strings.Repeat("a", MaxErrorMessageLength-1) + "é" + "tail"
	got := TruncateError(multi)
	assert.Equal(t, strings.Repeat("a", MaxErrorMessageLength-1), got)
}

func TestMetadataMerge(t *testing.T) {
	base := Metadata{"crawl_type": "single_url", "title": "old"}
	merged := base.Merge(Metadata{"title": "new", "article_id": int64(7)})

	assert.Equal(t, "single_url", merged["crawl_type"])
	assert.Equal(t, "new", merged["title"])
	assert.Equal(t, int64(7), merged["article_id"])
	assert.Equal(t, "old", base["title"], "merge must not mutate the receiver")
}

func TestMetadataJSONRoundTrip(t *testing.T) {
	var empty Metadata
	raw, err := empty.JSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(raw))

	parsed, err := ParseMetadata([]byte(`{"discovered_from_sitemap":true}`))
	require.NoError(t, err)
	assert.Equal(t, true, parsed["discovered_from_sitemap"])

	parsed, err = ParseMetadata(nil)
	require.NoError(t, err)
	assert.Empty(t, parsed)
}
