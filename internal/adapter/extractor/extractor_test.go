package extractor

import (
	"bytes"
	"compress/gzip"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/article-crawler/internal/repository"
)

const articleHTML = `<!DOCTYPE html>
<html lang="en-GB">
<head>
  <title>Council approves park plan - City News</title>
  <meta name="description" content="The council voted on Tuesday.">
  <meta name="keywords" content="council, parks , budget">
  <meta name="author" content="Jane Doe">
  <meta property="article:published_time" content="2024-05-01T09:30:00Z">
  <meta property="og:image" content="/img/park.jpg">
  <link rel="canonical" href="/2024/05/01/park-plan">
</head>
<body>
  <nav><a href="/about">About</a></nav>
  <article>
    <h1>Council approves park plan</h1>
    <span rel="author">Jane Doe</span>
    <p>The council approved the new park plan on Tuesday.</p>
    <p>Work is expected to start in the autumn.</p>
    <img src="/img/park.jpg"><img src="/img/map.png"><img src="data:image/png;base64,AAAA">
    <iframe src="https://www.youtube.com/embed/abc"></iframe>
    <script>var tracking = true;</script>
  </article>
  <footer><p>Copyright City News</p></footer>
</body>
</html>`

func newTestExtractor(timeout time.Duration) *ArticleExtractor {
	return New(NewHTTPFetcher(timeout, ""), zap.NewNop())
}

func TestExtractArticle(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.UserAgent()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	rec, err := newTestExtractor(5*time.Second).Extract(context.Background(), srv.URL+"/2024/05/01/park-plan")
	require.NoError(t, err)

	assert.Equal(t, defaultUserAgent, gotUA)
	assert.Equal(t, "Council approves park plan - City News", rec.Title)
	assert.Equal(t, "The council approved the new park plan on Tuesday.\n\nWork is expected to start in the autumn.", rec.Text)
	assert.Equal(t, 17, rec.WordCount)
	assert.Equal(t, "The council voted on Tuesday.", rec.MetaDescription)
	assert.Equal(t, []string{"council", "parks", "budget"}, rec.Keywords)
	assert.Equal(t, []string{"Jane Doe"}, rec.Authors)
	require.NotNil(t, rec.PublishedAt)
	assert.Equal(t, time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC), rec.PublishedAt.UTC())
	assert.Equal(t, "en-GB", rec.Language)
	assert.Equal(t, srv.URL+"/2024/05/01/park-plan", rec.CanonicalLink)
	assert.Equal(t, srv.URL+"/img/park.jpg", rec.TopImage)
	assert.Equal(t, []string{srv.URL + "/img/park.jpg", srv.URL + "/img/map.png"}, rec.Images)
	assert.Equal(t, []string{"https://www.youtube.com/embed/abc"}, rec.Videos)
	assert.Equal(t, "goquery+http", rec.ExtractionMethod)
	assert.NotContains(t, rec.Text, "tracking")
}

func TestExtractEmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><body><script>1</script></body></html>"))
	}))
	defer srv.Close()

	_, err := newTestExtractor(5*time.Second).Extract(context.Background(), srv.URL)
	assert.ErrorIs(t, err, repository.ErrExtractionFailed)
}

func TestExtractStatusErrors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusForbidden, repository.ErrForbidden},
		{http.StatusNotFound, repository.ErrPageNotFound},
		{http.StatusGone, repository.ErrPageNotFound},
		{http.StatusInternalServerError, repository.ErrHTTPStatus},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := newTestExtractor(5*time.Second).Extract(context.Background(), srv.URL)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestExtractTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	_, err := newTestExtractor(50*time.Millisecond).Extract(context.Background(), srv.URL)
	assert.ErrorIs(t, err, repository.ErrFetchTimeout)
}

func TestClassifyError(t *testing.T) {
	dns := &net.DNSError{Err: "no such host", Name: "news.invalid", IsNotFound: true}
	assert.ErrorIs(t, classifyError("http://news.invalid", dns), repository.ErrDNSResolution)
	assert.ErrorIs(t, classifyError("http://x", context.DeadlineExceeded), repository.ErrFetchTimeout)

	canceled := classifyError("http://x", context.Canceled)
	assert.ErrorIs(t, canceled, context.Canceled)
	assert.NotErrorIs(t, canceled, repository.ErrFetchTimeout)
}

func TestReadSitemap(t *testing.T) {
	urlset := `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://news.example/a</loc><lastmod>2024-05-01</lastmod></url>
  <url><loc> https://news.example/b </loc></url>
  <url><loc>/c</loc></url>
</urlset>`
	index := `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>https://news.example/sitemap-1.xml</loc></sitemap>
  <sitemap><loc>https://news.example/sitemap-2.xml.gz</loc></sitemap>
</sitemapindex>`
	htmlMap := `<html><body><ul>
  <li><a href="/world/story-one">One</a></li>
  <li><a href="/world/story-one">One again</a></li>
  <li><a href="mailto:desk@news.example">Mail</a></li>
  <li><a href="https://other.example/x">Other</a></li>
</ul></body></html>`

	mux := http.NewServeMux()
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(urlset))
	})
	mux.HandleFunc("/sitemap_index.xml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(index))
	})
	mux.HandleFunc("/sitemap.xml.gz", func(w http.ResponseWriter, _ *http.Request) {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, _ = zw.Write([]byte(urlset))
		_ = zw.Close()
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(buf.Bytes())
	})
	mux.HandleFunc("/sitemap", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(htmlMap))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ex := newTestExtractor(5 * time.Second)
	ctx := context.Background()

	sm, err := ex.ReadSitemap(ctx, srv.URL+"/sitemap.xml")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://news.example/a", "https://news.example/b", srv.URL + "/c"}, sm.PageURLs)
	assert.Empty(t, sm.ChildSitemaps)

	sm, err = ex.ReadSitemap(ctx, srv.URL+"/sitemap_index.xml")
	require.NoError(t, err)
	assert.Empty(t, sm.PageURLs)
	assert.Equal(t, []string{"https://news.example/sitemap-1.xml", "https://news.example/sitemap-2.xml.gz"}, sm.ChildSitemaps)

	sm, err = ex.ReadSitemap(ctx, srv.URL+"/sitemap.xml.gz")
	require.NoError(t, err)
	assert.Len(t, sm.PageURLs, 3)

	sm, err = ex.ReadSitemap(ctx, srv.URL+"/sitemap")
	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/world/story-one", "https://other.example/x"}, sm.PageURLs)
}

func TestParseSitemapRejectsUnknownRoot(t *testing.T) {
	_, err := ParseSitemap("https://news.example/sitemap.xml", "application/xml", []byte(`<?xml version="1.0"?><rss></rss>`))
	assert.Error(t, err)
}

func TestDiscoverLinks(t *testing.T) {
	page := `<html><body>
  <a href="/2024/05/01/budget-vote">dated</a>
  <a href="/news/markets-today#comments">news</a>
  <a href="/news/markets-today">news again</a>
  <a href="/world/europe/elections">two segments</a>
  <a href="/tag/politics">tag</a>
  <a href="/about">about</a>
  <a href="/files/report.pdf">pdf</a>
  <a href="/single">single segment</a>
  <a href="https://elsewhere.example/news/x">offsite</a>
  <a href="javascript:void(0)">js</a>
</body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	links, err := newTestExtractor(5*time.Second).DiscoverLinks(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		srv.URL + "/2024/05/01/budget-vote",
		srv.URL + "/news/markets-today",
		srv.URL + "/world/europe/elections",
	}, links)
}

func TestArticleLinksCap(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < MaxLinksPerPage+20; i++ {
		b.WriteString(`<a href="/news/story-`)
		b.WriteString(strings.Repeat("x", i+1))
		b.WriteString(`">s</a>`)
	}
	b.WriteString("</body></html>")

	links, err := ArticleLinks("https://news.example/", []byte(b.String()))
	require.NoError(t, err)
	assert.Len(t, links, MaxLinksPerPage)
}
