package router_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/article-crawler/internal/adapter/memory"
	"github.com/user/article-crawler/internal/delivery/http/handler"
	"github.com/user/article-crawler/internal/delivery/http/response"
	"github.com/user/article-crawler/internal/delivery/http/router"
	"github.com/user/article-crawler/internal/entity"
	"github.com/user/article-crawler/internal/usecase"
)

func newServer(t *testing.T) (*httptest.Server, *memory.JobRepoImpl) {
	t.Helper()
	jobs := memory.NewJobRepo(nil)
	h := handler.NewHandler(usecase.NewURLManager(jobs, zap.NewNop()), zap.NewNop())
	srv := httptest.NewServer(router.New(h, zap.NewNop()))
	t.Cleanup(srv.Close)
	return srv, jobs
}

func postJob(t *testing.T, srv *httptest.Server, body string) (*http.Response, response.EnqueueJobResponse) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/jobs", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out response.EnqueueJobResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestEnqueueJob(t *testing.T) {
	srv, jobs := newServer(t)

	resp, out := postJob(t, srv, `{"url":"https://news.example/a?utm_source=x","source_id":5,"priority":2}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.True(t, out.Created)
	assert.Equal(t, "https://news.example/a", out.URL)
	assert.Equal(t, "single_url", out.Kind)

	job, ok := jobs.Get(out.JobID)
	require.True(t, ok)
	assert.Equal(t, int64(5), job.SourceID)
	assert.Equal(t, 2, job.Priority)
	assert.Equal(t, entity.JobStatusPending, job.Status)

	resp, again := postJob(t, srv, `{"url":"https://news.example/a"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, again.Created)
	assert.Equal(t, out.JobID, again.JobID)
}

func TestEnqueueJobWithKind(t *testing.T) {
	srv, jobs := newServer(t)

	resp, out := postJob(t, srv, `{"url":"https://news.example/feeds/news-index.xml","source_id":5,"kind":"sitemap"}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "sitemap", out.Kind)

	job, ok := jobs.Get(out.JobID)
	require.True(t, ok)
	assert.Equal(t, entity.JobKindSitemap, job.Kind)
}

func TestEnqueueJobBadRequests(t *testing.T) {
	srv, _ := newServer(t)

	for _, body := range []string{`{`, `{"url":"not a url"}`, `{"url":"https://news.example/a","kind":"feed"}`} {
		resp, err := http.Post(srv.URL+"/api/jobs", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}

	resp, err := http.Get(srv.URL + "/api/jobs")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestGetStatus(t *testing.T) {
	srv, jobs := newServer(t)

	resp, err := http.Get(srv.URL + "/api/status?url=https://news.example/a")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	id, _, err := jobs.Enqueue(context.Background(), entity.NewJob{URL: "https://news.example/a", Kind: entity.JobKindSingleURL, MaxRetries: 3})
	require.NoError(t, err)

	resp, err = http.Get(srv.URL + "/api/status?url=https://news.example/a")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out response.CrawlStatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, id, out.JobID)
	assert.Equal(t, "pending", out.CurrentStatus)
	assert.Equal(t, 3, out.MaxRetries)

	resp, err = http.Get(srv.URL + "/api/status")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _ := newServer(t)

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.Equal(t, "ok", body["status"])

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
