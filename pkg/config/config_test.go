package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 10, cfg.Processor.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.Processor.JobDelay)
	assert.Equal(t, 60*time.Second, cfg.Processor.SleepInterval)
	assert.Equal(t, 5, cfg.Processor.MaxStoreErrors)
	assert.Equal(t, "http", cfg.Extractor.Mode)
	assert.Equal(t, "8080", cfg.Server.Port)

	assert.ErrorContains(t, cfg.Validate(), "database.url")
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crawler.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  driver: memory
dedup:
  backend: redis
  ttl: 2h
processor:
  batch_size: 25
  job_delay: 500ms
extractor:
  mode: chromedp
`), 0o600))
	t.Setenv("CRAWLER_PROCESSOR_BATCH_SIZE", "5")
	t.Setenv("CRAWLER_REDIS_ADDR", "redis:6379")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "redis", cfg.Dedup.Backend)
	assert.Equal(t, 2*time.Hour, cfg.Dedup.TTL)
	assert.Equal(t, 5, cfg.Processor.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Processor.JobDelay)
	assert.Equal(t, "chromedp", cfg.Extractor.Mode)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsUnknownValues(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Store.Driver = "sqlite"
	cfg.Dedup.Backend = "disk"
	cfg.Extractor.Mode = "curl"

	err = cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "store.driver")
	assert.ErrorContains(t, err, "dedup.backend")
	assert.ErrorContains(t, err, "extractor.mode")
}
