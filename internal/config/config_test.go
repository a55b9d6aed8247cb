package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "artifacts", cfg.Model.Dir)
	assert.Equal(t, "10M", cfg.HTTP.BodyLimit)
	assert.Equal(t, "churn.records", cfg.Kafka.Topic)
	assert.Equal(t, 300*time.Millisecond, cfg.Scorer.BatchWait)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Empty(t, cfg.Retention.Targets)
}

func TestLoad_MergesFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
model:
  dir: /srv/model/v3
retention:
  targets:
    - name: crm
      enabled: true
      url: http://crm.local/hooks/churn
      breaker:
        fail_threshold: 5
`), 0o644))
	t.Setenv("CHURN_HTTP_ADDR", ":9999")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/model/v3", cfg.Model.Dir)
	assert.Equal(t, ":9999", cfg.HTTP.Addr)
	require.Len(t, cfg.Retention.Targets, 1)
	assert.Equal(t, "crm", cfg.Retention.Targets[0].Name)
	assert.Equal(t, 5, cfg.Retention.Targets[0].Breaker.FailThreshold)
	assert.Equal(t, "127.0.0.1:6379", cfg.Redis.Addr)
}
