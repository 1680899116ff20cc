package forum

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
store:
  type: cassandra
  hosts: [10.0.0.1, 10.0.0.2]
redis:
  enabled: true
  addr: localhost:6379
  ttl_seconds: 5
connection:
  min_tries: 5
  retry_delay_ms: 250
refresh:
  interval_ms: 500
statistics:
  enabled: true
  interval_seconds: 10
presentation:
  max_reply_depth: 4
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, StoreCassandra, cfg.Store.Type)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.Store.Hosts)
	assert.Equal(t, "forum", cfg.Store.Keyspace)
	assert.Equal(t, 5*time.Second, cfg.RedisTTL())
	assert.Equal(t, 5, cfg.Connection.MinTries)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryDelay())
	assert.Equal(t, 500*time.Millisecond, cfg.RefreshInterval())
	assert.Equal(t, 10*time.Second, cfg.StatisticsInterval())
	assert.Equal(t, 4, cfg.Presentation.MaxReplyDepth)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "{}\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, StoreMock, cfg.Store.Type)
	assert.Equal(t, 3, cfg.Presentation.MaxReplyDepth)
	assert.Equal(t, time.Second, cfg.RefreshInterval())
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	for name, body := range map[string]string{
		"unknown store":   "store: {type: oracle}\n",
		"cassandra hosts": "store: {type: cassandra}\n",
		"sqlite dsn":      "store: {type: sqlite}\n",
		"redis addr":      "redis: {enabled: true}\n",
		"negative stats":  "statistics: {interval_seconds: -1}\n",
		"negative tries":  "connection: {min_tries: -2}\n",
		"not yaml":        "store: [\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadConfigDisabledSettings(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "refresh: {interval_ms: -1}\npresentation: {max_reply_depth: -1}\n"))
	require.NoError(t, err)
	assert.Zero(t, cfg.RefreshInterval())
	assert.Zero(t, cfg.ReplyDepth())

	c, _ := newTestClient(t, WithConfig(cfg))
	assert.Zero(t, c.refreshInterval, "background refresher not started")
	assert.False(t, c.CanReply(0))
}

func TestWithConfigAppliesSettings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Refresh.IntervalMs = 0
	cfg.Presentation.MaxReplyDepth = 1
	c, _ := newTestClient(t, WithConfig(cfg))

	assert.Equal(t, 1, c.MaxReplyDepth())
	assert.True(t, c.CanReply(0))
	assert.False(t, c.CanReply(1))
	assert.Zero(t, c.statisticsInterval)
}
