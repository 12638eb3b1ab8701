package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	defaultBroker   = "localhost:9092"
	testBaselineURL = "http://baselines.internal:8090"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "raw-complaint-records", cfg.KafkaSourceTopic)
	assert.Equal(t, "nuisance-cluster-snapshots", cfg.KafkaSinkTopic)
	assert.Equal(t, "nuisance-watch", cfg.KafkaGroupID)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 5*time.Minute, cfg.WindowFlushInterval)
	assert.Equal(t, 5, cfg.SignificanceThreshold)
	assert.Empty(t, cfg.CategoryConfigPath)
	assert.Empty(t, cfg.ZipIndexPath)
	assert.False(t, cfg.BaselineEnabled)
	assert.Empty(t, cfg.BaselineURL)
	assert.Equal(t, 5*time.Second, cfg.BaselineTimeout)
	assert.Equal(t, 1000, cfg.BaselineCacheSize)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SOURCE_TOPIC", "custom-source")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("KAFKA_GROUP_ID", "custom-group")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("WINDOW_FLUSH_INTERVAL", "1h")
	t.Setenv("SIGNIFICANCE_THRESHOLD", "8")
	t.Setenv("CATEGORY_CONFIG_PATH", "/etc/nuisance-watch/categories.json")
	t.Setenv("ZIP_INDEX_PATH", "/etc/nuisance-watch/zips.json")
	t.Setenv("BASELINE_URL", testBaselineURL)
	t.Setenv("BASELINE_TIMEOUT", "10s")
	t.Setenv("BASELINE_CACHE_SIZE", "500")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-source", cfg.KafkaSourceTopic)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, "custom-group", cfg.KafkaGroupID)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, time.Hour, cfg.WindowFlushInterval)
	assert.Equal(t, 8, cfg.SignificanceThreshold)
	assert.Equal(t, "/etc/nuisance-watch/categories.json", cfg.CategoryConfigPath)
	assert.Equal(t, "/etc/nuisance-watch/zips.json", cfg.ZipIndexPath)
	assert.True(t, cfg.BaselineEnabled)
	assert.Equal(t, testBaselineURL, cfg.BaselineURL)
	assert.Equal(t, 10*time.Second, cfg.BaselineTimeout)
	assert.Equal(t, 500, cfg.BaselineCacheSize)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_NegativeFlushInterval(t *testing.T) {
	t.Setenv("WINDOW_FLUSH_INTERVAL", "-5m")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WINDOW_FLUSH_INTERVAL")
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	t.Setenv("BATCH_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestLoad_InvalidThreshold(t *testing.T) {
	t.Setenv("SIGNIFICANCE_THRESHOLD", "-1")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SIGNIFICANCE_THRESHOLD")
}

func TestLoad_InvalidBaselineTimeout(t *testing.T) {
	t.Setenv("BASELINE_TIMEOUT", "bad")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BASELINE_TIMEOUT")
}

func TestLoad_BaselineEnabledWithoutURL(t *testing.T) {
	t.Setenv("BASELINE_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BASELINE_URL")
}

func TestLoad_BaselineURLImpliesEnabled(t *testing.T) {
	t.Setenv("BASELINE_URL", testBaselineURL)
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.BaselineEnabled)
}

func TestLoad_BaselineExplicitlyDisabled(t *testing.T) {
	t.Setenv("BASELINE_URL", testBaselineURL)
	t.Setenv("BASELINE_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.BaselineEnabled)
}
