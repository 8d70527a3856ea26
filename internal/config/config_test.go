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
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "http://localhost:8080", cfg.ServerURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "static", cfg.StaticDir)
	assert.Equal(t, "static/data/countries.geojson", cfg.BoundariesPath)
	assert.Equal(t, ".", cfg.OutputDir)
	assert.Equal(t, 250*time.Millisecond, cfg.StageDelay)
	assert.Equal(t, 256, cfg.ArtifactCacheSize)
	assert.Equal(t, 150*time.Millisecond, cfg.FadeDelay)
	assert.Equal(t, 500*time.Millisecond, cfg.CompleteDelay)
	assert.Equal(t, 300*time.Millisecond, cfg.LoaderHideDelay)
	assert.Equal(t, 1280, cfg.MapWidth)
	assert.Equal(t, 800, cfg.MapHeight)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "generation-events", cfg.KafkaTopic)
	assert.False(t, cfg.KafkaEnabled)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("SERVER_URL", "http://maps.internal:9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("STATIC_DIR", "/srv/static")
	t.Setenv("BOUNDARIES_PATH", "/srv/countries.geojson")
	t.Setenv("OUTPUT_DIR", "/tmp/out")
	t.Setenv("STAGE_DELAY", "0s")
	t.Setenv("ARTIFACT_CACHE_SIZE", "16")
	t.Setenv("FADE_DELAY", "50ms")
	t.Setenv("COMPLETE_DELAY", "1s")
	t.Setenv("LOADER_HIDE_DELAY", "0s")
	t.Setenv("MAP_WIDTH", "640")
	t.Setenv("MAP_HEIGHT", "480")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_TOPIC", "audit")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "http://maps.internal:9090", cfg.ServerURL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "/srv/static", cfg.StaticDir)
	assert.Equal(t, "/srv/countries.geojson", cfg.BoundariesPath)
	assert.Equal(t, "/tmp/out", cfg.OutputDir)
	assert.Zero(t, cfg.StageDelay)
	assert.Equal(t, 16, cfg.ArtifactCacheSize)
	assert.Equal(t, 50*time.Millisecond, cfg.FadeDelay)
	assert.Equal(t, time.Second, cfg.CompleteDelay)
	assert.Zero(t, cfg.LoaderHideDelay)
	assert.Equal(t, 640, cfg.MapWidth)
	assert.Equal(t, 480, cfg.MapHeight)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "audit", cfg.KafkaTopic)
	assert.True(t, cfg.KafkaEnabled)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidDelays(t *testing.T) {
	for _, key := range []string{"FADE_DELAY", "COMPLETE_DELAY", "LOADER_HIDE_DELAY", "STAGE_DELAY"} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, "-1s")
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoad_InvalidMapDimensions(t *testing.T) {
	t.Setenv("MAP_WIDTH", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAP_WIDTH")

	t.Setenv("MAP_WIDTH", "800")
	t.Setenv("MAP_HEIGHT", "tall")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAP_HEIGHT")
}

func TestLoad_InvalidArtifactCacheSize(t *testing.T) {
	t.Setenv("ARTIFACT_CACHE_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ARTIFACT_CACHE_SIZE")
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestLoad_KafkaExplicitlyDisabled(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "localhost:9092")
	t.Setenv("KAFKA_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("LIGHTMAP_TEST_ADDR=:7070\nLOG_LEVEL=warn\n"), 0o600))

	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LIGHTMAP_TEST_ADDR", "")
	require.NoError(t, os.Unsetenv("LIGHTMAP_TEST_ADDR"))

	require.NoError(t, LoadDotenv(filepath.Join(dir, "missing.env"), path))

	assert.Equal(t, ":7070", os.Getenv("LIGHTMAP_TEST_ADDR"))
	assert.Equal(t, "error", os.Getenv("LOG_LEVEL"), "existing variables win")
}
