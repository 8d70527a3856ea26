package observability

import (
	"context"
	"log/slog"
	"testing"

	"github.com/couchcryptid/lightning-map/internal/config"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewLogger_InstallsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := NewLogger(&config.Config{LogLevel: "warn", LogFormat: "text"})

	assert.Same(t, logger, slog.Default())
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
}

func TestMetricsForTesting(t *testing.T) {
	m := NewMetricsForTesting()
	m.SessionOutcomes.WithLabelValues("failed").Inc()
	m.SessionOutcomes.WithLabelValues("failed").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SessionOutcomes.WithLabelValues("failed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SessionsStarted))
}
