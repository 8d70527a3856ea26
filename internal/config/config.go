package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Config holds all viewer and server settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	ServerURL       string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	StaticDir      string
	BoundariesPath string
	OutputDir      string
	StageDelay     time.Duration

	// ArtifactCacheSize bounds the in-memory artifact lookup cache.
	ArtifactCacheSize int

	// Viewer timings.
	FadeDelay       time.Duration
	CompleteDelay   time.Duration
	LoaderHideDelay time.Duration

	MapWidth  int
	MapHeight int

	// Generation audit records.
	KafkaBrokers []string
	KafkaTopic   string
	KafkaEnabled bool
}

// LoadDotenv reads .env files into the environment without overriding
// variables that are already set. Missing files are ignored.
func LoadDotenv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	fadeDelay, err := parseDelay("FADE_DELAY", "150ms")
	if err != nil {
		return nil, err
	}
	completeDelay, err := parseDelay("COMPLETE_DELAY", "500ms")
	if err != nil {
		return nil, err
	}
	loaderHideDelay, err := parseDelay("LOADER_HIDE_DELAY", "300ms")
	if err != nil {
		return nil, err
	}
	stageDelay, err := parseDelay("STAGE_DELAY", "250ms")
	if err != nil {
		return nil, err
	}

	mapWidth, err := parseDimension("MAP_WIDTH", 1280)
	if err != nil {
		return nil, err
	}
	mapHeight, err := parseDimension("MAP_HEIGHT", 800)
	if err != nil {
		return nil, err
	}

	cacheSize, err := parseArtifactCacheSize()
	if err != nil {
		return nil, err
	}

	brokers := sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		ServerURL:       sharedcfg.EnvOrDefault("SERVER_URL", "http://localhost:8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		StaticDir:      sharedcfg.EnvOrDefault("STATIC_DIR", "static"),
		BoundariesPath: sharedcfg.EnvOrDefault("BOUNDARIES_PATH", "static/data/countries.geojson"),
		OutputDir:      sharedcfg.EnvOrDefault("OUTPUT_DIR", "."),
		StageDelay:     stageDelay,

		ArtifactCacheSize: cacheSize,

		FadeDelay:       fadeDelay,
		CompleteDelay:   completeDelay,
		LoaderHideDelay: loaderHideDelay,

		MapWidth:  mapWidth,
		MapHeight: mapHeight,

		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "generation-events"),
		KafkaEnabled: kafkaEnabled,
	}

	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

// parseDelay reads a non-negative duration.
func parseDelay(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s: must be a non-negative duration", key)
	}
	return d, nil
}

func parseDimension(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 16384 {
		return 0, fmt.Errorf("invalid %s: must be 1-16384", key)
	}
	return n, nil
}

func parseArtifactCacheSize() (int, error) {
	s := os.Getenv("ARTIFACT_CACHE_SIZE")
	if s == "" {
		return 256, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, errors.New("invalid ARTIFACT_CACHE_SIZE: must be a positive integer")
	}
	return n, nil
}
