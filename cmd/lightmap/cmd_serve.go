package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	httpadapter "github.com/couchcryptid/lightning-map/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/lightning-map/internal/adapter/kafka"
	"github.com/couchcryptid/lightning-map/internal/observability"
	"github.com/couchcryptid/lightning-map/internal/pipeline"
	"github.com/couchcryptid/lightning-map/internal/region"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the generation server",
	Long: `Start the HTTP server exposing /stream-generate, the static artifacts,
and the health, readiness, and metrics endpoints.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides HTTP_ADDR)")
	serveCmd.Flags().String("static", "", "static directory (overrides STATIC_DIR)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = cfg.HTTPAddr
	}
	staticDir, _ := cmd.Flags().GetString("static")
	if staticDir == "" {
		staticDir = cfg.StaticDir
	}

	regions, err := region.Load(cfg.BoundariesPath)
	if err != nil {
		return fmt.Errorf("load regions: %w", err)
	}
	logger.Info("regions loaded", "count", regions.Len(), "path", cfg.BoundariesPath)

	metrics := observability.NewMetrics()

	// Generation audit records are feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS.
	var recorder pipeline.Recorder
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		recorder = writer
		logger.Info("generation records enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("generation records disabled")
	}

	store := pipeline.NewCachedStore(pipeline.NewDirStore(staticDir), cfg.ArtifactCacheSize)
	p := pipeline.New(regions, store, "/static", cfg.StageDelay, recorder, logger, metrics)
	srv := httpadapter.NewServer(addr, p, staticDir, logger)

	ctx := cmd.Context()
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("http server error", "error", err)
			return err
		}
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete", "generations_served", p.Served())
	return nil
}
