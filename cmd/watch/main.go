package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/nuisance-watch/internal/adapter/baseline"
	"github.com/couchcryptid/nuisance-watch/internal/adapter/httpserver"
	kafkaadapter "github.com/couchcryptid/nuisance-watch/internal/adapter/kafka"
	"github.com/couchcryptid/nuisance-watch/internal/config"
	"github.com/couchcryptid/nuisance-watch/internal/domain"
	"github.com/couchcryptid/nuisance-watch/internal/observability"
	"github.com/couchcryptid/nuisance-watch/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	registry, zips, err := loadRegistries(cfg)
	if err != nil {
		logger.Error("failed to load registries", "error", err)
		os.Exit(1)
	}
	logger.Info("registries loaded", "categories", registry.Len(), "zip_codes", zips.Len())

	// Baseline history is feature-flagged via BASELINE_ENABLED / BASELINE_URL.
	var baselines domain.BaselineProvider
	if cfg.BaselineEnabled {
		client := baseline.NewClient(cfg.BaselineURL, cfg.BaselineTimeout, metrics, logger)
		baselines = baseline.NewCachedProvider(client, cfg.BaselineCacheSize, metrics)
		metrics.BaselineEnabled.Set(1)
		logger.Info("baseline history enabled", "url", cfg.BaselineURL, "cache_size", cfg.BaselineCacheSize)
	} else {
		logger.Info("baseline history disabled, trends will use absolute volume")
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)

	p := pipeline.New(reader, writer, baselines, logger, metrics, nil, pipeline.Settings{
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.WindowFlushInterval,
		Threshold:     cfg.SignificanceThreshold,
		Registry:      registry,
		ZipIndex:      zips,
	})

	srv := httpserver.NewServer(cfg.HTTPAddr, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start the windowed clustering pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// loadRegistries builds the category registry and zip index, preferring
// configured JSON files over the compiled-in defaults.
func loadRegistries(cfg *config.Config) (*domain.Registry, *domain.ZipIndex, error) {
	registry := domain.DefaultRegistry()
	if cfg.CategoryConfigPath != "" {
		var err error
		registry, err = domain.LoadRegistryFile(cfg.CategoryConfigPath)
		if err != nil {
			return nil, nil, fmt.Errorf("category registry: %w", err)
		}
	}

	zips := domain.DefaultZipIndex()
	if cfg.ZipIndexPath != "" {
		var err error
		zips, err = domain.LoadZipIndexFile(cfg.ZipIndexPath)
		if err != nil {
			return nil, nil, fmt.Errorf("zip index: %w", err)
		}
	}

	return registry, zips, nil
}
