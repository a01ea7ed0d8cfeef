package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/appctx"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/generation"
	"github.com/hyperjump/kotae/internal/knowledge"
	"github.com/hyperjump/kotae/internal/metrics"
	"github.com/hyperjump/kotae/internal/rag"
	"github.com/hyperjump/kotae/internal/semcache"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/pkg/utils"
)

func newServerCmd() *cobra.Command {
	var debug bool
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			return runServer(configPath, debug)
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	return cmd
}

func runServer(configPath string, debug bool) error {
	cfg, resolvedConfigPath, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	debugMode := cfg.Debug || debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.Int("applications", len(cfg.Applications)),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	components, err := initializeComponents(cfg, logger, metrics.New(reg))
	if err != nil {
		return err
	}
	defer components.Close()

	if cfg.Cache.ResetOnStartOrDefault() {
		if err := components.Cache.Reset(context.Background()); err != nil {
			return fmt.Errorf("reset cache: %w", err)
		}
		logger.Info("semantic cache flushed", zap.String("backend", cfg.Cache.Backend))
	}

	srv := server.NewServer(components.Orchestrator, components.Contexts, &cfg.Server, logger, components.Metrics, reg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

// Components holds initialized services.
type Components struct {
	Embedder     embedding.Embedder
	Generator    generation.Generator
	Cache        *semcache.Cache
	Contexts     *appctx.Store
	Orchestrator *rag.Orchestrator
	Metrics      *metrics.Metrics
}

func (c *Components) Close() {
	if c.Cache != nil {
		_ = c.Cache.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (*Components, error) {
	c := &Components{Metrics: m}

	embedder, err := embedding.New(cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	c.Embedder = embedder

	store, err := semcache.NewStore(cfg.Cache)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize cache store: %w", err)
	}
	cache, err := semcache.New(store, cfg.Cache.SimilarityThreshold, logger, m)
	if err != nil {
		_ = store.Close()
		c.Close()
		return nil, err
	}
	c.Cache = cache

	apps, err := appctx.FromConfig(cfg.Applications)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Contexts = appctx.NewStore(apps, knowledge.NewFileLoader(cfg.DataPath), embedder.Dimensions(), logger, m)

	generator, err := generation.New(cfg.Generation)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	}
	c.Generator = generator

	c.Orchestrator = rag.New(embedder, cache, c.Contexts, generator, rag.Options{
		TopK:          cfg.Retrieval.TopK,
		NoDataMarker:  cfg.Retrieval.NoDataMarker,
		StopSequences: cfg.Generation.StopSequences,
		Timeout:       cfg.Generation.Timeout,
		SingleFlight:  cfg.Cache.SingleFlight,
	}, logger, m)

	logger.Info("components initialized",
		zap.String("embedding", cfg.Embedding.Provider),
		zap.String("generation", generator.Name()),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Float64("similarity_threshold", cache.Threshold()),
	)
	return c, nil
}
