package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vbonduro/jartrack/internal/config"
	"github.com/vbonduro/jartrack/internal/db"
	"github.com/vbonduro/jartrack/internal/imagestore/local"
	"github.com/vbonduro/jartrack/internal/logging"
	"github.com/vbonduro/jartrack/internal/metrics"
	"github.com/vbonduro/jartrack/internal/service"
	"github.com/vbonduro/jartrack/internal/store"
)

// app holds the global flags and the services every subcommand runs
// against. open wires them up once the flags are parsed.
type app struct {
	in  io.Reader
	out io.Writer

	configPath  string
	dbPath      string
	jsonOutput  bool
	metricsFile string

	logger    *slog.Logger
	handle    *db.Handle
	registry  *prometheus.Registry
	inventory *service.InventoryService
	catalog   *service.CatalogService
	backups   *service.BackupService

	closers []func() error
}

func (a *app) open() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	a.logger = logger
	a.closers = append(a.closers, func() error { cleanup(); return nil })

	handle, err := db.Open(cfg.DBPath, db.WithLogger(logger))
	if err != nil {
		return err
	}
	a.handle = handle
	a.closers = append(a.closers, handle.Close)

	images, err := local.New(cfg.ImagePath, local.DefaultMaxBytes)
	if err != nil {
		return err
	}

	a.registry = prometheus.NewRegistry()
	collector := metrics.NewCollector(a.registry)
	handle.OnReopen(collector.RecordReconnect)

	a.inventory = service.NewInventoryService(
		store.NewItemTypeStore(handle),
		store.NewJarStore(handle, cfg.MaxBatchQuantity),
		store.NewStatsStore(handle),
		collector,
		logger,
		service.Options{
			RunningLowThreshold: cfg.RunningLowThreshold,
			DefaultLocation:     cfg.DefaultLocation,
		},
	)
	a.catalog = service.NewCatalogService(
		store.NewCategoryStore(handle),
		store.NewJarSizeStore(handle),
		store.NewRecipeStore(handle),
		images,
		logger,
	)
	a.backups = service.NewBackupService(store.NewBackupStore(handle), collector, logger)

	if err := a.catalog.SeedDefaults(context.Background()); err != nil {
		return err
	}
	logger.Debug("jartrack started", "db_path", cfg.DBPath, "image_path", cfg.ImagePath)
	return nil
}

// close writes the metrics textfile when requested and releases everything
// open acquired, in reverse order.
func (a *app) close() error {
	var firstErr error
	if a.metricsFile != "" && a.registry != nil {
		if err := prometheus.WriteToTextfile(a.metricsFile, a.registry); err != nil {
			firstErr = fmt.Errorf("write metrics: %w", err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}
