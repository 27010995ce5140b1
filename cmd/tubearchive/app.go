package main

import (
	"fmt"
	"path/filepath"

	"github.com/amaumene/tubearchive/internal/config"
	"github.com/amaumene/tubearchive/internal/controllers"
	"github.com/amaumene/tubearchive/internal/ffmpeg"
	"github.com/amaumene/tubearchive/internal/metrics"
	"github.com/amaumene/tubearchive/internal/models"
	"github.com/amaumene/tubearchive/internal/services/tubearchivist"
	"github.com/amaumene/tubearchive/internal/utils"
	"github.com/sirupsen/logrus"
)

// app holds everything a command needs for one invocation
type app struct {
	cfg         *config.Config
	logger      *logrus.Logger
	db          *models.Database
	metrics     *metrics.Metrics
	syncCtrl    *controllers.SyncController
	cleanupCtrl *controllers.CleanupController

	closers []func() error
}

// newApp loads the configuration and wires services and controllers
func newApp() (*app, error) {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Setup logger
	logger, closeLog, err := utils.NewLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}
	a := &app{cfg: cfg, logger: logger, closers: []func() error{closeLog}}
	logger.WithFields(logrus.Fields{
		"config_dir": filepath.Dir(cfg.LedgerFile),
		"media_dir":  cfg.MediaDir,
		"target_dir": cfg.TargetDir,
	}).Info("Configuration loaded")

	// 3. Initialize ledger
	a.db, err = models.NewDatabase(cfg.LedgerFile)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize ledger: %w", err)
	}
	a.closers = append(a.closers, a.db.Close)
	logger.Debug("Ledger initialized")

	// 4. Load ignore list
	ignore, err := utils.LoadIgnoreList(cfg.IgnoreFile)
	if err != nil {
		logger.WithError(err).Warn("Failed to load ignore list, continuing without it")
		ignore = nil
	} else if ignore.Len() > 0 {
		logger.WithField("terms", ignore.Len()).Info("Ignore list loaded")
	}

	// 5. Initialize services
	client := tubearchivist.NewClient(cfg, logger)
	tagger := ffmpeg.NewTagger(cfg.FFmpegPath, cfg.FFmpegTimeout, logger)
	a.metrics = metrics.New()

	// 6. Initialize controllers
	archiver := controllers.NewArchiveController(cfg, client, tagger, a.metrics, logger)
	a.syncCtrl = controllers.NewSyncController(cfg, client, archiver, a.db, ignore, a.metrics, logger)
	a.cleanupCtrl = controllers.NewCleanupController(a.db, logger)

	return a, nil
}

// Close releases resources in reverse order of acquisition
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && a.logger != nil {
			a.logger.WithError(err).Warn("Error during shutdown")
		}
	}
}
