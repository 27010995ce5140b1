package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/amaumene/tubearchive/internal/api/handlers"
	"github.com/amaumene/tubearchive/internal/api/middleware"
	"github.com/amaumene/tubearchive/internal/config"
	"github.com/amaumene/tubearchive/internal/controllers"
	"github.com/amaumene/tubearchive/internal/metrics"
	"github.com/amaumene/tubearchive/internal/models"
	"github.com/sirupsen/logrus"
)

// Server represents the HTTP server
type Server struct {
	server   *http.Server
	db       *models.Database
	syncCtrl *controllers.SyncController
	metrics  *metrics.Metrics
	logger   *logrus.Logger
}

// NewServer creates a new HTTP server. Runs triggered over HTTP are bound
// to runCtx.
func NewServer(runCtx context.Context, cfg *config.Config, db *models.Database, syncCtrl *controllers.SyncController, m *metrics.Metrics, logger *logrus.Logger) *Server {
	s := &Server{
		db:       db,
		syncCtrl: syncCtrl,
		metrics:  m,
		logger:   logger,
	}

	s.server = &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      middleware.Logging(s.routes(runCtx), logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// routes configures all HTTP routes
func (s *Server) routes(runCtx context.Context) *http.ServeMux {
	mux := http.NewServeMux()

	// Health check
	mux.Handle("/health", handlers.NewHealthHandler(s.logger))

	// Ledger and last run
	mux.Handle("/status", handlers.NewStatusHandler(s.db, s.syncCtrl, s.logger))

	// Prometheus scrape endpoint
	mux.Handle("/metrics", s.metrics.Handler())

	// Manual trigger
	mux.Handle("/api/run", handlers.NewRunHandler(runCtx, s.syncCtrl, s.logger))

	return mux
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("port", s.server.Addr).Info("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
