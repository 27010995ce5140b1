package handlers

import (
	"net/http"

	"github.com/amaumene/tubearchive/internal/controllers"
	"github.com/amaumene/tubearchive/internal/models"
	"github.com/sirupsen/logrus"
)

// RunReporter exposes the state of archive runs
type RunReporter interface {
	Running() bool
	LastRun() *controllers.RunStats
}

// StatusHandler handles status requests
type StatusHandler struct {
	db     *models.Database
	runs   RunReporter
	logger *logrus.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(db *models.Database, runs RunReporter, logger *logrus.Logger) *StatusHandler {
	return &StatusHandler{
		db:     db,
		runs:   runs,
		logger: logger,
	}
}

// StatusResponse represents the status response
type StatusResponse struct {
	TotalArchived  int                   `json:"total_archived"`
	PendingWatched int                   `json:"pending_watched"`
	Complete       int                   `json:"complete"`
	Running        bool                  `json:"running"`
	LastRun        *controllers.RunStats `json:"last_run"`
}

// ServeHTTP handles the status endpoint
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	counts, err := h.db.CountByStatus()
	if err != nil {
		h.logger.WithError(err).Error("Failed to count ledger entries")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := StatusResponse{
		PendingWatched: counts[models.LedgerArchived],
		Complete:       counts[models.LedgerComplete],
		Running:        h.runs.Running(),
		LastRun:        h.runs.LastRun(),
	}
	response.TotalArchived = response.PendingWatched + response.Complete

	writeJSON(w, http.StatusOK, response)
}
