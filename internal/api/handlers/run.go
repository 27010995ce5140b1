package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/amaumene/tubearchive/internal/controllers"
	"github.com/sirupsen/logrus"
)

// Runner starts archive runs
type Runner interface {
	Run(ctx context.Context) (*controllers.RunStats, error)
	Running() bool
}

// RunHandler triggers an archive run outside the schedule
type RunHandler struct {
	ctx    context.Context
	runner Runner
	logger *logrus.Logger
}

// NewRunHandler creates a new run handler. Triggered runs are bound to ctx,
// not to the request.
func NewRunHandler(ctx context.Context, runner Runner, logger *logrus.Logger) *RunHandler {
	return &RunHandler{
		ctx:    ctx,
		runner: runner,
		logger: logger,
	}
}

// ServeHTTP handles the run trigger endpoint
func (h *RunHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.runner.Running() {
		writeJSON(w, http.StatusConflict, map[string]string{"status": "running"})
		return
	}

	h.logger.WithField("remote_addr", r.RemoteAddr).Info("Archive run requested")
	go func() {
		_, err := h.runner.Run(h.ctx)
		if errors.Is(err, controllers.ErrRunInProgress) {
			h.logger.Info("Archive run already in progress")
		} else if err != nil {
			h.logger.WithError(err).Error("Requested archive run failed")
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}
