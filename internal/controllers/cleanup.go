package controllers

import (
	"context"
	"fmt"
	"os"

	"github.com/amaumene/tubearchive/internal/models"
	"github.com/sirupsen/logrus"
)

// CleanupController keeps the ledger in line with the archive on disk
type CleanupController struct {
	db     *models.Database
	logger *logrus.Logger
}

// NewCleanupController creates a new cleanup controller
func NewCleanupController(db *models.Database, logger *logrus.Logger) *CleanupController {
	return &CleanupController{
		db:     db,
		logger: logger,
	}
}

// ReconcileResult lists what a reconcile pass found
type ReconcileResult struct {
	Checked int      `json:"checked"`
	Removed []string `json:"removed"`
}

// Reconcile drops ledger entries whose archived copy no longer exists so a
// later run may archive those videos again. With dryRun set nothing is
// deleted.
func (c *CleanupController) Reconcile(ctx context.Context, dryRun bool) (*ReconcileResult, error) {
	c.logger.WithField("dry_run", dryRun).Info("Starting ledger reconcile")

	entries, err := c.db.GetAllEntries()
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}

	result := &ReconcileResult{Removed: []string{}}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Checked++

		_, err := os.Stat(entry.DestPath)
		if err == nil {
			continue
		}
		if !os.IsNotExist(err) {
			c.logger.WithError(err).WithField("dest", entry.DestPath).Warn("Could not check archived copy")
			continue
		}

		log := c.logger.WithFields(logrus.Fields{
			"video_id": entry.VideoID,
			"dest":     entry.DestPath,
			"status":   entry.Status,
		})
		if dryRun {
			log.Info("Archived copy missing (dry run)")
			result.Removed = append(result.Removed, entry.VideoID)
			continue
		}
		if err := c.db.DeleteEntry(entry.VideoID); err != nil {
			log.WithError(err).Error("Failed to delete ledger entry")
			continue
		}
		log.Info("Archived copy missing, ledger entry removed")
		result.Removed = append(result.Removed, entry.VideoID)
	}

	c.logger.WithFields(logrus.Fields{
		"checked": result.Checked,
		"removed": len(result.Removed),
	}).Info("Ledger reconcile completed")
	return result, nil
}
