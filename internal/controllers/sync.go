package controllers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/amaumene/tubearchive/internal/config"
	"github.com/amaumene/tubearchive/internal/metrics"
	"github.com/amaumene/tubearchive/internal/models"
	"github.com/amaumene/tubearchive/internal/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// WatchedPosition is the progress reported when marking a video watched
const WatchedPosition = 100

// ErrRunInProgress is returned when a run is requested while one is active
var ErrRunInProgress = errors.New("archive run already in progress")

// VideoAPI is the part of the media server the archive run talks to
type VideoAPI interface {
	Login(ctx context.Context) (models.Token, error)
	IsWatched(ctx context.Context, token models.Token, videoID string) bool
	GetVideo(ctx context.Context, token models.Token, videoID string) (*models.VideoMetadata, error)
	MarkWatched(ctx context.Context, token models.Token, videoID string, position int) error
}

// RunStats summarises one archive run
type RunStats struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Discovered int       `json:"discovered"`
	Archived   int       `json:"archived"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	Partial    int       `json:"partial"`
	Remarked   int       `json:"remarked"`
	WalkErrors int       `json:"walk_errors"`
	Error      string    `json:"error,omitempty"`
}

func (s *RunStats) record(o models.Outcome) {
	switch o.Status {
	case models.OutcomeArchived:
		s.Archived++
		if len(o.Partial) > 0 {
			s.Partial++
		}
	case models.OutcomeSkipped:
		s.Skipped++
	case models.OutcomeFailed:
		s.Failed++
	}
}

// SyncController runs the per-file archive pipeline over the media folder
type SyncController struct {
	mediaDir       string
	targetDir      string
	videoExt       string
	sidecarExt     string
	remarkExisting bool

	api      VideoAPI
	archiver *ArchiveController
	db       *models.Database
	ignore   *utils.IgnoreList
	metrics  *metrics.Metrics
	logger   *logrus.Logger

	running atomic.Bool
	mu      sync.RWMutex
	lastRun *RunStats
}

// NewSyncController creates a new sync controller
func NewSyncController(
	cfg *config.Config,
	api VideoAPI,
	archiver *ArchiveController,
	db *models.Database,
	ignore *utils.IgnoreList,
	m *metrics.Metrics,
	logger *logrus.Logger,
) *SyncController {
	return &SyncController{
		mediaDir:       cfg.MediaDir,
		targetDir:      cfg.TargetDir,
		videoExt:       cfg.VideoExtension,
		sidecarExt:     cfg.SidecarExtension,
		remarkExisting: cfg.RemarkExisting,
		api:            api,
		archiver:       archiver,
		db:             db,
		ignore:         ignore,
		metrics:        m,
		logger:         logger,
	}
}

// LastRun returns a copy of the stats of the last finished run, or nil
func (c *SyncController) LastRun() *RunStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastRun == nil {
		return nil
	}
	stats := *c.lastRun
	return &stats
}

// Running reports whether a run is active
func (c *SyncController) Running() bool {
	return c.running.Load()
}

// Run performs one pass over the media folder. Only a failed login (or a
// cancelled context) is returned as an error; per-file problems are logged
// and counted in the returned stats.
func (c *SyncController) Run(ctx context.Context) (*RunStats, error) {
	if !c.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer c.running.Store(false)

	stats := &RunStats{RunID: uuid.NewString(), StartedAt: time.Now()}
	log := c.logger.WithField("run_id", stats.RunID)
	log.WithField("media_dir", c.mediaDir).Info("Starting archive run")
	c.metrics.RunStarted()

	err := c.run(ctx, stats, log)

	stats.FinishedAt = time.Now()
	if err != nil {
		stats.Error = err.Error()
	}
	c.metrics.RunFinished(err)

	c.mu.Lock()
	c.lastRun = stats
	c.mu.Unlock()

	log.WithFields(logrus.Fields{
		"discovered": stats.Discovered,
		"archived":   stats.Archived,
		"partial":    stats.Partial,
		"skipped":    stats.Skipped,
		"failed":     stats.Failed,
		"remarked":   stats.Remarked,
		"duration":   stats.FinishedAt.Sub(stats.StartedAt).Round(time.Millisecond),
	}).Info("Archive run completed")

	return stats, err
}

func (c *SyncController) run(ctx context.Context, stats *RunStats, log *logrus.Entry) error {
	token, err := c.api.Login(ctx)
	if err != nil {
		return fmt.Errorf("failed to authenticate: %w", err)
	}

	for path, walkErr := range utils.Discover(c.mediaDir, c.videoExt) {
		if walkErr != nil {
			log.WithError(walkErr).Warn("Error while walking media folder")
			stats.WalkErrors++
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		stats.Discovered++
		outcome := c.ProcessFile(ctx, token, stats.RunID, path)
		stats.record(outcome)
		if c.remarked(outcome) {
			stats.Remarked++
		}
		c.metrics.ObserveOutcome(outcome)

		entry := log.WithFields(logrus.Fields{
			"path":    path,
			"outcome": outcome.Status,
		})
		if outcome.Reason != "" {
			entry = entry.WithField("reason", outcome.Reason)
		}
		if len(outcome.Partial) > 0 {
			entry = entry.WithField("partial", outcome.Partial)
		}
		if outcome.Err != nil {
			entry.WithError(outcome.Err).Warn("File not archived")
		} else {
			entry.Debug("File processed")
		}
	}

	return nil
}

// ProcessFile runs the pipeline for a single discovered file
func (c *SyncController) ProcessFile(ctx context.Context, token models.Token, runID, path string) models.Outcome {
	videoID := utils.VideoID(path)
	log := c.logger.WithFields(logrus.Fields{
		"run_id":   runID,
		"video_id": videoID,
	})

	if c.api.IsWatched(ctx, token, videoID) {
		c.closeLedgerEntry(videoID, log)
		return models.Skipped(models.SkipWatched)
	}

	if matched, term := c.ignore.Match(videoID, "", ""); matched {
		log.WithField("term", term).Info("Video is on the ignore list")
		return models.Skipped(models.SkipIgnored)
	}

	if c.remarkExisting {
		if entry, err := c.db.GetEntry(videoID); err == nil && entry.Status == models.LedgerArchived {
			if _, err := os.Stat(entry.DestPath); err == nil {
				log.WithField("dest", entry.DestPath).Info("Video archived earlier, retrying watched update")
				return c.remark(ctx, token, videoID, models.SkipPendingRemark, log)
			}
			log.WithField("dest", entry.DestPath).Warn("Archived copy disappeared, archiving again")
			if err := c.db.DeleteEntry(videoID); err != nil {
				log.WithError(err).Warn("Failed to update ledger")
			}
		}
	}

	meta, err := c.api.GetVideo(ctx, token, videoID)
	if err != nil {
		log.WithError(err).Error("Failed to fetch metadata, skipping")
		outcome := models.Skipped(models.SkipNoMetadata)
		outcome.Err = err
		return outcome
	}

	if matched, term := c.ignore.Match(videoID, meta.ChannelName(), meta.Data.Title); matched {
		log.WithField("term", term).Info("Video is on the ignore list")
		return models.Skipped(models.SkipIgnored)
	}

	task := &models.ArchiveTask{
		VideoID:    videoID,
		SourcePath: path,
		DestPath:   utils.DestinationPath(c.targetDir, meta.ChannelName(), meta.Data.Title, videoID, c.videoExt),
		Metadata:   meta,
	}

	if _, err := os.Stat(task.DestPath); err == nil {
		log.WithField("dest", task.DestPath).Info("Video already archived")
		if !c.remarkExisting {
			return models.Skipped(models.SkipExists)
		}
		if owner := c.destinationOwner(task.DestPath); owner != "" && owner != videoID {
			log.WithFields(logrus.Fields{
				"dest":  task.DestPath,
				"owner": owner,
			}).Warn("Destination holds another video, leaving this one unwatched")
			return models.Skipped(models.SkipDestConflict)
		}
		c.recordArchived(task, runID, log)
		return c.remark(ctx, token, videoID, models.SkipExists, log)
	}

	outcome := c.archiver.Archive(ctx, token, task)
	if !outcome.OK() {
		return outcome
	}
	c.recordArchived(task, runID, log)

	if err := c.api.MarkWatched(ctx, token, videoID, WatchedPosition); err != nil {
		outcome.Partial = append(outcome.Partial, StepWatched)
		return outcome
	}
	c.closeLedgerEntry(videoID, log)

	return outcome
}

// destinationOwner returns the id of the video an existing destination was
// archived for: the ledger first, then the youtube_id of the sidecar. An
// empty result means the owner is unknown.
func (c *SyncController) destinationOwner(destPath string) string {
	entries, err := c.db.GetEntriesByDestPath(destPath)
	if err != nil {
		c.logger.WithError(err).WithField("dest", destPath).Warn("Failed to query ledger")
	}
	if len(entries) > 0 {
		return entries[0].VideoID
	}

	data, err := os.ReadFile(utils.SidecarPath(destPath, c.sidecarExt))
	if err != nil {
		return ""
	}
	meta, err := models.ParseVideoMetadata(data)
	if err != nil {
		return ""
	}
	return meta.Data.YoutubeID
}

// remarked reports whether o is a successful watched retry
func (c *SyncController) remarked(o models.Outcome) bool {
	if o.Status != models.OutcomeSkipped || len(o.Partial) > 0 {
		return false
	}
	return o.Reason == string(models.SkipPendingRemark) ||
		(c.remarkExisting && o.Reason == string(models.SkipExists))
}

// remark retries only the watched update of an already archived video
func (c *SyncController) remark(ctx context.Context, token models.Token, videoID string, reason models.SkipReason, log *logrus.Entry) models.Outcome {
	outcome := models.Skipped(reason)
	if err := c.api.MarkWatched(ctx, token, videoID, WatchedPosition); err != nil {
		outcome.Err = err
		outcome.Partial = append(outcome.Partial, StepWatched)
		return outcome
	}
	c.closeLedgerEntry(videoID, log)
	return outcome
}

func (c *SyncController) recordArchived(task *models.ArchiveTask, runID string, log *logrus.Entry) {
	err := c.db.RecordArchived(&models.LedgerEntry{
		VideoID:    task.VideoID,
		SourcePath: task.SourcePath,
		DestPath:   task.DestPath,
		RunID:      runID,
	})
	if err != nil {
		log.WithError(err).Warn("Failed to record video in ledger")
	}
}

func (c *SyncController) closeLedgerEntry(videoID string, log *logrus.Entry) {
	if err := c.db.MarkComplete(videoID); err != nil {
		log.WithError(err).Warn("Failed to update ledger")
	}
}
