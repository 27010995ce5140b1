package controllers

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/amaumene/tubearchive/internal/config"
	"github.com/amaumene/tubearchive/internal/ffmpeg"
	"github.com/amaumene/tubearchive/internal/metrics"
	"github.com/amaumene/tubearchive/internal/models"
	"github.com/amaumene/tubearchive/internal/nfo"
	"github.com/amaumene/tubearchive/internal/utils"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// Partial step names reported in models.Outcome.Partial
const (
	StepTagging   = "tagging"
	StepThumbnail = "thumbnail"
	StepNFO       = "nfo"
	StepWatched   = "watched"
)

// ThumbnailFetcher downloads a thumbnail reference to a local file
type ThumbnailFetcher interface {
	DownloadThumbnail(ctx context.Context, token models.Token, ref, dest string) error
}

// Tagger embeds container metadata into a file in place
type Tagger interface {
	Embed(ctx context.Context, path string, tags []ffmpeg.Tag) error
}

// ArchiveController copies a video into the archive and decorates the copy
// with its sidecar, tags, thumbnail and optional NFO.
type ArchiveController struct {
	sidecarExt string
	writeNFO   bool
	thumbs     ThumbnailFetcher
	tagger     Tagger
	metrics    *metrics.Metrics
	logger     *logrus.Logger
}

// NewArchiveController creates a new archive controller
func NewArchiveController(cfg *config.Config, thumbs ThumbnailFetcher, tagger Tagger, m *metrics.Metrics, logger *logrus.Logger) *ArchiveController {
	return &ArchiveController{
		sidecarExt: cfg.SidecarExtension,
		writeNFO:   cfg.WriteNFO,
		thumbs:     thumbs,
		tagger:     tagger,
		metrics:    m,
		logger:     logger,
	}
}

// Archive runs the archive steps for one task. Copy and sidecar failures
// fail the task and leave no destination file behind; tagging, thumbnail
// and NFO failures are recorded as partial and the copy is kept.
func (c *ArchiveController) Archive(ctx context.Context, token models.Token, task *models.ArchiveTask) models.Outcome {
	log := c.logger.WithFields(logrus.Fields{
		"video_id": task.VideoID,
		"dest":     task.DestPath,
	})

	info, err := os.Stat(task.SourcePath)
	if err != nil {
		log.WithError(err).Error("Source file does not exist")
		return models.Failed("source missing", err)
	}

	if err := os.MkdirAll(filepath.Dir(task.DestPath), 0755); err != nil {
		log.WithError(err).Error("Failed to create destination directory")
		return models.Failed("create directory", err)
	}

	written, err := copyFile(task.SourcePath, task.DestPath, info)
	if err != nil {
		log.WithError(err).Error("Failed to copy video")
		return models.Failed("copy", err)
	}
	c.metrics.AddCopiedBytes(written)
	log.WithField("size", humanize.Bytes(uint64(written))).Info("Copied video")

	sidecar := utils.SidecarPath(task.DestPath, c.sidecarExt)
	if err := writeSidecar(sidecar, task.Metadata); err != nil {
		log.WithError(err).Error("Failed to export metadata, removing copy")
		os.Remove(task.DestPath)
		return models.Failed("sidecar", err)
	}
	log.WithField("sidecar", sidecar).Info("Exported metadata")

	outcome := models.Archived()

	if err := c.tagger.Embed(ctx, task.DestPath, ffmpeg.Tags(task.Metadata)); err != nil {
		log.WithError(err).Warn("Failed to embed metadata, keeping untagged copy")
		outcome.Partial = append(outcome.Partial, StepTagging)
	} else {
		log.Info("Embedded metadata")
	}
	// ffmpeg writes a new file, so the source attributes are applied again
	if err := preserveAttributes(task.DestPath, info); err != nil {
		log.WithError(err).Warn("Failed to restore file attributes")
	}

	if ref := task.Metadata.Data.VidThumbURL; ref != "" {
		thumb := utils.SidecarPath(task.DestPath, "jpg")
		if err := c.thumbs.DownloadThumbnail(ctx, token, ref, thumb); err != nil {
			log.WithError(err).Warn("Failed to download thumbnail")
			outcome.Partial = append(outcome.Partial, StepThumbnail)
		}
	}

	if c.writeNFO {
		base := strings.TrimSuffix(filepath.Base(task.DestPath), filepath.Ext(task.DestPath))
		path, err := nfo.Write(filepath.Dir(task.DestPath), base, task.Metadata)
		if err != nil {
			log.WithError(err).Warn("Failed to write nfo")
			outcome.Partial = append(outcome.Partial, StepNFO)
		} else {
			log.WithField("nfo", path).Debug("Wrote nfo")
		}
	}

	return outcome
}

// copyFile copies src to dst through a temporary file and applies the mode
// and modification time of src. It returns the number of bytes written.
func copyFile(src, dst string, info os.FileInfo) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("failed to open source: %w", err)
	}
	defer in.Close()

	var written int64
	err = utils.WriteAtomic(dst, info.Mode().Perm(), func(w io.Writer) error {
		n, err := io.Copy(w, in)
		written = n
		return err
	})
	if err != nil {
		return written, err
	}

	return written, preserveAttributes(dst, info)
}

func preserveAttributes(path string, info os.FileInfo) error {
	if err := os.Chmod(path, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Chtimes(path, info.ModTime(), info.ModTime())
}

func writeSidecar(path string, meta *models.VideoMetadata) error {
	data, err := meta.PrettyJSON()
	if err != nil {
		return err
	}
	return utils.WriteFileAtomic(path, data, 0644)
}
