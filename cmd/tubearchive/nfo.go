package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/amaumene/tubearchive/internal/models"
	"github.com/amaumene/tubearchive/internal/nfo"
	"github.com/amaumene/tubearchive/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newNFOCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "nfo <video-id> <metadata-json> <target-dir>",
		Short: "Render an episodedetails NFO from a metadata payload",
		Long: `Render <target-dir>/<video-id>.nfo from a metadata payload.

<metadata-json> is the payload itself, or @path to read it from a file.
Malformed JSON is an error; failing to write the file is only logged.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog, err := utils.NewLogger(logLevel, "")
			if err != nil {
				return err
			}
			defer closeLog()

			return runNFO(logger, args[0], args[1], args[2])
		},
	}

	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level")
	return cmd
}

func runNFO(logger *logrus.Logger, videoID, payload, dir string) error {
	body := []byte(payload)
	if path, ok := strings.CutPrefix(payload, "@"); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read metadata: %w", err)
		}
		body = data
	}

	meta, err := models.ParseVideoMetadata(body)
	if err != nil {
		return err
	}

	path, err := nfo.Write(dir, videoID, meta)
	if err != nil {
		logger.WithError(err).WithField("video_id", videoID).Error("Failed to export nfo")
		return nil
	}

	logger.WithField("path", path).Info("Exported nfo")
	return nil
}
