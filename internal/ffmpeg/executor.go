package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrTimeout is returned when ffmpeg runs longer than the configured limit
var ErrTimeout = errors.New("ffmpeg timed out")

// Tagger embeds container metadata into archived copies
type Tagger struct {
	binary  string
	timeout time.Duration
	logger  *logrus.Logger
}

// NewTagger creates a tagger running binary with a per-file timeout
func NewTagger(binary string, timeout time.Duration, logger *logrus.Logger) *Tagger {
	return &Tagger{binary: binary, timeout: timeout, logger: logger}
}

// Embed rewrites path with tags applied. The tagged file is written next to
// path and renamed over it on success; on failure the temporary file is
// removed and path is left untouched.
func (t *Tagger) Embed(ctx context.Context, path string, tags []Tag) error {
	tmp := path + TempSuffix
	format := Format(filepath.Ext(path))
	args := Build(t.binary, path, tmp, format, tags)

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	t.logger.WithFields(logrus.Fields{
		"path":   path,
		"format": format,
		"tags":   len(tags),
	}).Debug("Running ffmpeg")

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf
	cmd.WaitDelay = 5 * time.Second

	if err := cmd.Run(); err != nil {
		os.Remove(tmp)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", ErrTimeout, t.timeout)
		}
		if msg := strings.TrimSpace(stderrBuf.String()); msg != "" {
			return fmt.Errorf("ffmpeg failed: %w: %s", err, msg)
		}
		return fmt.Errorf("ffmpeg failed: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s with tagged copy: %w", filepath.Base(path), err)
	}
	return nil
}
