package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("TA_MEDIA_FOLDER", "/media/ta")
	t.Setenv("TARGET_FOLDER", "/archive")
	t.Setenv("TA_API_VIDEO_URL", "http://ta:8000/api/video/")
	t.Setenv("TA_API_URL", "http://ta:8000/api")
	t.Setenv("TA_API_USERNAME", "admin")
	t.Setenv("TA_API_PASSWORD", "secret")
	t.Setenv("THUMB_BASE_URL", "http://ta:8000")
	t.Setenv("CONFIG_DIR", t.TempDir())
}

func TestLoadFrom_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "/media/ta", cfg.MediaDir)
	assert.Equal(t, "http://ta:8000/api/video", cfg.VideoAPIURL, "trailing slash is trimmed")
	assert.Equal(t, "mp4", cfg.VideoExtension)
	assert.Equal(t, "json", cfg.SidecarExtension)
	assert.False(t, cfg.WriteNFO)
	assert.True(t, cfg.RemarkExisting)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, 30*time.Minute, cfg.FFmpegTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "tubearchive.db", filepath.Base(cfg.LedgerFile))
	assert.Equal(t, "ignore.txt", filepath.Base(cfg.IgnoreFile))
}

func TestLoadFrom_MissingKeys(t *testing.T) {
	for _, key := range requiredKeys {
		t.Setenv(key, "")
	}
	t.Setenv("TA_API_USERNAME", "admin")

	_, err := LoadFrom(t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingConfig))

	var missing *MissingError
	require.True(t, errors.As(err, &missing))
	assert.NotContains(t, missing.Keys, "TA_API_USERNAME")
	assert.Contains(t, missing.Keys, "TA_MEDIA_FOLDER")
	assert.Contains(t, missing.Keys, "THUMB_BASE_URL")
	assert.Len(t, missing.Keys, len(requiredKeys)-1)
}

func TestLoadFrom_DotEnvFile(t *testing.T) {
	setRequired(t)
	t.Setenv("VIDEO_EXTENSION", "")
	dir := t.TempDir()
	content := "VIDEO_EXTENSION=.mkv\nWRITE_NFO=true\nFFMPEG_TIMEOUT=90s\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o644))

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, "mkv", cfg.VideoExtension)
	assert.True(t, cfg.WriteNFO)
	assert.Equal(t, 90*time.Second, cfg.FFmpegTimeout)
}

func TestLoadFrom_InvalidTimeout(t *testing.T) {
	setRequired(t)
	t.Setenv("FFMPEG_TIMEOUT", "soon")

	_, err := LoadFrom(t.TempDir())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMissingConfig))
}
