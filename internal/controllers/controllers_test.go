package controllers

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/amaumene/tubearchive/internal/config"
	"github.com/amaumene/tubearchive/internal/ffmpeg"
	"github.com/amaumene/tubearchive/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// fakeAPI stands in for the TubeArchivist client
type fakeAPI struct {
	mu        sync.Mutex
	loginErr  error
	watched   map[string]bool
	videos    map[string]string
	markErr   error
	thumbErr  error
	marked    []string
	fetched   []string
	thumbRefs []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{watched: map[string]bool{}, videos: map[string]string{}}
}

func (f *fakeAPI) Login(ctx context.Context) (models.Token, error) {
	if f.loginErr != nil {
		return "", f.loginErr
	}
	return "tok", nil
}

func (f *fakeAPI) IsWatched(ctx context.Context, token models.Token, videoID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.watched[videoID]
}

func (f *fakeAPI) GetVideo(ctx context.Context, token models.Token, videoID string) (*models.VideoMetadata, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, videoID)
	body, ok := f.videos[videoID]
	f.mu.Unlock()
	if !ok {
		return nil, errors.New("404")
	}
	return models.ParseVideoMetadata([]byte(body))
}

func (f *fakeAPI) MarkWatched(ctx context.Context, token models.Token, videoID string, position int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, videoID)
	if f.markErr != nil {
		return f.markErr
	}
	f.watched[videoID] = true
	return nil
}

func (f *fakeAPI) DownloadThumbnail(ctx context.Context, token models.Token, ref, dest string) error {
	f.mu.Lock()
	f.thumbRefs = append(f.thumbRefs, ref)
	f.mu.Unlock()
	if f.thumbErr != nil {
		return f.thumbErr
	}
	return os.WriteFile(dest, []byte("jpeg"), 0o644)
}

// fakeTagger records Embed calls and optionally fails them
type fakeTagger struct {
	err   error
	calls int
	tags  []ffmpeg.Tag
}

func (t *fakeTagger) Embed(ctx context.Context, path string, tags []ffmpeg.Tag) error {
	t.calls++
	t.tags = tags
	return t.err
}

type harness struct {
	cfg    *config.Config
	api    *fakeAPI
	tagger *fakeTagger
	db     *models.Database
	sync   *SyncController
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		MediaDir:         filepath.Join(root, "media"),
		TargetDir:        filepath.Join(root, "archive"),
		VideoExtension:   "mp4",
		SidecarExtension: "json",
		RemarkExisting:   true,
		FFmpegTimeout:    time.Minute,
	}
	require.NoError(t, os.MkdirAll(cfg.MediaDir, 0o755))

	db, err := models.NewDatabase(filepath.Join(root, "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := &harness{cfg: cfg, api: newFakeAPI(), tagger: &fakeTagger{}, db: db}
	h.build(t)
	return h
}

// build wires the controllers from the current cfg
func (h *harness) build(t *testing.T) {
	t.Helper()
	logger := quietLogger()
	archiver := NewArchiveController(h.cfg, h.api, h.tagger, nil, logger)
	h.sync = NewSyncController(h.cfg, h.api, archiver, h.db, nil, nil, logger)
}

func (h *harness) addVideo(t *testing.T, id, metadata string) string {
	t.Helper()
	path := filepath.Join(h.cfg.MediaDir, "UC123", id+".mp4")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("video-"+id), 0o640))
	if metadata != "" {
		h.api.videos[id] = metadata
	}
	return path
}

const myVideo = `{"data":{"youtube_id":"abc123","title":"My Video","description":"desc",
	"published":"2024-01-02","channel":{"channel_name":"My Channel"},
	"vid_thumb_url":"/cache/videos/abc123.jpg"}}`

func (h *harness) dest(rel string) string {
	return filepath.Join(h.cfg.TargetDir, rel)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

var _ VideoAPI = (*fakeAPI)(nil)
var _ ThumbnailFetcher = (*fakeAPI)(nil)
