package tubearchivist

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amaumene/tubearchive/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]interface{}
}

type fakeServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []recordedRequest
}

func (f *fakeServer) record(r *http.Request) {
	rec := recordedRequest{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization")}
	if data, _ := io.ReadAll(r.Body); len(data) > 0 {
		json.Unmarshal(data, &rec.Body)
	}
	f.mu.Lock()
	f.requests = append(f.requests, rec)
	f.mu.Unlock()
}

func (f *fakeServer) calls(method, path string) []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedRequest
	for _, r := range f.requests {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func newFakeServer(t *testing.T, handler http.HandlerFunc) *fakeServer {
	t.Helper()
	f := &fakeServer{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		handler(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

func newTestClient(baseURL string) *Client {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	c := NewClient(&config.Config{
		VideoAPIURL:  baseURL + "/api/video",
		APIURL:       baseURL + "/api",
		ThumbBaseURL: baseURL,
		Username:     "admin",
		Password:     "secret",
	}, logger)
	c.thumbInitialInterval = time.Millisecond
	return c
}

func TestLogin(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"token":"tok-1"}`))
	})
	c := newTestClient(srv.URL)

	token, err := c.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", string(token))

	calls := srv.calls("POST", "/api/login/")
	require.Len(t, calls, 1)
	assert.Equal(t, "admin", calls[0].Body["username"])
	assert.Equal(t, "secret", calls[0].Body["password"])
	assert.Empty(t, calls[0].Auth)
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"detail":"bad"}`, ErrUnexpectedStatus},
		{"empty token", http.StatusOK, `{"token":""}`, ErrEmptyToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			c := newTestClient(srv.URL)

			_, err := c.Login(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Len(t, srv.calls("POST", "/api/login/"), 1, "login is never retried")
		})
	}
}

func TestGetVideo(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/video/abc123" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"data":{"title":"My Video","channel":{"channel_name":"My Channel"}}}`))
	})
	c := newTestClient(srv.URL)

	meta, err := c.GetVideo(context.Background(), "tok", "abc123")
	require.NoError(t, err)
	assert.Equal(t, "My Video", meta.Data.Title)
	assert.Equal(t, "Token tok", srv.calls("GET", "/api/video/abc123")[0].Auth)

	_, err = c.GetVideo(context.Background(), "tok", "missing")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
	assert.Len(t, srv.calls("GET", "/api/video/missing"), 1)
}

func TestIsWatched(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/video/seen/progress/":
			w.Write([]byte(`{"watched":true,"position":100}`))
		case "/api/video/fresh/progress/":
			w.Write([]byte(`{"watched":false}`))
		case "/api/video/garbage/progress/":
			w.Write([]byte(`not json`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})
	c := newTestClient(srv.URL)
	ctx := context.Background()

	assert.True(t, c.IsWatched(ctx, "tok", "seen"))
	assert.False(t, c.IsWatched(ctx, "tok", "fresh"))
	assert.False(t, c.IsWatched(ctx, "tok", "garbage"))
	assert.False(t, c.IsWatched(ctx, "tok", "broken"))
}

func TestGetWatchedState(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		wantWatched  bool
		wantPosition int
	}{
		{"integer position", `{"watched":true,"position":100}`, true, 100},
		{"fractional position", `{"watched":false,"position":42.5}`, false, 42},
		{"string position", `{"watched":false,"position":"17"}`, false, 17},
		{"missing position", `{"watched":true}`, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})
			c := newTestClient(srv.URL)

			state, err := c.GetWatchedState(context.Background(), "tok", "abc123")
			require.NoError(t, err)
			assert.Equal(t, "abc123", state.VideoID)
			assert.Equal(t, tt.wantWatched, state.Watched)
			assert.Equal(t, tt.wantPosition, state.Position)
		})
	}
}

func TestMarkWatched(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	c := newTestClient(srv.URL)

	require.NoError(t, c.MarkWatched(context.Background(), "tok", "abc123", 100))

	progress := srv.calls("POST", "/api/video/abc123/progress/")
	require.Len(t, progress, 1)
	assert.EqualValues(t, 100, progress[0].Body["position"])

	watched := srv.calls("POST", "/api/watched/")
	require.Len(t, watched, 1)
	assert.Equal(t, "abc123", watched[0].Body["id"])
	assert.Equal(t, true, watched[0].Body["is_watched"])
}

func TestMarkWatched_AttemptsBothCalls(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/video/abc123/progress/" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{}`))
	})
	c := newTestClient(srv.URL)

	err := c.MarkWatched(context.Background(), "tok", "abc123", 100)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnexpectedStatus))
	assert.Len(t, srv.calls("POST", "/api/watched/"), 1, "watched flag still sent after position failure")
}

func TestThumbnailURL(t *testing.T) {
	c := newTestClient("http://ta:8000/")

	assert.Equal(t, "http://ta:8000/cache/videos/a/abc.jpg", c.ThumbnailURL("/cache/videos/a/abc.jpg"))
	assert.Equal(t, "http://ta:8000/cache/abc.jpg", c.ThumbnailURL("cache/abc.jpg"))
	assert.Equal(t, "https://i.ytimg.com/vi/abc/max.jpg", c.ThumbnailURL("https://i.ytimg.com/vi/abc/max.jpg"))
}

func TestDownloadThumbnail_RetriesGatewayErrors(t *testing.T) {
	var hits atomic.Int32
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("jpeg-bytes"))
	})
	c := newTestClient(srv.URL)
	dest := filepath.Join(t.TempDir(), "My_Video.jpg")

	require.NoError(t, c.DownloadThumbnail(context.Background(), "tok", "/cache/abc.jpg", dest))
	assert.EqualValues(t, 3, hits.Load())

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
}

func TestDownloadThumbnail_GivesUpAfterFiveAttempts(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	c := newTestClient(srv.URL)
	dest := filepath.Join(t.TempDir(), "My_Video.jpg")

	err := c.DownloadThumbnail(context.Background(), "tok", "/cache/abc.jpg", dest)
	require.Error(t, err)
	assert.Len(t, srv.calls("GET", "/cache/abc.jpg"), 5)
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestDownloadThumbnail_NoRetryOnClientErrors(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusUnauthorized} {
		srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		c := newTestClient(srv.URL)

		err := c.DownloadThumbnail(context.Background(), "tok", "/cache/abc.jpg", filepath.Join(t.TempDir(), "x.jpg"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnexpectedStatus))
		assert.Len(t, srv.calls("GET", "/cache/abc.jpg"), 1, "status %d", status)
	}
}
