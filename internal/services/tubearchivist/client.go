package tubearchivist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/amaumene/tubearchive/internal/config"
	"github.com/amaumene/tubearchive/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	loginTimeout     = 10 * time.Second
	metadataTimeout  = 20 * time.Second
	progressTimeout  = 10 * time.Second
	thumbnailTimeout = 30 * time.Second
)

// ErrUnexpectedStatus is matched by errors.Is for any *StatusError
var ErrUnexpectedStatus = errors.New("unexpected status")

// StatusError is returned when the server answers with a non-2xx status
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %s %d: %s", e.Method, e.URL, ErrUnexpectedStatus, e.Code, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

// Client handles communication with the TubeArchivist API. One client, and
// therefore one HTTP connection pool, is shared by every call of a run.
type Client struct {
	videoURL     string
	apiURL       string
	thumbBaseURL string
	username     string
	password     string
	httpClient   *http.Client
	logger       *logrus.Logger

	// thumbnail retry policy
	thumbAttempts        uint64
	thumbInitialInterval time.Duration
}

// NewClient creates a new TubeArchivist API client
func NewClient(cfg *config.Config, logger *logrus.Logger) *Client {
	return &Client{
		videoURL:             cfg.VideoAPIURL,
		apiURL:               cfg.APIURL,
		thumbBaseURL:         cfg.ThumbBaseURL,
		username:             cfg.Username,
		password:             cfg.Password,
		httpClient:           &http.Client{},
		logger:               logger,
		thumbAttempts:        5,
		thumbInitialInterval: time.Second,
	}
}

// doRequest performs an HTTP request bounded by timeout and returns the
// response body. Non-2xx answers are reported as *StatusError.
func (c *Client) doRequest(ctx context.Context, method, url string, token models.Token, body interface{}, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	c.logger.WithFields(logrus.Fields{
		"method": method,
		"url":    url,
	}).Debug("Making TubeArchivist API request")

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+string(token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Method: method, URL: url, Code: resp.StatusCode, Body: string(data)}
	}

	return data, nil
}
