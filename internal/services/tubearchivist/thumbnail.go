package tubearchivist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/amaumene/tubearchive/internal/models"
	"github.com/amaumene/tubearchive/internal/utils"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// ThumbnailURL resolves a thumbnail reference. Relative paths are joined onto
// the configured base with exactly one slash between them.
func (c *Client) ThumbnailURL(ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return strings.TrimRight(c.thumbBaseURL, "/") + "/" + strings.TrimLeft(ref, "/")
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// DownloadThumbnail fetches ref and writes it atomically to dest. Gateway
// errors (502, 503, 504) are retried with exponential backoff; any other
// failure stops immediately.
func (c *Client) DownloadThumbnail(ctx context.Context, token models.Token, ref, dest string) error {
	url := c.ThumbnailURL(ref)
	log := c.logger.WithFields(logrus.Fields{
		"url":  url,
		"dest": dest,
	})

	attempt := 0
	operation := func() error {
		attempt++
		err := c.fetchThumbnail(ctx, token, url, dest)
		var statusErr *StatusError
		if err != nil && !(errors.As(err, &statusErr) && retryableStatus(statusErr.Code)) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.thumbInitialInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, c.thumbAttempts-1), ctx)
	err := backoff.RetryNotify(operation, policy, func(err error, wait time.Duration) {
		log.WithFields(logrus.Fields{
			"attempt": attempt,
			"wait":    wait,
			"error":   err,
		}).Warn("Thumbnail download failed, retrying")
	})
	if err != nil {
		return fmt.Errorf("failed to download thumbnail: %w", err)
	}

	log.Info("Thumbnail downloaded")
	return nil
}

func (c *Client) fetchThumbnail(ctx context.Context, token models.Token, url, dest string) error {
	ctx, cancel := context.WithTimeout(ctx, thumbnailTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+string(token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Method: "GET", URL: url, Code: resp.StatusCode, Body: string(body)}
	}

	return utils.WriteAtomic(dest, 0644, func(w io.Writer) error {
		_, err := io.Copy(w, resp.Body)
		return err
	})
}
