package tubearchivist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/amaumene/tubearchive/internal/models"
	"github.com/sirupsen/logrus"
)

type progressResponse struct {
	Watched  bool           `json:"watched"`
	Position models.FlexInt `json:"position"`
}

type progressRequest struct {
	Position int `json:"position"`
}

type watchedRequest struct {
	ID        string `json:"id"`
	IsWatched bool   `json:"is_watched"`
}

// GetVideo fetches the metadata payload of a video. No retry: callers skip
// the file for this run on error.
func (c *Client) GetVideo(ctx context.Context, token models.Token, videoID string) (*models.VideoMetadata, error) {
	body, err := c.doRequest(ctx, "GET", fmt.Sprintf("%s/%s", c.videoURL, videoID), token, nil, metadataTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadata for %s: %w", videoID, err)
	}
	return models.ParseVideoMetadata(body)
}

// GetWatchedState returns the server-side playback state of a video
func (c *Client) GetWatchedState(ctx context.Context, token models.Token, videoID string) (*models.WatchedState, error) {
	body, err := c.doRequest(ctx, "GET", c.progressURL(videoID), token, nil, progressTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch watched state for %s: %w", videoID, err)
	}

	var resp progressResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode watched state: %w", err)
	}

	return &models.WatchedState{
		VideoID:  videoID,
		Watched:  resp.Watched,
		Position: resp.Position.Int(),
	}, nil
}

// IsWatched reports whether the server marks the video as watched. Any
// failure is logged and treated as not watched.
func (c *Client) IsWatched(ctx context.Context, token models.Token, videoID string) bool {
	state, err := c.GetWatchedState(ctx, token, videoID)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"video_id": videoID,
			"error":    err,
		}).Warn("Could not determine watched state, assuming unwatched")
		return false
	}
	return state.Watched
}

// MarkWatched sets the playback position and the watched flag. Both calls
// are always attempted; the returned error joins whichever failed.
func (c *Client) MarkWatched(ctx context.Context, token models.Token, videoID string, position int) error {
	log := c.logger.WithField("video_id", videoID)

	var errs []error
	if _, err := c.doRequest(ctx, "POST", c.progressURL(videoID), token, progressRequest{Position: position}, progressTimeout); err != nil {
		log.WithError(err).Error("Failed to update watched position")
		errs = append(errs, fmt.Errorf("failed to update position: %w", err))
	} else {
		log.WithField("position", position).Info("Updated watched position")
	}

	if _, err := c.doRequest(ctx, "POST", c.apiURL+"/watched/", token, watchedRequest{ID: videoID, IsWatched: true}, progressTimeout); err != nil {
		log.WithError(err).Error("Failed to mark video as watched")
		errs = append(errs, fmt.Errorf("failed to mark watched: %w", err))
	} else {
		log.Info("Marked video as watched")
	}

	return errors.Join(errs...)
}

func (c *Client) progressURL(videoID string) string {
	return fmt.Sprintf("%s/%s/progress/", c.videoURL, videoID)
}
