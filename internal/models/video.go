package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// StreamType identifies a media stream inside a video file
type StreamType string

const (
	StreamVideo StreamType = "video"
	StreamAudio StreamType = "audio"
)

// VideoMetadata is the payload returned by the video endpoint. Raw keeps the
// response body untouched so sidecars carry every field the server sent.
type VideoMetadata struct {
	Data VideoData       `json:"data"`
	Raw  json.RawMessage `json:"-"`
}

// VideoData holds the fields the archiver and the NFO generator use
type VideoData struct {
	YoutubeID      string   `json:"youtube_id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Published      string   `json:"published"`
	Player         Player   `json:"player"`
	Channel        Channel  `json:"channel"`
	Streams        []Stream `json:"streams"`
	VidThumbURL    string   `json:"vid_thumb_url"`
	VidLastRefresh string   `json:"vid_last_refresh"`
}

// Player carries playback information
type Player struct {
	Duration FlexInt `json:"duration"`
	Watched  bool    `json:"watched"`
}

// Channel is the uploader of a video
type Channel struct {
	ChannelID   string `json:"channel_id"`
	ChannelName string `json:"channel_name"`
}

// Stream describes one video or audio stream
type Stream struct {
	Type    StreamType `json:"type"`
	Index   FlexInt    `json:"index"`
	Codec   string     `json:"codec"`
	Bitrate FlexInt    `json:"bitrate"`
	Width   FlexInt    `json:"width"`
	Height  FlexInt    `json:"height"`
}

// ParseVideoMetadata decodes a metadata payload and keeps the raw bytes
func ParseVideoMetadata(body []byte) (*VideoMetadata, error) {
	var meta VideoMetadata
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode video metadata: %w", err)
	}
	meta.Raw = append(json.RawMessage(nil), body...)
	return &meta, nil
}

// PrettyJSON returns the full payload indented with four spaces
func (m *VideoMetadata) PrettyJSON() ([]byte, error) {
	raw := m.Raw
	if len(raw) == 0 {
		encoded, err := json.Marshal(m)
		if err != nil {
			return nil, err
		}
		raw = encoded
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "    "); err != nil {
		return nil, fmt.Errorf("failed to indent metadata: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// ChannelName returns the channel name, empty when unknown
func (m *VideoMetadata) ChannelName() string {
	return m.Data.Channel.ChannelName
}

// FlexInt decodes JSON numbers (integer or float), numeric strings and null
// into an int. Fractions are truncated, anything else decodes as zero.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexInt) UnmarshalJSON(b []byte) error {
	s := string(bytes.TrimSpace(b))
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		*f = 0
		return nil
	}
	*f = FlexInt(int(v))
	return nil
}

// Int returns the value as int
func (f FlexInt) Int() int {
	return int(f)
}
