// Package nfo renders Kodi/Jellyfin style episodedetails descriptors for
// archived videos.
package nfo

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"

	"github.com/amaumene/tubearchive/internal/models"
	"github.com/amaumene/tubearchive/internal/utils"
)

// Header is written before the document element
const Header = `<?xml version="1.0" encoding="utf-8" standalone="yes"?>` + "\n"

// Extension of descriptor files
const Extension = "nfo"

// EpisodeDetails is the document element
type EpisodeDetails struct {
	XMLName   xml.Name `xml:"episodedetails"`
	Plot      string   `xml:"plot"`
	LockData  bool     `xml:"lockdata"`
	DateAdded string   `xml:"dateadded"`
	Title     string   `xml:"title"`
	Runtime   int      `xml:"runtime"`
	Poster    string   `xml:"art>poster"`
	ShowTitle string   `xml:"showtitle"`
	Season    string   `xml:"season"`
	FileInfo  FileInfo `xml:"fileinfo"`
}

// FileInfo wraps the stream list
type FileInfo struct {
	StreamDetails StreamDetails `xml:"streamdetails"`
}

// StreamDetails holds VideoStream and AudioStream values in payload order
type StreamDetails struct {
	Streams []interface{}
}

// VideoStream describes a video stream. Values the server does not expose
// are fixed.
type VideoStream struct {
	XMLName           xml.Name `xml:"video"`
	Codec             string   `xml:"codec"`
	MiCodec           string   `xml:"micodec"`
	Bitrate           int      `xml:"bitrate"`
	Width             int      `xml:"width"`
	Height            int      `xml:"height"`
	FrameRate         string   `xml:"framerate"`
	Language          string   `xml:"language"`
	ScanType          string   `xml:"scantype"`
	Default           string   `xml:"default"`
	Forced            string   `xml:"forced"`
	Duration          int      `xml:"duration"`
	DurationInSeconds int      `xml:"durationinseconds"`
}

// AudioStream describes an audio stream
type AudioStream struct {
	XMLName      xml.Name `xml:"audio"`
	Codec        string   `xml:"codec"`
	MiCodec      string   `xml:"micodec"`
	Bitrate      int      `xml:"bitrate"`
	Language     string   `xml:"language"`
	ScanType     string   `xml:"scantype"`
	Channels     int      `xml:"channels"`
	SamplingRate int      `xml:"samplingrate"`
	Default      string   `xml:"default"`
	Forced       string   `xml:"forced"`
}

// Build maps a metadata payload onto the descriptor. Streams of unknown type
// are dropped.
func Build(videoID string, meta *models.VideoMetadata) *EpisodeDetails {
	data := meta.Data
	runtime := data.Player.Duration.Int()

	doc := &EpisodeDetails{
		Plot:      data.Description,
		LockData:  false,
		DateAdded: data.VidLastRefresh,
		Title:     data.Title,
		Runtime:   runtime,
		Poster:    fmt.Sprintf("./%s.jpg", videoID),
		Season:    "1",
	}

	for _, s := range data.Streams {
		switch s.Type {
		case models.StreamVideo:
			doc.FileInfo.StreamDetails.Streams = append(doc.FileInfo.StreamDetails.Streams, VideoStream{
				Codec:             s.Codec,
				MiCodec:           s.Codec,
				Bitrate:           s.Bitrate.Int(),
				Width:             s.Width.Int(),
				Height:            s.Height.Int(),
				FrameRate:         "24.000076",
				Language:          "und",
				ScanType:          "progressive",
				Default:           "True",
				Forced:            "False",
				Duration:          0,
				DurationInSeconds: runtime,
			})
		case models.StreamAudio:
			doc.FileInfo.StreamDetails.Streams = append(doc.FileInfo.StreamDetails.Streams, AudioStream{
				Codec:        s.Codec,
				MiCodec:      s.Codec,
				Bitrate:      s.Bitrate.Int(),
				Language:     "eng",
				ScanType:     "progressive",
				Channels:     2,
				SamplingRate: 48000,
				Default:      "True",
				Forced:       "False",
			})
		}
	}

	return doc
}

// Render returns the complete descriptor document. Output depends only on
// its inputs.
func Render(videoID string, meta *models.VideoMetadata) ([]byte, error) {
	body, err := xml.MarshalIndent(Build(videoID, meta), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to render nfo: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(len(Header) + len(body) + 1)
	buf.WriteString(Header)
	buf.Write(body)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Path returns where the descriptor of videoID lives inside dir
func Path(dir, videoID string) string {
	return filepath.Join(dir, videoID+"."+Extension)
}

// Write renders the descriptor and stores it atomically as <dir>/<videoID>.nfo
func Write(dir, videoID string, meta *models.VideoMetadata) (string, error) {
	content, err := Render(videoID, meta)
	if err != nil {
		return "", err
	}

	path := Path(dir, videoID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	if err := utils.WriteFileAtomic(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write nfo: %w", err)
	}
	return path, nil
}
