package ffmpeg

import (
	"strings"

	"github.com/amaumene/tubearchive/internal/models"
)

// TempSuffix is appended to the destination while ffmpeg rewrites it
const TempSuffix = ".tmp"

// Tag is one container metadata entry. Order is preserved on the command line.
type Tag struct {
	Key   string
	Value string
}

// Tags derives the container metadata for a video. Empty fields are left
// out; season_number is always set so media servers file the video under a
// single season.
func Tags(meta *models.VideoMetadata) []Tag {
	data := meta.Data
	tags := make([]Tag, 0, 5)
	if data.Title != "" {
		tags = append(tags, Tag{Key: "title", Value: data.Title})
	}
	if data.Description != "" {
		tags = append(tags, Tag{Key: "comment", Value: data.Description})
	}
	if data.Published != "" {
		tags = append(tags, Tag{Key: "date", Value: data.Published})
	}
	if name := meta.ChannelName(); name != "" {
		tags = append(tags, Tag{Key: "artist", Value: name})
	}
	tags = append(tags, Tag{Key: "season_number", Value: "1"})
	return tags
}

// muxers maps file extensions to ffmpeg output formats where they differ
var muxers = map[string]string{
	"mkv": "matroska",
	"m4v": "mp4",
	"m4a": "mp4",
	"mka": "matroska",
}

// Format returns the ffmpeg muxer name for a file extension
func Format(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if f, ok := muxers[ext]; ok {
		return f
	}
	return ext
}

// Build constructs the ffmpeg argument slice that copies the streams of
// input into output while applying tags.
func Build(binary, input, output, format string, tags []Tag) []string {
	args := make([]string, 0, 16+2*len(tags))

	// --- Preamble ---
	args = append(args, binary, "-hide_banner", "-nostdin", "-y", "-loglevel", "error")

	// --- Input ---
	args = append(args, "-i", input)

	// --- Metadata ---
	for _, tag := range tags {
		args = append(args, "-metadata", tag.Key+"="+tag.Value)
	}

	// --- Stream maps ---
	args = append(args, "-map", "0:v?", "-map", "0:a?")

	// --- Codec + output ---
	args = append(args, "-c", "copy", "-f", format, output)

	return args
}
