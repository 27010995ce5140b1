package utils

import (
	"path/filepath"
	"strings"
)

const (
	unknownChannel = "Unknown_Channel"
	placeholder    = "_"
)

var pathReplacer = strings.NewReplacer(" ", "_", "/", "_")

// SanitizeComponent turns a title or channel name into a single path
// component by replacing spaces and slashes with underscores. Nothing else is
// touched so names stay identical to archives written by earlier releases.
func SanitizeComponent(name string) string {
	s := pathReplacer.Replace(name)
	if s == "." || s == ".." {
		return placeholder
	}
	return s
}

// DestinationPath builds <targetDir>/<channel>/<title>.<ext>. An empty
// channel falls back to Unknown_Channel and an empty title to the video id.
func DestinationPath(targetDir, channel, title, videoID, ext string) string {
	channel = SanitizeComponent(channel)
	if channel == "" {
		channel = unknownChannel
	}
	title = SanitizeComponent(title)
	if title == "" {
		title = SanitizeComponent(videoID)
	}
	return filepath.Join(targetDir, channel, title+"."+strings.TrimPrefix(ext, "."))
}

// SidecarPath swaps the extension of path for ext
func SidecarPath(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + "." + strings.TrimPrefix(ext, ".")
}
