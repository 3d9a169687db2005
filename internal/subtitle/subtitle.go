// Package subtitle pairs sidecar .srt files with their videos and builds
// the burn-in filter for them.
package subtitle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tinyscreen/tinytv/internal/config"
)

// FindSidecar returns the path of the matching .srt next to the video
// (same base name), or "" when none exists.
func FindSidecar(videoPath string) string {
	base := strings.TrimSuffix(videoPath, filepath.Ext(videoPath))
	srt := base + ".srt"
	if _, err := os.Stat(srt); err != nil {
		return ""
	}
	return srt
}

// Filter renders the subtitles burn-in filter with the display style.
// The path is escaped for ffmpeg's filter syntax.
func Filter(srtPath string, style config.SubtitleStyle) string {
	return fmt.Sprintf(
		"subtitles='%s':force_style='FontName=%s,FontSize=%d,OutlineColour=&H80000000,Outline=%d,MarginV=%d'",
		escapePath(srtPath),
		style.FontName,
		style.FontSize,
		style.Outline,
		style.MarginV,
	)
}

// escapePath escapes the characters ffmpeg's filter parser treats
// specially inside a filename argument.
func escapePath(path string) string {
	path = strings.ReplaceAll(path, `\`, `\\`)
	path = strings.ReplaceAll(path, `:`, `\:`)
	return path
}
