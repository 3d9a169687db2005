// Package bardetect finds letterbox and pillarbox bars by sampling the
// video with ffmpeg's cropdetect filter at several timestamps and
// aggregating the reported rectangles.
//
// Single-sample detection is unreliable when a sample point lands on a
// dark or static scene, so three windows are pooled and the most
// frequent exact rectangle wins; a crop below the significance floor is
// treated as noise.
package bardetect

import (
	"fmt"
	"os/exec"
	"regexp"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/tinyscreen/tinytv/internal/ffmpeg"
	"github.com/tinyscreen/tinytv/internal/fitting"
)

const (
	// minDuration is the shortest video worth sampling.
	minDuration = 2.0

	// sampleWindow is the length in seconds of each cropdetect pass.
	sampleWindow = 3

	// significanceFloor is the minimum fraction of a dimension a
	// detected bar must remove before the crop is trusted.
	significanceFloor = 0.02

	// detectFilter is cropdetect with threshold 24, rounding to 16.
	detectFilter = "cropdetect=24:16:0"
)

// samplePositions are the fractions of the duration where windows start.
var samplePositions = []float64{0.10, 0.50, 0.90}

var cropRe = regexp.MustCompile(`crop=(\d+):(\d+):(\d+):(\d+)`)

// Detector samples files with ffmpeg's cropdetect filter.
type Detector struct {
	log zerolog.Logger
}

// NewDetector creates a Detector.
func NewDetector(log zerolog.Logger) *Detector {
	return &Detector{log: log}
}

// Detect returns the bar-crop rectangle for a video, or nil when there
// are no significant bars. Unknown or too-short duration disables
// detection for the file.
func (d *Detector) Detect(path string, meta *ffmpeg.Metadata) *fitting.CropBox {
	if meta == nil || !meta.HasDuration || meta.Duration < minDuration {
		d.log.Debug().Str("file", path).Msg("duration unknown or too short, skipping bar detection")
		return nil
	}
	if !meta.Geometry.Valid() {
		return nil
	}

	var pool []fitting.CropBox
	for _, pos := range samplePositions {
		out := d.sample(path, meta.Duration*pos)
		pool = append(pool, ParseCandidates(out)...)
	}

	box := MostFrequent(pool)
	if box == nil {
		d.log.Debug().Str("file", path).Msg("no bars detected")
		return nil
	}
	if !box.Within(meta.Geometry) {
		d.log.Debug().Str("file", path).Msg("detected crop exceeds source frame, discarding")
		return nil
	}
	if !Significant(*box, meta.Geometry) {
		d.log.Debug().Str("file", path).Msg("detected bars below significance floor, keeping full frame")
		return nil
	}

	d.log.Debug().
		Str("file", path).
		Int("width", box.Width).
		Int("height", box.Height).
		Msg("black bars detected")
	return box
}

// sample runs one cropdetect window and returns the tool's combined
// diagnostic output. Errors are not fatal: a failed sample contributes
// nothing to the pool, matching how a dark window contributes nothing.
func (d *Detector) sample(path string, startSeconds float64) string {
	cmd := exec.Command("ffmpeg",
		"-hide_banner",
		"-ss", fmt.Sprintf("%.2f", startSeconds),
		"-i", path,
		"-t", strconv.Itoa(sampleWindow),
		"-vf", detectFilter,
		"-f", "null", "-",
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		d.log.Debug().Str("file", path).Float64("at", startSeconds).Err(err).
			Msg("cropdetect sample failed")
	}
	return string(out)
}

// ParseCandidates extracts every crop=w:h:x:y rectangle from cropdetect
// diagnostic output, in order of appearance.
func ParseCandidates(out string) []fitting.CropBox {
	matches := cropRe.FindAllStringSubmatch(out, -1)
	boxes := make([]fitting.CropBox, 0, len(matches))
	for _, m := range matches {
		w, err1 := strconv.Atoi(m[1])
		h, err2 := strconv.Atoi(m[2])
		x, err3 := strconv.Atoi(m[3])
		y, err4 := strconv.Atoi(m[4])
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			continue
		}
		boxes = append(boxes, fitting.CropBox{Width: w, Height: h, X: x, Y: y})
	}
	return boxes
}

// MostFrequent returns the exact rectangle occurring most often in the
// pool. Ties break to the rectangle seen first. Nil for an empty pool.
func MostFrequent(pool []fitting.CropBox) *fitting.CropBox {
	if len(pool) == 0 {
		return nil
	}

	counts := make(map[fitting.CropBox]int, len(pool))
	first := make(map[fitting.CropBox]int, len(pool))
	for i, box := range pool {
		if _, seen := counts[box]; !seen {
			first[box] = i
		}
		counts[box]++
	}

	best := pool[0]
	for box, n := range counts {
		if n > counts[best] || (n == counts[best] && first[box] < first[best]) {
			best = box
		}
	}
	return &best
}

// Significant reports whether the crop removes more than the floor
// fraction of the source width or height.
func Significant(box fitting.CropBox, src fitting.Geometry) bool {
	widthDiff := float64(src.Width - box.Width)
	heightDiff := float64(src.Height - box.Height)
	return widthDiff > float64(src.Width)*significanceFloor ||
		heightDiff > float64(src.Height)*significanceFloor
}
