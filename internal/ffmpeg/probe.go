// Package ffmpeg wraps the external ffmpeg/ffprobe tools: stream probing,
// encoding with a composed filter chain, and the -progress side channel.
package ffmpeg

import (
	"encoding/json"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/tinyscreen/tinytv/internal/fitting"
)

// Metadata is what the probe learned about a source file. Geometry's
// zero value and HasDuration=false are normal states, not errors: a
// well-formed but unreadable stream yields unknown metadata and the
// pipeline falls back to the neutral filter chain.
type Metadata struct {
	Geometry    fitting.Geometry
	Duration    float64
	HasDuration bool
	Codec       string
}

// Prober queries files via ffprobe.
type Prober struct {
	log zerolog.Logger
}

// NewProber creates a Prober.
func NewProber(log zerolog.Logger) *Prober {
	return &Prober{log: log}
}

// Probe returns the metadata for a video file. It errors only when the
// file itself is missing or unreadable at the OS level; probe and parse
// failures come back as unknown metadata.
func (p *Prober) Probe(path string) (*Metadata, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrap(err, "source not accessible")
	}

	raw, err := ffmpeg.Probe(path)
	if err != nil {
		p.log.Debug().Str("file", path).Err(err).Msg("probe failed, treating geometry as unknown")
		return &Metadata{}, nil
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		p.log.Debug().Str("file", path).Err(err).Msg("probe output unparseable, treating geometry as unknown")
		return &Metadata{}, nil
	}

	meta := &Metadata{}

	streams, _ := data["streams"].([]interface{})
	for _, stream := range streams {
		s, ok := stream.(map[string]interface{})
		if !ok {
			continue
		}
		if codecType, _ := s["codec_type"].(string); codecType != "video" {
			continue
		}
		if w, ok := s["width"].(float64); ok {
			meta.Geometry.Width = int(w)
		}
		if h, ok := s["height"].(float64); ok {
			meta.Geometry.Height = int(h)
		}
		if codec, ok := s["codec_name"].(string); ok {
			meta.Codec = codec
		}
		// Stream-level duration, when the container carries none.
		if d, ok := parseFloatField(s["duration"]); ok {
			meta.Duration = d
			meta.HasDuration = true
		}
		break
	}

	if format, ok := data["format"].(map[string]interface{}); ok {
		if d, ok := parseFloatField(format["duration"]); ok {
			meta.Duration = d
			meta.HasDuration = true
		}
	}

	if !meta.Geometry.Valid() {
		// A negative or zero dimension is as good as no stream at all.
		meta.Geometry = fitting.Geometry{}
	}
	if meta.HasDuration && meta.Duration < 0 {
		meta.Duration = 0
		meta.HasDuration = false
	}

	return meta, nil
}

func parseFloatField(v interface{}) (float64, bool) {
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// OptimalThreadCount returns the encoder thread cap for this machine,
// 75% of the cores so the box stays responsive during long batches.
func OptimalThreadCount() int {
	return int(math.Max(1, float64(runtime.NumCPU())*0.75))
}
