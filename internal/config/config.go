package config

import (
	"fmt"
)

// RotateDirection selects the transpose applied when rotation is enabled.
type RotateDirection string

const (
	RotateClockwise        RotateDirection = "clockwise"
	RotateCounterclockwise RotateDirection = "counterclockwise"
)

// TargetPolicy describes the band of output widths the display accepts.
// Height is strict; width may float inside [WidthMin, WidthMax] and snaps
// to WidthPreferred when the source's natural width lands within
// PreferenceStrength pixels of it.
type TargetPolicy struct {
	Height             int `toml:"height"`
	WidthMin           int `toml:"width_min"`
	WidthMax           int `toml:"width_max"`
	WidthPreferred     int `toml:"width_preferred"`
	PreferenceStrength int `toml:"preference_strength"`
}

// ScalingLimits bounds deliberate aspect-changing scaling.
// MaxStretch/MinSqueeze are hard ceilings; PreferredMaxDistortion is the
// tighter bound under which distortion is considered visually acceptable.
// CropTolerance, when non-zero, lets an overflow crop up to that fraction
// of the scaled dimension win before distortion is considered at all.
type ScalingLimits struct {
	MaxStretch             float64 `toml:"max_stretch"`
	MinSqueeze             float64 `toml:"min_squeeze"`
	PreferredMaxDistortion float64 `toml:"preferred_max_distortion"`
	CropTolerance          float64 `toml:"crop_tolerance"`
}

// SubtitleStyle is the force_style applied when burning in sidecar subtitles.
type SubtitleStyle struct {
	FontName string `toml:"font_name"`
	FontSize int    `toml:"font_size"`
	Outline  int    `toml:"outline"`
	MarginV  int    `toml:"margin_v"`
}

// Options is the full configuration for one converter run. It is built
// once from flags, an optional TOML file and profile defaults, then
// threaded read-only through every component call.
type Options struct {
	InputDir  string `toml:"input_dir"`
	OutputDir string `toml:"output_dir"`

	Profile   string          `toml:"profile"`
	Rotate    bool            `toml:"rotate"`
	RotateDir RotateDirection `toml:"rotate_dir"`

	// Threads caps the encoder's worker threads. Zero means the optimal
	// count for this machine.
	Threads int `toml:"threads"`

	Force   bool `toml:"force"`
	Watch   bool `toml:"watch"`
	Verbose bool `toml:"verbose"`

	Target    TargetPolicy  `toml:"target"`
	Limits    ScalingLimits `toml:"limits"`
	Subtitles SubtitleStyle `toml:"subtitles"`
}

// Validate checks the geometry policy and scaling limits for coherence.
func (o *Options) Validate() error {
	t := o.Target
	if t.Height <= 0 {
		return fmt.Errorf("target height must be positive, got %d", t.Height)
	}
	if t.WidthMin <= 0 || t.WidthMax < t.WidthMin {
		return fmt.Errorf("invalid width band [%d, %d]", t.WidthMin, t.WidthMax)
	}
	if t.WidthPreferred < t.WidthMin || t.WidthPreferred > t.WidthMax {
		return fmt.Errorf("preferred width %d outside band [%d, %d]",
			t.WidthPreferred, t.WidthMin, t.WidthMax)
	}
	if t.PreferenceStrength < 0 {
		return fmt.Errorf("preference strength must be non-negative, got %d", t.PreferenceStrength)
	}

	l := o.Limits
	if l.MaxStretch < 1.0 {
		return fmt.Errorf("max stretch must be >= 1.0, got %g", l.MaxStretch)
	}
	if l.MinSqueeze <= 0 || l.MinSqueeze > 1.0 {
		return fmt.Errorf("min squeeze must be in (0, 1.0], got %g", l.MinSqueeze)
	}
	if l.PreferredMaxDistortion < 1.0 {
		return fmt.Errorf("preferred max distortion must be >= 1.0, got %g", l.PreferredMaxDistortion)
	}
	if l.CropTolerance < 0 || l.CropTolerance >= 1.0 {
		return fmt.Errorf("crop tolerance must be in [0, 1), got %g", l.CropTolerance)
	}

	switch o.RotateDir {
	case RotateClockwise, RotateCounterclockwise:
	default:
		return fmt.Errorf("unsupported rotate direction: %s", o.RotateDir)
	}
	return nil
}
